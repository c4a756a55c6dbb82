// Package store holds one worker's private sorted sequence and the cursor
// marking the next unemitted value. Pure data, no concurrency.
package store

import "sort"

// Range is the immutable (min, max, count) summary of a full store, computed
// once before any emission.
type Range struct {
	Empty bool
	Min   int64
	Max   int64
	Count int
}

// Store is a worker's private sorted values plus an emission cursor.
// Values are non-decreasing; duplicates are allowed and preserved.
// The cursor only advances.
type Store struct {
	values []int64
	cursor int
}

// New copies and sorts the input values. Sorting happens exactly once, here,
// before the range is observable.
func New(values []int64) *Store {
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return &Store{values: sorted}
}

// Range summarizes the full store independent of cursor position.
func (s *Store) Range() Range {
	if len(s.values) == 0 {
		return Range{Empty: true}
	}
	return Range{
		Min:   s.values[0],
		Max:   s.values[len(s.values)-1],
		Count: len(s.values),
	}
}

// Head returns the next unemitted value, or false when exhausted.
func (s *Store) Head() (int64, bool) {
	if s.cursor >= len(s.values) {
		return 0, false
	}
	return s.values[s.cursor], true
}

// Advance moves the cursor past the current head. No-op when exhausted.
func (s *Store) Advance() {
	if s.cursor < len(s.values) {
		s.cursor++
	}
}

// Exhausted reports whether every value has been emitted.
func (s *Store) Exhausted() bool {
	return s.cursor >= len(s.values)
}

// Remaining returns the count of unemitted values.
func (s *Store) Remaining() int {
	return len(s.values) - s.cursor
}

// TakeChunk pops up to limit values unconditionally, advancing the cursor.
func (s *Store) TakeChunk(limit int) []int64 {
	out := make([]int64, 0, limit)
	for len(out) < limit {
		head, ok := s.Head()
		if !ok {
			break
		}
		out = append(out, head)
		s.cursor++
	}
	return out
}
