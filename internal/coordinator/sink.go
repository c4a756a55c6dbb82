package coordinator

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/danmuck/mergectl/internal/merge"
)

// MemorySink collects one worker's emissions in order.
type MemorySink struct {
	mu     sync.Mutex
	values []int64
}

func (s *MemorySink) Emit(values []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, values...)
	return nil
}

func (s *MemorySink) Values() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.values))
	copy(out, s.values)
	return out
}

// Emission is one sink call tagged with a global sequence number.
type Emission struct {
	Seq    int
	Role   merge.Role
	Values []int64
}

// Recorder tags every emission from either worker with a global sequence so
// the cross-worker interleaving can be reassembled and verified.
type Recorder struct {
	mu        sync.Mutex
	nextSeq   int
	emissions []Emission
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// SinkFor returns the sink one worker should emit into.
func (r *Recorder) SinkFor(role merge.Role) merge.Sink {
	return &recorderSink{recorder: r, role: role}
}

// Emissions returns all recorded sink calls in global order.
func (r *Recorder) Emissions() []Emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Emission, len(r.emissions))
	copy(out, r.emissions)
	return out
}

// Merged flattens the recorded emissions in global sequence order.
func (r *Recorder) Merged() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
	for _, e := range r.emissions {
		out = append(out, e.Values...)
	}
	return out
}

type recorderSink struct {
	recorder *Recorder
	role     merge.Role
}

func (s *recorderSink) Emit(values []int64) error {
	vals := make([]int64, len(values))
	copy(vals, values)

	r := s.recorder
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emissions = append(r.emissions, Emission{Seq: r.nextSeq, Role: s.role, Values: vals})
	r.nextSeq++
	return nil
}

// FileSink appends merged values to a file, one value per line.
type FileSink struct {
	mu   sync.Mutex
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Emit(values []int64) error {
	if len(values) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("coordinator: open sink %s: %w", s.path, err)
	}
	defer f.Close()
	for _, v := range values {
		if _, err := f.WriteString(strconv.FormatInt(v, 10) + "\n"); err != nil {
			return fmt.Errorf("coordinator: append sink %s: %w", s.path, err)
		}
	}
	return nil
}
