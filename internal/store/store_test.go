package store

import "testing"

func TestNewSortsInput(t *testing.T) {
	s := New([]int64{5, 1, 3, 1})
	r := s.Range()
	if r.Empty || r.Min != 1 || r.Max != 5 || r.Count != 4 {
		t.Fatalf("unexpected range: %+v", r)
	}
	head, ok := s.Head()
	if !ok || head != 1 {
		t.Fatalf("unexpected head: %d ok=%v", head, ok)
	}
}

func TestEmptyStore(t *testing.T) {
	s := New(nil)
	if r := s.Range(); !r.Empty {
		t.Fatalf("expected empty range, got %+v", r)
	}
	if _, ok := s.Head(); ok {
		t.Fatalf("empty store should have no head")
	}
	if !s.Exhausted() {
		t.Fatalf("empty store should be exhausted")
	}
}

func TestAdvanceToExhaustion(t *testing.T) {
	s := New([]int64{2, 4})
	s.Advance()
	if head, ok := s.Head(); !ok || head != 4 {
		t.Fatalf("unexpected head after advance: %d ok=%v", head, ok)
	}
	s.Advance()
	if !s.Exhausted() {
		t.Fatalf("expected exhausted")
	}
	s.Advance() // no-op past the end
	if s.Remaining() != 0 {
		t.Fatalf("remaining should be 0, got %d", s.Remaining())
	}
}

func TestTakeChunkRespectsLimit(t *testing.T) {
	s := New([]int64{1, 2, 3, 4, 5})
	chunk := s.TakeChunk(3)
	if len(chunk) != 3 || chunk[0] != 1 || chunk[2] != 3 {
		t.Fatalf("unexpected chunk: %v", chunk)
	}
	if s.Remaining() != 2 {
		t.Fatalf("remaining should be 2, got %d", s.Remaining())
	}
	rest := s.TakeChunk(10)
	if len(rest) != 2 || rest[1] != 5 {
		t.Fatalf("unexpected rest: %v", rest)
	}
	if len(s.TakeChunk(10)) != 0 {
		t.Fatalf("exhausted store should yield empty chunk")
	}
}

func TestRangeIgnoresCursor(t *testing.T) {
	s := New([]int64{1, 2, 3})
	s.TakeChunk(2)
	r := s.Range()
	if r.Min != 1 || r.Max != 3 || r.Count != 3 {
		t.Fatalf("range must describe the full store, got %+v", r)
	}
}
