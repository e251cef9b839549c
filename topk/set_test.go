package topk

import "testing"

func ids(entries []Entry) []uint32 {
	out := make([]uint32, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestSetBasicTopK(t *testing.T) {
	s := NewSet(3, false)
	data := []Entry{{5, 1}, {1, 2}, {9, 3}, {0, 4}, {3, 5}}
	for _, e := range data {
		s.Insert(e.Score, e.ID)
	}
	got := ids(s.Drain())
	want := []uint32{4, 2, 5} // scores 0,1,3
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Drain()[%d] = %d, want %d (full=%v)", i, got[i], want[i], got)
		}
	}
}

func TestSetAscendingOrder(t *testing.T) {
	s := NewSet(5, false)
	for i := uint32(0); i < 5; i++ {
		s.Insert(float32(5-i), i)
	}
	out := s.Drain()
	for i := 1; i < len(out); i++ {
		if out[i-1].Score > out[i].Score {
			t.Fatalf("not ascending: %v", out)
		}
	}
}

func TestSetTieBreakSmallerIDWins(t *testing.T) {
	s := NewSet(2, false)
	s.Insert(1.0, 10)
	s.Insert(1.0, 20)
	// Now inserting an equal-score, smaller id should evict the largest id.
	ok := s.Insert(1.0, 5)
	if !ok {
		t.Fatalf("expected insert of smaller id at tied score to succeed")
	}
	got := ids(s.Drain())
	want := []uint32{5, 10}
	if got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSetDedup(t *testing.T) {
	s := NewSet(3, true)
	if !s.Insert(1.0, 1) {
		t.Fatalf("first insert should succeed")
	}
	if s.Insert(2.0, 1) {
		t.Fatalf("duplicate id should be rejected even with a different score")
	}
	if !s.Contains(1) {
		t.Fatalf("expected Contains(1) after insert")
	}
}

func TestSetCapacityNeverExceeded(t *testing.T) {
	s := NewSet(4, false)
	for i := uint32(0); i < 100; i++ {
		s.Insert(float32(100-i), i)
		if s.Len() > s.Cap() {
			t.Fatalf("Len %d exceeded Cap %d", s.Len(), s.Cap())
		}
	}
}
