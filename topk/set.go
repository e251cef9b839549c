// Package topk implements the bounded min-set from spec.md §2/§4.4: a
// fixed-capacity container that retains the k smallest-score
// (score, id) pairs seen so far, draining them in ascending order.
//
// It is called a "min-set" in the spec because it answers "k smallest",
// but the container itself is a max-heap keyed on score so that the
// single element that might need evicting (the current worst of the k
// kept) is always at the root in O(1) to inspect and O(log k) to replace.
package topk

import "container/heap"

// Entry is one (score, id) pair.
type Entry struct {
	Score float32
	ID    uint32
}

// Set is a bounded max-heap of capacity K. Insert keeps only the K
// smallest scores seen; Drain empties it in ascending score order.
// Ties break by smaller id wins, the explicit, testable choice spec.md
// §4.4/§9 adopts in place of the source's unspecified heap ordering.
type Set struct {
	k      int
	dedup  bool
	seen   map[uint32]struct{} // only allocated when dedup is true
	h      maxHeap
}

// NewSet builds a Set with capacity k. If dedup is true, Insert rejects
// an id that has already been inserted even if it was since evicted —
// used by Vamana's result/frontier sets (§4.5), not needed by IVF where
// ids are unique across partitions by construction.
func NewSet(k int, dedup bool) *Set {
	s := &Set{k: k, dedup: dedup}
	if dedup {
		s.seen = make(map[uint32]struct{}, k)
	}
	s.h = make(maxHeap, 0, k)
	return s
}

// Len returns the number of entries currently held.
func (s *Set) Len() int { return len(s.h) }

// Cap returns the configured capacity k.
func (s *Set) Cap() int { return s.k }

// Max returns the current worst (largest-score) entry and whether the
// set is full. A full set's Max is the eviction threshold for Insert.
func (s *Set) Max() (Entry, bool) {
	if len(s.h) == 0 {
		return Entry{}, false
	}
	return s.h[0], len(s.h) == s.k
}

// Contains reports whether id has ever been inserted (dedup sets only).
func (s *Set) Contains(id uint32) bool {
	if !s.dedup {
		return false
	}
	_, ok := s.seen[id]
	return ok
}

// Insert attempts to add (score, id). It returns true if the entry was
// kept (either because the set wasn't full, or because it displaced the
// current worst entry). Insert rule (spec.md §4.4): if size < k, push;
// else if score is strictly less than the current max, replace and sift.
func (s *Set) Insert(score float32, id uint32) bool {
	if s.dedup {
		if _, ok := s.seen[id]; ok {
			return false
		}
	}
	e := Entry{Score: score, ID: id}
	switch {
	case len(s.h) < s.k:
		heap.Push(&s.h, e)
	case less(e, s.h[0]):
		s.h[0] = e
		heap.Fix(&s.h, 0)
	default:
		return false
	}
	if s.dedup {
		s.seen[id] = struct{}{}
	}
	return true
}

// Drain empties the set, returning its entries in ascending score order
// (smaller id wins ties). The Set is empty (Len()==0) after Drain but
// keeps its dedup membership, so an id drained once is still rejected by
// a later Insert.
func (s *Set) Drain() []Entry {
	out := make([]Entry, len(s.h))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&s.h).(Entry)
	}
	return out
}

// Snapshot returns the current entries in ascending order without
// draining the set.
func (s *Set) Snapshot() []Entry {
	cp := make(maxHeap, len(s.h))
	copy(cp, s.h)
	out := make([]Entry, len(cp))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&cp).(Entry)
	}
	return out
}

// less implements the max-heap ordering with the smaller-id-wins
// tie-break: e1 is "greater" (should sit nearer the root, i.e. be the
// eviction candidate) when its score is larger, or scores tie and its id
// is larger.
func less(e1, e2 Entry) bool {
	if e1.Score != e2.Score {
		return e1.Score < e2.Score
	}
	return e1.ID < e2.ID
}

// maxHeap is a container/heap.Interface over Entry, ordered so the
// largest score (ties broken by largest id) is at the root — the element
// Insert evicts first.
type maxHeap []Entry

func (h maxHeap) Len() int { return len(h) }
func (h maxHeap) Less(i, j int) bool {
	// Root should be the worst (largest score / largest id on tie), so
	// invert `less`.
	return less(h[j], h[i])
}
func (h maxHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) {
	*h = append(*h, x.(Entry))
}
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
