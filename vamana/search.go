package vamana

import (
	roaring "github.com/RoaringBitmap/roaring/v2"

	"github.com/habedi/annvector/core"
	"github.com/habedi/annvector/kernel"
	"github.com/habedi/annvector/matrix"
	"github.com/habedi/annvector/topk"
)

// SearchResult is the output of GreedySearch: the top-k candidates in
// ascending score order as shared core.Neighbor pairs, plus the full
// visited set RobustPrune needs.
type SearchResult struct {
	Neighbors []core.Neighbor
	Visited   *roaring.Bitmap
}

// adjacency is satisfied by both *Graph (build time) and *Arena (query
// time against a persisted graph), letting GreedySearch run identically
// against either.
type adjacency interface {
	OutNeighbors(v uint32) []uint32
}

// GreedySearch implements spec.md §4.5's GreedySearch: best-first search
// from source toward query, maintaining a bounded result set of capacity
// L and a frontier of unvisited result members. Grounded on the shape of
// `other_examples/hyper-light-sylk__graph.go`'s greedySearchLocal
// (priority-queue-driven expansion with a visited bitset) generalized
// from a local Hamming-distance search over a partition to the spec's
// global L2² search over the full corpus, and using
// `github.com/RoaringBitmap/roaring/v2` in place of that file's raw
// []uint64 bitset for the visited set.
func GreedySearch(g adjacency, vectors matrix.ColumnSource[float32], source uint32, query []float32, k, l int) (*SearchResult, error) {
	const op = "vamana.GreedySearch"
	if k <= 0 {
		return nil, core.Invalid(op, "k must be positive, got %d", k)
	}
	if l < k {
		return nil, core.Invalid(op, "L=%d must be >= k=%d", l, k)
	}
	if vectors.NumColumns() == 0 {
		return nil, core.Invalid(op, "empty corpus")
	}

	result := topk.NewSet(l, true)
	visited := roaring.New()

	srcScore := kernel.SquaredEuclidean(vectors.Column(int(source)), query)
	result.Insert(srcScore, source)

	for {
		pStar, ok := closestUnvisited(result, visited)
		if !ok {
			break
		}
		visited.Add(pStar)

		for _, n := range g.OutNeighbors(pStar) {
			if visited.Contains(n) {
				continue
			}
			score := kernel.SquaredEuclidean(vectors.Column(int(n)), query)
			result.Insert(score, n)
		}
	}

	entries := result.Snapshot()
	if len(entries) > k {
		entries = entries[:k]
	}
	neighbors := make([]core.Neighbor, len(entries))
	for i, e := range entries {
		neighbors[i] = core.Neighbor{ID: e.ID, Score: e.Score}
	}
	return &SearchResult{Neighbors: neighbors, Visited: visited}, nil
}

// closestUnvisited implements spec.md §4.5's frontier step: the smallest
// score element of (result \ visited). Rebuilt from a snapshot each call
// rather than maintained incrementally, one of the two strategies the
// spec explicitly allows.
func closestUnvisited(result *topk.Set, visited *roaring.Bitmap) (uint32, bool) {
	for _, e := range result.Snapshot() {
		if !visited.Contains(e.ID) {
			return e.ID, true
		}
	}
	return 0, false
}
