package vamana

import (
	"sort"

	roaring "github.com/RoaringBitmap/roaring/v2"

	"github.com/habedi/annvector/kernel"
	"github.com/habedi/annvector/matrix"
)

// RobustPrune implements spec.md §4.5's RobustPrune: given a candidate
// set V (typically the visited set from a GreedySearch call) plus p's
// current out-neighbors, greedily selects a diverse bounded neighborhood
// of at most R edges under slack α, and installs it as p's new
// out-edge list. Grounded on
// `other_examples/hyper-light-sylk__graph.go`'s robustPruneLocal
// occlusion-factor loop, generalized from that file's Hamming-distance,
// single-α variant to spec.md's L2² distance with the explicit
// "remove every p' with α·L2²(p*,p') ≤ score(p',p)" elimination rule
// rather than an accumulated occlusion-factor threshold.
func RobustPrune(g *Graph, vectors matrix.ColumnSource[float32], p uint32, v *roaring.Bitmap, alpha float32, r int) {
	working := buildWorkingSet(g, vectors, p, v)
	g.SetOutEdges(p, nil)

	var kept []Edge
	for len(working) > 0 {
		sort.Slice(working, func(i, j int) bool {
			if working[i].Score != working[j].Score {
				return working[i].Score < working[j].Score
			}
			return working[i].ID < working[j].ID
		})
		pStar := working[0]
		kept = append(kept, pStar)
		if len(kept) >= r {
			break
		}

		remaining := working[1:]
		pStarVec := vectors.Column(int(pStar.ID))
		next := working[:0]
		for _, candidate := range remaining {
			candidateVec := vectors.Column(int(candidate.ID))
			d := kernel.SquaredEuclidean(pStarVec, candidateVec)
			if alpha*d <= candidate.Score {
				continue // eliminated: p* occludes this candidate
			}
			next = append(next, candidate)
		}
		working = next
	}

	g.SetOutEdges(p, kept)
}

// buildWorkingSet assembles W = (V ∪ out_neighbors(p)) \ {p}, each
// annotated with its squared-Euclidean score against p (spec.md §4.5
// RobustPrune precondition).
func buildWorkingSet(g *Graph, vectors matrix.ColumnSource[float32], p uint32, v *roaring.Bitmap) []Edge {
	pVec := vectors.Column(int(p))
	seen := make(map[uint32]struct{})
	var working []Edge

	add := func(id uint32) {
		if id == p {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		score := kernel.SquaredEuclidean(pVec, vectors.Column(int(id)))
		working = append(working, Edge{Score: score, ID: id})
	}

	it := v.Iterator()
	for it.HasNext() {
		add(it.Next())
	}
	for _, e := range g.OutEdges(p) {
		add(e.ID)
	}
	return working
}
