package vamana

import (
	"testing"

	"github.com/habedi/annvector/core"
	"github.com/habedi/annvector/ivf"
)

// TestVamanaRecall is a reduced-scale analog of scenario 4 from spec.md
// §8: build a Vamana graph over a synthetic corpus with L=15, R=12, and
// check that queries reach recall >= 0.70 against exact brute force (a
// reduced-scale bar below the full-scale scenario's 0.85).
// The corpus is smaller than the spec's 10,000-vector fixture to keep
// the test fast; the pack does not carry the concrete diskann fixture
// data scenario 2/4/5 name, so this substitutes an equivalent synthetic,
// reproducible check of the same property.
func TestVamanaRecall(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping recall test in short mode")
	}
	corpus := randomVamanaCorpus(7, 32, 2000)
	queries := randomVamanaCorpus(8, 32, 50)

	ctx := core.NewContext(9)
	g, medoid, err := Train(ctx, corpus, Config{L: 15, R: 12, AlphaMax: 1.2})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	const k = 10
	truth, err := ivf.BruteForce(ctx, corpus, queries, k)
	if err != nil {
		t.Fatalf("ivf.BruteForce: %v", err)
	}

	var totalHits, totalWant int
	for q := 0; q < queries.Cols(); q++ {
		result, err := GreedySearch(g, corpus, medoid, queries.Column(q), k, 15)
		if err != nil {
			t.Fatalf("GreedySearch: %v", err)
		}
		wantSet := make(map[uint32]struct{}, k)
		for i := 0; i < k; i++ {
			id := truth.IDs.Column(q)[i]
			if id != ivf.InvalidID {
				wantSet[id] = struct{}{}
			}
		}
		totalWant += len(wantSet)
		for _, n := range result.Neighbors {
			if _, ok := wantSet[n.ID]; ok {
				totalHits++
			}
		}
	}

	recall := float64(totalHits) / float64(totalWant)
	if recall < 0.70 {
		t.Fatalf("recall@%d = %.3f, want >= 0.70 (reduced-scale bar; spec's full-scale bar is 0.85)", k, recall)
	}
}
