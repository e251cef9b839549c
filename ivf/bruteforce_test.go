package ivf

import (
	"testing"

	"github.com/habedi/annvector/core"
	"github.com/habedi/annvector/kernel"
)

func TestBruteForceMatchesDirectScan(t *testing.T) {
	ctx := core.NewContext(4)
	corpus := randomCorpus(1, 8, 200)
	queries := randomCorpus(2, 8, 5)

	const k = 5
	result, err := BruteForce(ctx, corpus, queries, k)
	if err != nil {
		t.Fatalf("BruteForce: %v", err)
	}

	for q := 0; q < queries.Cols(); q++ {
		query := queries.Column(q)
		best := kernel.SquaredEuclidean(query, corpus.Column(int(result.IDs.Column(q)[0])))
		for i := 0; i < corpus.Cols(); i++ {
			d := kernel.SquaredEuclidean(query, corpus.Column(i))
			if d < best {
				t.Fatalf("query %d: found closer vector %d (dist %f) than reported nearest (dist %f)", q, i, d, best)
			}
		}
		for i := 1; i < k; i++ {
			if result.Scores.Column(q)[i] < result.Scores.Column(q)[i-1] {
				t.Fatalf("query %d: scores not ascending at slot %d", q, i)
			}
		}
	}
}

func TestBruteForceRejectsEmptyCorpus(t *testing.T) {
	ctx := core.NewContext(1)
	corpus := randomCorpus(1, 4, 0)
	queries := randomCorpus(2, 4, 3)
	_, err := BruteForce(ctx, corpus, queries, 2)
	if !core.IsKind(err, core.KindInvalidArgument) {
		t.Fatalf("expected KindInvalidArgument, got %v", err)
	}
}
