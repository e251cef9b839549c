package ivf

import (
	"github.com/habedi/annvector/core"
	"github.com/habedi/annvector/kernel"
	"github.com/habedi/annvector/matrix"
	"github.com/habedi/annvector/topk"
)

// BruteForce scans the full corpus for every query, supplementing the
// spec per SPEC_FULL.md §12 from original_source/src/src/ivf_flat.cc's
// direct (non-inverted) variant. It exists so the recall tests (spec.md
// §8 scenario 3/4) have an exact ground truth without hand-rolling a
// second top-k implementation just for tests.
func BruteForce(ctx *core.Context, corpus, queries *matrix.Dense[float32], k int) (*Result, error) {
	const op = "ivf.BruteForce"
	if k <= 0 {
		return nil, core.Invalid(op, "k must be positive, got %d", k)
	}
	if corpus.Cols() == 0 {
		return nil, core.Invalid(op, "empty corpus")
	}
	if queries.Rows() != corpus.Rows() {
		return nil, core.Invalid(op, "query dimension %d does not match corpus dimension %d", queries.Rows(), corpus.Rows())
	}

	nq := queries.Cols()
	resultIDs := matrix.NewDense[uint32](k, nq)
	resultScores := matrix.NewDense[float32](k, nq)

	err := ctx.Parallel(nq, func(start, end int) error {
		for q := start; q < end; q++ {
			set := topk.NewSet(k, false)
			query := queries.Column(q)
			for i := 0; i < corpus.Cols(); i++ {
				score := kernel.SquaredEuclidean(query, corpus.Column(i))
				set.Insert(score, uint32(i))
			}
			entries := set.Drain()
			idCol := resultIDs.Column(q)
			scoreCol := resultScores.Column(q)
			for i, e := range entries {
				idCol[i] = e.ID
				scoreCol[i] = e.Score
			}
			for i := len(entries); i < k; i++ {
				idCol[i] = InvalidID
				scoreCol[i] = 0
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{IDs: resultIDs, Scores: resultScores}, nil
}
