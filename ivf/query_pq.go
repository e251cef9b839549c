package ivf

import (
	"github.com/habedi/annvector/core"
	"github.com/habedi/annvector/matrix"
	"github.com/habedi/annvector/pq"
	"github.com/habedi/annvector/topk"
)

// QueryPQ implements spec.md §4.4's PQ-coded candidate-gather variant: the
// same probe-select-then-gather shape as Query, but scoring each candidate
// by its asymmetric PQ distance (query-to-codebook) instead of exact L2²
// against the raw vector. codes must be the PQ encoding of part's shuffled
// vectors, in the same column order (i.e. produced by quantizer.EncodeMatrix
// on part.ShuffledVectors), matching the persisted "PQ-coded equivalents"
// member spec.md §6 documents as an alternative to shuffled_vectors.
// Grounded on the teacher's pqivf/index.go Search: probe candidate
// clusters, gather entries, score each by its codebook-derived distance,
// keep the k best.
func QueryPQ(ctx *core.Context, centroids *matrix.Dense[float32], part *Partition, codes *matrix.Dense[uint8], quantizer *pq.Quantizer, queries *matrix.Dense[float32], k, nprobe int) (*Result, error) {
	const op = "ivf.QueryPQ"
	if k <= 0 {
		return nil, core.Invalid(op, "k must be positive, got %d", k)
	}
	if queries.Rows() != quantizer.Dimension() {
		return nil, core.Invalid(op, "query dimension %d does not match quantizer dimension %d", queries.Rows(), quantizer.Dimension())
	}
	if codes.Cols() != len(part.ShuffledIDs) {
		return nil, core.Invalid(op, "code count %d does not match partition size %d", codes.Cols(), len(part.ShuffledIDs))
	}

	probes, err := ProbeSelect(ctx, centroids, queries, nprobe)
	if err != nil {
		return nil, err
	}

	codebookSize := quantizer.CodebookSize()
	nq := queries.Cols()
	resultIDs := matrix.NewDense[uint32](k, nq)
	resultScores := matrix.NewDense[float32](k, nq)

	err = ctx.Parallel(nq, func(start, end int) error {
		for q := start; q < end; q++ {
			query := queries.Column(q)
			table, err := quantizer.AsymmetricTable(query)
			if err != nil {
				return err
			}

			set := topk.NewSet(k, false)
			for _, c := range probes[q] {
				lo, hi := part.Offsets[c], part.Offsets[c+1]
				for j := lo; j < hi; j++ {
					score := pq.AsymmetricDistance(table, codebookSize, codes.Column(int(j)))
					set.Insert(score, part.ShuffledIDs[j])
				}
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
