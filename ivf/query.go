package ivf

import (
	"github.com/habedi/annvector/core"
	"github.com/habedi/annvector/kernel"
	"github.com/habedi/annvector/matrix"
	"github.com/habedi/annvector/topk"
)

// Result is the top-k output of a query batch: column j holds the top-k
// ids/scores for query j, in ascending score order (spec.md §4.4 step 3).
type Result struct {
	IDs    *matrix.Dense[uint32]
	Scores *matrix.Dense[float32]
}

// ProbeSelect implements spec.md §4.4's probe selection: for each query
// column, the nprobe nearest centroid ids, itself a top-k selection via a
// bounded min-set.
func ProbeSelect(ctx *core.Context, centroids *matrix.Dense[float32], queries *matrix.Dense[float32], nprobe int) ([][]uint32, error) {
	const op = "ivf.ProbeSelect"
	k := centroids.Cols()
	if nprobe <= 0 {
		return nil, core.Invalid(op, "nprobe must be positive, got %d", nprobe)
	}
	if nprobe > k {
		return nil, core.Invalid(op, "nprobe=%d exceeds cluster count K=%d", nprobe, k)
	}
	nq := queries.Cols()
	centroidCols := make([][]float32, k)
	for c := 0; c < k; c++ {
		centroidCols[c] = centroids.Column(c)
	}
	centroidNormSq := kernel.SumSquares(centroidCols)

	probes := make([][]uint32, nq)
	err := ctx.Parallel(nq, func(start, end int) error {
		for q := start; q < end; q++ {
			set := topk.NewSet(nprobe, false)
			scores := kernel.BatchSquaredEuclidean(queries.Column(q), centroidCols, centroidNormSq)
			for c, s := range scores {
				set.Insert(s, uint32(c))
			}
			entries := set.Drain()
			ids := make([]uint32, len(entries))
			for i, e := range entries {
				ids[i] = e.ID
			}
			probes[q] = ids
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return probes, nil
}

// Query implements the infinite-RAM IVF variant of spec.md §4.4:
// preconditions are that part's shuffled vectors/ids/offsets are all
// resident, which is always true for an in-memory *Partition. Each query
// probes nprobe clusters, gathers every candidate in those clusters, and
// keeps the k best by squared Euclidean distance.
func Query(ctx *core.Context, centroids *matrix.Dense[float32], part *Partition, queries *matrix.Dense[float32], k, nprobe int) (*Result, error) {
	const op = "ivf.Query"
	if k <= 0 {
		return nil, core.Invalid(op, "k must be positive, got %d", k)
	}
	if queries.Rows() != part.ShuffledVectors.Rows() {
		return nil, core.Invalid(op, "query dimension %d does not match corpus dimension %d", queries.Rows(), part.ShuffledVectors.Rows())
	}

	probes, err := ProbeSelect(ctx, centroids, queries, nprobe)
	if err != nil {
		return nil, err
	}

	nq := queries.Cols()
	resultIDs := matrix.NewDense[uint32](k, nq)
	resultScores := matrix.NewDense[float32](k, nq)

	err = ctx.Parallel(nq, func(start, end int) error {
		for q := start; q < end; q++ {
			set := topk.NewSet(k, false)
			query := queries.Column(q)
			for _, c := range probes[q] {
				lo, hi := part.Offsets[c], part.Offsets[c+1]
				for j := lo; j < hi; j++ {
					score := kernel.SquaredEuclidean(query, part.ShuffledVectors.Column(int(j)))
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
			// Fewer than k candidates total (e.g. tiny corpus): pad the
			// remaining slots of this column with an invalid id so callers can detect
			// short results rather than reading stale zero-valued slots.
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

// InvalidID marks a top-k slot with no candidate (corpus smaller than k).
const InvalidID = ^uint32(0)
