package ivf

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/habedi/annvector/core"
	"github.com/habedi/annvector/kernel"
	"github.com/habedi/annvector/matrix"
	"github.com/habedi/annvector/topk"
)

// block is a contiguous run of clusters packed together under the
// finite-RAM budget B.
type block struct {
	clusterStart, clusterEnd int   // [start, end) cluster id range
	vectorStart, vectorEnd   int32 // [start, end) position range in the shuffled layout
}

// planBlocks packs clusters [0,K) into blocks whose cumulative vector
// count does not exceed blockSize, splitting only at a cluster boundary.
// A cluster larger than blockSize is its own oversized block — spec.md
// §4.4/§9's adopted resolution to the open question of what happens when
// a single cluster exceeds B.
func planBlocks(offsets []int32, blockSize int) []block {
	k := len(offsets) - 1
	var blocks []block
	c := 0
	for c < k {
		start := c
		cum := int(offsets[c+1] - offsets[c])
		end := c + 1
		for end < k {
			next := int(offsets[end+1] - offsets[end])
			if cum+next > blockSize {
				break
			}
			cum += next
			end++
		}
		blocks = append(blocks, block{
			clusterStart: start, clusterEnd: end,
			vectorStart: offsets[start], vectorEnd: offsets[end],
		})
		c = end
	}
	return blocks
}

// QueryFinite implements the block-scheduled IVF variant of spec.md §4.4.
// Partitions are packed into blocks of at most blockSize vectors
// (oversize clusters excepted), and each block acquires weight equal to
// its vector count from a semaphore.Weighted budget of blockSize before
// it is scored, so the blocks scored at the same time never cover more
// than blockSize vectors. The vectors themselves are read from part's
// in-memory shuffled layout: part.ShuffledVectors stays fully resident for
// the whole call, and no block is loaded from or released to storage.
// The final drain is identical to Query's, and for any
// blockSize ≥ the largest cluster the result is the same set of ids per
// query as the infinite-RAM variant (spec.md §8's block-size invariance
// law).
func QueryFinite(ctx *core.Context, centroids *matrix.Dense[float32], part *Partition, queries *matrix.Dense[float32], k, nprobe, blockSize int) (*Result, error) {
	const op = "ivf.QueryFinite"
	if k <= 0 {
		return nil, core.Invalid(op, "k must be positive, got %d", k)
	}
	if blockSize <= 0 {
		return nil, core.Invalid(op, "blockSize must be positive, got %d", blockSize)
	}
	if queries.Rows() != part.ShuffledVectors.Rows() {
		return nil, core.Invalid(op, "query dimension %d does not match corpus dimension %d", queries.Rows(), part.ShuffledVectors.Rows())
	}

	probes, err := ProbeSelect(ctx, centroids, queries, nprobe)
	if err != nil {
		return nil, err
	}
	nq := queries.Cols()

	// Invert: for each cluster, the queries that probe it.
	clusterQueries := make([][]uint32, part.K)
	for q, ids := range probes {
		for _, c := range ids {
			clusterQueries[c] = append(clusterQueries[c], uint32(q))
		}
	}

	sets := make([]*topk.Set, nq)
	locks := make([]sync.Mutex, nq)
	for q := range sets {
		sets[q] = topk.NewSet(k, false)
	}

	blocks := planBlocks(part.Offsets, blockSize)
	ctx.Logger.Info().Msgf("ivf: streaming %d blocks over %d clusters, blockSize=%d", len(blocks), part.K, blockSize)
	sem := semaphore.NewWeighted(int64(blockSize))
	bgCtx := context.Background()
	g, gctx := errgroup.WithContext(bgCtx)

	var blocksDone atomic.Int64
	for _, blk := range blocks {
		blk := blk
		weight := int64(blk.vectorEnd - blk.vectorStart)
		if weight > int64(blockSize) {
			// Oversize cluster: clamp the acquired weight to the full
			// budget rather than deadlocking on an unsatisfiable
			// request; this block runs alone, holding the entire budget
			// for its duration.
			weight = int64(blockSize)
		}
		g.Go(func() error {
			if err := sem.Acquire(gctx, weight); err != nil {
				return err
			}
			defer sem.Release(weight)
			defer func() {
				done := blocksDone.Add(1)
				ctx.Logger.Debug().Msgf("ivf: block %d/%d resident", done, len(blocks))
			}()
			for c := blk.clusterStart; c < blk.clusterEnd; c++ {
				qs := clusterQueries[c]
				if len(qs) == 0 {
					continue
				}
				lo, hi := part.Offsets[c], part.Offsets[c+1]
				for _, q := range qs {
					query := queries.Column(int(q))
					locks[q].Lock()
					for j := lo; j < hi; j++ {
						score := kernel.SquaredEuclidean(query, part.ShuffledVectors.Column(int(j)))
						sets[q].Insert(score, part.ShuffledIDs[j])
					}
					locks[q].Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resultIDs := matrix.NewDense[uint32](k, nq)
	resultScores := matrix.NewDense[float32](k, nq)
	for q := 0; q < nq; q++ {
		entries := sets[q].Drain()
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

	return &Result{IDs: resultIDs, Scores: resultScores}, nil
}
