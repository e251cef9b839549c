// Package ivf implements the IVF partitioner and query engine of
// spec.md §4.2 and §4.4: nearest-centroid assignment and the contiguous
// shuffled layout, then both the infinite-RAM (all partitions resident)
// and finite-RAM (block-streamed, RAM-budgeted) query variants.
package ivf

import (
	"github.com/habedi/annvector/core"
	"github.com/habedi/annvector/kernel"
	"github.com/habedi/annvector/matrix"
)

// Partition is the shuffled layout of spec.md §3: the corpus permuted so
// every cluster's members are contiguous, plus the bookkeeping needed to
// map back to original ids.
type Partition struct {
	K          int
	Assignment []int32 // per original corpus id, assignment[i] ∈ [0, K)
	Sizes      []int32 // K, count per cluster
	Offsets    []int32 // K+1, Offsets[0]=0, Offsets[K]=N

	ShuffledVectors *matrix.Dense[float32] // (D, N), columns grouped by cluster
	ShuffledIDs     []uint32               // ShuffledIDs[j] = original id now at position j
}

// BuildPartition implements spec.md §4.2: nearest-centroid assignment,
// prefix-sum offsets, and the two-pass shuffle into contiguous clusters.
func BuildPartition(ctx *core.Context, centroids, corpus *matrix.Dense[float32]) (*Partition, error) {
	const op = "ivf.BuildPartition"
	k := centroids.Cols()
	n := corpus.Cols()
	d := corpus.Rows()
	if n == 0 {
		return nil, core.Invalid(op, "empty corpus")
	}
	if k == 0 {
		return nil, core.Invalid(op, "empty centroid set")
	}
	if centroids.Rows() != d {
		return nil, core.Invalid(op, "centroid dimension %d does not match corpus dimension %d", centroids.Rows(), d)
	}

	assignment := make([]int32, n)
	centroidCols := make([][]float32, k)
	for c := 0; c < k; c++ {
		centroidCols[c] = centroids.Column(c)
	}
	centroidNormSq := kernel.SumSquares(centroidCols)

	// Phase 1: nearest-centroid search, embarrassingly parallel per
	// column (spec.md §4.2 step 1).
	err := ctx.Parallel(n, func(start, end int) error {
		for i := start; i < end; i++ {
			scores := kernel.BatchSquaredEuclidean(corpus.Column(i), centroidCols, centroidNormSq)
			best := 0
			for c := 1; c < len(scores); c++ {
				if scores[c] < scores[best] {
					best = c
				}
			}
			assignment[i] = int32(best)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// sizes + offsets (spec.md §4.2 step 2): exclusive prefix sum with a
	// trailing total.
	sizes := make([]int32, k)
	for _, c := range assignment {
		sizes[c]++
	}
	offsets := make([]int32, k+1)
	for c := 0; c < k; c++ {
		offsets[c+1] = offsets[c] + sizes[c]
	}

	// Phase 2: two-pass shuffle (spec.md §4.2 step 3). Cursors start at
	// Offsets; they are a separate copy, so Offsets itself is never
	// advanced and needs no restoring.
	cursors := make([]int32, k)
	copy(cursors, offsets[:k])

	shuffled := matrix.NewDense[float32](d, n)
	shuffledIDs := make([]uint32, n)
	for i := 0; i < n; i++ {
		c := assignment[i]
		pos := cursors[c]
		shuffled.SetColumn(int(pos), corpus.Column(i))
		shuffledIDs[pos] = uint32(i)
		cursors[c]++
	}

	ctx.Logger.Info().Msgf("ivf: built partition K=%d N=%d", k, n)

	return &Partition{
		K:               k,
		Assignment:      assignment,
		Sizes:           sizes,
		Offsets:         offsets,
		ShuffledVectors: shuffled,
		ShuffledIDs:     shuffledIDs,
	}, nil
}

// Stats reports introspection data about the partitioned corpus.
func (p *Partition) Stats() core.IndexStats {
	return core.IndexStats{Count: len(p.ShuffledIDs), Dimension: p.ShuffledVectors.Rows()}
}

// Insert is a stub: spec.md §1 names online insert against the IVF index
// as an explicit Non-goal, "present only as stubs". A Partition is built
// once by BuildPartition and queried read-only; there is no incremental
// maintenance path.
func (p *Partition) Insert(id uint32, vector []float32) error {
	return core.Unsupported("ivf.Partition.Insert", "online insert is not supported; rebuild the partition instead")
}

// Delete is a stub, see Insert.
func (p *Partition) Delete(id uint32) error {
	return core.Unsupported("ivf.Partition.Delete", "online delete is not supported; rebuild the partition instead")
}
