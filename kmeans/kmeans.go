// Package kmeans implements the trainer from spec.md §4.1: seeding
// (random / k-means++ / none) followed by a fixed number of Lloyd
// iterations with parallel partition assignment, grounded on the
// teacher's pqivf.trainSubquantizer (seed-by-permutation, empty-cluster
// reinit) generalized to all three seeding modes and to an errgroup-driven
// parallel assign/accumulate split instead of a single-goroutine loop.
package kmeans

import (
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/habedi/annvector/core"
	"github.com/habedi/annvector/kernel"
	"github.com/habedi/annvector/matrix"
)

// InitMode selects how centroids are seeded (spec.md §4.1).
type InitMode int

const (
	// InitRandom picks K training columns uniformly at random, with
	// replacement allowed (matching the source's behavior).
	InitRandom InitMode = iota
	// InitKMeansPP seeds centroids with the k-means++ distance-weighted
	// sampling scheme.
	InitKMeansPP
	// InitNone uses caller-supplied centroids as-is; Train requires
	// Config.InitialCentroids to be set.
	InitNone
)

// Config configures a Train call.
type Config struct {
	K       int // cluster count
	MaxIter int // Lloyd iterations to run, unconditionally (see Tolerance)
	// Tolerance is accepted for forward compatibility but never consulted:
	// the source runs MaxIter Lloyd iterations regardless of convergence,
	// and spec.md §9 leaves early-termination an open question rather
	// than a decided behavior, so this field stays reserved.
	Tolerance float32
	Init      InitMode
	// InitialCentroids is required when Init == InitNone and ignored
	// otherwise.
	InitialCentroids *matrix.Dense[float32]
}

// Train runs k-means on a (D, N_t) training matrix and returns a (D, K)
// centroid matrix. K > N_t is rejected as invalid per spec.md §4.1.
func Train(ctx *core.Context, data *matrix.Dense[float32], cfg Config) (*matrix.Dense[float32], error) {
	const op = "kmeans.Train"
	d := data.Rows()
	nt := data.Cols()
	if cfg.K <= 0 {
		return nil, core.Invalid(op, "K must be positive, got %d", cfg.K)
	}
	if cfg.K > nt {
		return nil, core.Invalid(op, "K=%d exceeds training set size N_t=%d", cfg.K, nt)
	}
	if nt == 0 {
		return nil, core.Invalid(op, "empty training set")
	}

	centroids, err := seed(ctx, data, cfg)
	if err != nil {
		return nil, err
	}

	assignment := make([]int32, nt)
	workers := ctx.WorkerCount()
	if workers > nt {
		workers = nt
	}
	if workers < 1 {
		workers = 1
	}

	ctx.Logger.Info().Msgf("kmeans: training K=%d MaxIter=%d N_t=%d init=%d", cfg.K, cfg.MaxIter, nt, cfg.Init)

	for iter := 0; iter < cfg.MaxIter; iter++ {
		ctx.Logger.Debug().Msgf("kmeans: iteration %d/%d", iter+1, cfg.MaxIter)
		centroidCols := columnSlices(centroids)
		centroidNormSq := kernel.SumSquares(centroidCols)

		// Assign: parallel nearest-centroid search, chunked over the
		// training column index space (spec.md §4.1 step 1).
		chunk := (nt + workers - 1) / workers
		g := &errgroup.Group{}
		for w := 0; w < workers; w++ {
			start := w * chunk
			end := start + chunk
			if start >= nt {
				break
			}
			if end > nt {
				end = nt
			}
			g.Go(func() error {
				for i := start; i < end; i++ {
					scores := kernel.BatchSquaredEuclidean(data.Column(i), centroidCols, centroidNormSq)
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
		}
		_ = g.Wait() // assignment goroutines never return an error

		// Accumulate: per-thread private sums/counts (spec.md §4.1 step
		// 2), reduced sequentially after the parallel region.
		type accum struct {
			sums   []float32 // K*D
			counts []int32   // K
		}
		partials := make([]accum, workers)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			start := w * chunk
			end := start + chunk
			if start >= nt {
				partials[w] = accum{}
				continue
			}
			if end > nt {
				end = nt
			}
			partials[w] = accum{sums: make([]float32, cfg.K*d), counts: make([]int32, cfg.K)}
			wg.Add(1)
			go func(w, start, end int) {
				defer wg.Done()
				p := &partials[w]
				for i := start; i < end; i++ {
					c := assignment[i]
					col := data.Column(i)
					base := int(c) * d
					for j, v := range col {
						p.sums[base+j] += v
					}
					p.counts[c]++
				}
			}(w, start, end)
		}
		wg.Wait()

		totalSums := make([]float32, cfg.K*d)
		totalCounts := make([]int32, cfg.K)
		for _, p := range partials {
			if p.counts == nil {
				continue
			}
			for i := range p.sums {
				totalSums[i] += p.sums[i]
			}
			for c := range p.counts {
				totalCounts[c] += p.counts[c]
			}
		}

		// Normalize: zero-count clusters retain their previous centroid
		// value (spec.md §4.1 step 3).
		newData := centroids.Data()
		for c := 0; c < cfg.K; c++ {
			if totalCounts[c] == 0 {
				continue
			}
			base := c * d
			inv := 1.0 / float32(totalCounts[c])
			for j := 0; j < d; j++ {
				newData[base+j] = totalSums[base+j] * inv
			}
		}
	}

	return centroids, nil
}

// columnSlices materializes borrowed column views for every column of m,
// the shape kernel.BatchSquaredEuclidean and kernel.NearestColumn expect.
func columnSlices(m *matrix.Dense[float32]) [][]float32 {
	cols := make([][]float32, m.Cols())
	for i := range cols {
		cols[i] = m.Column(i)
	}
	return cols
}

func seed(ctx *core.Context, data *matrix.Dense[float32], cfg Config) (*matrix.Dense[float32], error) {
	const op = "kmeans.seed"
	d := data.Rows()
	nt := data.Cols()

	switch cfg.Init {
	case InitNone:
		if cfg.InitialCentroids == nil {
			return nil, core.Invalid(op, "Init=InitNone requires InitialCentroids to be set")
		}
		if cfg.InitialCentroids.Rows() != d || cfg.InitialCentroids.Cols() != cfg.K {
			return nil, core.Invalid(op, "InitialCentroids shape (%d,%d) does not match (%d,%d)",
				cfg.InitialCentroids.Rows(), cfg.InitialCentroids.Cols(), d, cfg.K)
		}
		return cfg.InitialCentroids.Clone(), nil

	case InitRandom:
		rng := ctx.RandFor("kmeans.seed.random")
		centroids := matrix.NewDense[float32](d, cfg.K)
		for c := 0; c < cfg.K; c++ {
			idx := rng.Intn(nt)
			centroids.SetColumn(c, data.Column(idx))
		}
		return centroids, nil

	case InitKMeansPP:
		return seedKMeansPP(ctx, data, cfg.K)

	default:
		return nil, core.Invalid(op, "unknown init mode %d", cfg.Init)
	}
}

// seedKMeansPP implements the k-means++ distance-weighted sampling
// scheme of spec.md §4.1: centroid 0 uniform, each subsequent centroid
// sampled proportional to its squared distance to the nearest
// already-chosen centroid, updated incrementally against only the most
// recently added centroid.
func seedKMeansPP(ctx *core.Context, data *matrix.Dense[float32], k int) (*matrix.Dense[float32], error) {
	d := data.Rows()
	nt := data.Cols()
	rng := ctx.RandFor("kmeans.seed.kmeanspp")

	centroids := matrix.NewDense[float32](d, k)
	first := rng.Intn(nt)
	centroids.SetColumn(0, data.Column(first))

	dist := make([]float32, nt)
	for j := 0; j < nt; j++ {
		dist[j] = kernel.SquaredEuclidean(data.Column(j), centroids.Column(0))
	}
	dist[first] = 0

	for i := 1; i < k; i++ {
		chosen := weightedSample(rng, dist)
		centroids.SetColumn(i, data.Column(chosen))
		newCentroid := centroids.Column(i)
		for j := 0; j < nt; j++ {
			d2 := kernel.SquaredEuclidean(data.Column(j), newCentroid)
			if d2 < dist[j] {
				dist[j] = d2
			}
		}
		dist[chosen] = 0
	}
	return centroids, nil
}

// weightedSample draws an index from [0, len(weights)) with probability
// proportional to weights[i]. If all weights are zero (degenerate, e.g.
// fewer distinct points than K), it falls back to uniform sampling.
func weightedSample(rng *rand.Rand, weights []float32) int {
	var total float64
	for _, w := range weights {
		total += float64(w)
	}
	if total <= 0 {
		return rng.Intn(len(weights))
	}
	r := rng.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += float64(w)
		if r <= cum {
			return i
		}
	}
	return len(weights) - 1
}
