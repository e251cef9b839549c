// Package kernel implements the distance primitives spec.md §2 calls
// "Distance kernels": squared Euclidean distance, column-wise
// sum-of-squares, and an optional GEMM-accelerated batched variant.
// Every other package in this module computes distance through kernel
// rather than inlining a loop, so the scalar/accelerated choice (core.HasAccel)
// is made in exactly one place.
package kernel

import "github.com/habedi/annvector/core"

// SquaredEuclidean computes L2²(a, b), the only distance metric this
// module's algorithms use (spec.md §1 Non-goals excludes other metrics).
// It dispatches to the accelerated path when available and the vectors
// are long enough to amortize the call overhead, else the scalar loop.
func SquaredEuclidean(a, b []float32) float32 {
	if accelEnabled && len(a) >= accelMinDim {
		return squaredEuclideanAccel(a, b)
	}
	return squaredEuclideanScalar(a, b)
}

func squaredEuclideanScalar(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// SumSquares returns the column-wise sum of squares of a matrix, i.e.
// ||col||² for every column — the per-column self dot-product spec.md §2
// lists alongside squared Euclidean as a core distance kernel (it is the
// term that lets ||a-b||² be expanded as ||a||² + ||b||² - 2·a·b for a
// batched/GEMM distance computation).
func SumSquares(cols [][]float32) []float32 {
	out := make([]float32, len(cols))
	for i, c := range cols {
		var s float32
		for _, v := range c {
			s += v * v
		}
		out[i] = s
	}
	return out
}

// NearestColumn returns the index of the column in candidates nearest to
// query under SquaredEuclidean, and that distance. Ties keep the
// earliest (lowest-index) candidate, matching topk's smaller-id-wins rule.
func NearestColumn(query []float32, candidates [][]float32) (int, float32) {
	if len(candidates) == 0 {
		return -1, 0
	}
	best := 0
	bestDist := SquaredEuclidean(query, candidates[0])
	for i := 1; i < len(candidates); i++ {
		d := SquaredEuclidean(query, candidates[i])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best, bestDist
}

// HasAccel reports whether the accelerated kernel path is active,
// exported for callers (e.g. tests) that want to assert on which path
// ran.
func HasAccel() bool { return accelEnabled }

// accelMinDim is the dimension below which the accelerated dot-product
// path's function-call and norm-computation overhead outweighs its
// throughput gain over the plain scalar loop.
const accelMinDim = 32

var accelEnabled = core.HasAccel()
