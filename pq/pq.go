// Package pq implements spec.md §4.3's product quantizer: per-subspace
// codebook training, vector encoding, and asymmetric/symmetric distance
// tables. Training is plain per-subspace k-means directly on corpus
// subspace slices (spec.md §4.3), not the teacher's residual-based
// variant which quantizes cluster residuals.
package pq

import (
	"fmt"

	"github.com/habedi/annvector/core"
	"github.com/habedi/annvector/kernel"
	"github.com/habedi/annvector/kmeans"
	"github.com/habedi/annvector/matrix"
)

// Config controls codebook training (spec.md §4.3).
type Config struct {
	NumSubspaces    int // M, must divide the input dimension
	BitsPerSubspace int // b, codebook size per subspace is 2^b
	MaxIter         int // Lloyd iterations per subspace
	Init            kmeans.InitMode
}

// Quantizer holds the trained per-subspace codebooks plus the geometry
// needed to split a vector into subspaces and encode/decode it.
type Quantizer struct {
	dimension    int
	numSubspaces int
	subWidth     int
	codebookSize int // C_sub = 2^b

	// codebooks[m] is a (subWidth, codebookSize) matrix: column c is the
	// c-th prototype sub-vector for subspace m.
	codebooks []*matrix.Dense[float32]

	// symmetric[m] is a flattened codebookSize x codebookSize table:
	// symmetric[m][c1*codebookSize+c2] = L2²(codebook_m[:,c1], codebook_m[:,c2]).
	symmetric [][]float32
}

func codebookSize(bitsPerSubspace int) int {
	return 1 << uint(bitsPerSubspace)
}

// Train implements spec.md §4.3's training step: split the training
// matrix into M equal-width subspaces and run k-means independently on
// each subspace's projection, producing one codebook per subspace.
// Grounded on the teacher's pqivf/index.go Train/trainSubquantizer loop
// over subquantizers, generalized from residuals to raw subspace slices
// and from a package-global RNG to an explicit per-subspace sub-seed.
func Train(ctx *core.Context, data *matrix.Dense[float32], cfg Config) (*Quantizer, error) {
	const op = "pq.Train"
	d := data.Rows()
	if cfg.NumSubspaces <= 0 {
		return nil, core.Invalid(op, "numSubspaces must be positive, got %d", cfg.NumSubspaces)
	}
	if d%cfg.NumSubspaces != 0 {
		return nil, core.Invalid(op, "dimension %d is not divisible by numSubspaces %d", d, cfg.NumSubspaces)
	}
	if cfg.BitsPerSubspace <= 0 || cfg.BitsPerSubspace > 8 {
		return nil, core.Invalid(op, "bitsPerSubspace must be in (0,8], got %d", cfg.BitsPerSubspace)
	}

	subWidth := d / cfg.NumSubspaces
	cSub := codebookSize(cfg.BitsPerSubspace)

	ctx.Logger.Info().Msgf("pq: training numSubspaces=%d bitsPerSubspace=%d codebookSize=%d", cfg.NumSubspaces, cfg.BitsPerSubspace, cSub)

	codebooks := make([]*matrix.Dense[float32], cfg.NumSubspaces)
	for m := 0; m < cfg.NumSubspaces; m++ {
		ctx.Logger.Debug().Msgf("pq: training subspace %d/%d", m+1, cfg.NumSubspaces)
		sub := projectSubspace(data, m, subWidth)
		subCtx := ctx.WithSeed(ctx.SubSeed(fmt.Sprintf("pq.subspace.%d", m)))
		cb, err := kmeans.Train(subCtx, sub, kmeans.Config{
			K:       cSub,
			MaxIter: cfg.MaxIter,
			Init:    cfg.Init,
		})
		if err != nil {
			return nil, core.Invalid(op, "subspace %d: %v", m, err).Wrap(err)
		}
		codebooks[m] = cb
	}

	q := &Quantizer{
		dimension:    d,
		numSubspaces: cfg.NumSubspaces,
		subWidth:     subWidth,
		codebookSize: cSub,
		codebooks:    codebooks,
	}
	q.buildSymmetricTables()
	return q, nil
}

// projectSubspace extracts the [m*subWidth, (m+1)*subWidth) row band of
// data as a standalone (subWidth, N) matrix.
func projectSubspace(data *matrix.Dense[float32], m, subWidth int) *matrix.Dense[float32] {
	n := data.Cols()
	out := matrix.NewDense[float32](subWidth, n)
	lo := m * subWidth
	for i := 0; i < n; i++ {
		col := data.Column(i)
		out.SetColumn(i, col[lo:lo+subWidth])
	}
	return out
}

func (q *Quantizer) buildSymmetricTables() {
	q.symmetric = make([][]float32, q.numSubspaces)
	for m, cb := range q.codebooks {
		table := make([]float32, q.codebookSize*q.codebookSize)
		for c1 := 0; c1 < q.codebookSize; c1++ {
			v1 := cb.Column(c1)
			for c2 := 0; c2 < q.codebookSize; c2++ {
				table[c1*q.codebookSize+c2] = kernel.SquaredEuclidean(v1, cb.Column(c2))
			}
		}
		q.symmetric[m] = table
	}
}

// Dimension returns the full (pre-split) vector dimension.
func (q *Quantizer) Dimension() int { return q.dimension }

// NumSubspaces returns M.
func (q *Quantizer) NumSubspaces() int { return q.numSubspaces }

// CodebookSize returns C_sub = 2^b.
func (q *Quantizer) CodebookSize() int { return q.codebookSize }

// Encode implements spec.md §4.3's encoding step: for each subspace,
// the index of the nearest codebook entry to the corresponding slice of v.
func (q *Quantizer) Encode(v []float32) ([]byte, error) {
	const op = "pq.Encode"
	if len(v) != q.dimension {
		return nil, core.Invalid(op, "vector dimension %d does not match quantizer dimension %d", len(v), q.dimension)
	}
	code := make([]byte, q.numSubspaces)
	for m := 0; m < q.numSubspaces; m++ {
		lo := m * q.subWidth
		sub := v[lo : lo+q.subWidth]
		best := 0
		bestDist := kernel.SquaredEuclidean(sub, q.codebooks[m].Column(0))
		for c := 1; c < q.codebookSize; c++ {
			d := kernel.SquaredEuclidean(sub, q.codebooks[m].Column(c))
			if d < bestDist {
				bestDist = d
				best = c
			}
		}
		code[m] = byte(best)
	}
	return code, nil
}

// EncodeMatrix encodes every column of data, returning an (M, N) byte matrix.
func (q *Quantizer) EncodeMatrix(ctx *core.Context, data *matrix.Dense[float32]) (*matrix.Dense[uint8], error) {
	const op = "pq.EncodeMatrix"
	if data.Rows() != q.dimension {
		return nil, core.Invalid(op, "data dimension %d does not match quantizer dimension %d", data.Rows(), q.dimension)
	}
	n := data.Cols()
	out := matrix.NewDense[uint8](q.numSubspaces, n)
	err := ctx.Parallel(n, func(start, end int) error {
		for i := start; i < end; i++ {
			code, err := q.Encode(data.Column(i))
			if err != nil {
				return err
			}
			out.SetColumn(i, code)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AsymmetricTable implements spec.md §4.3's asymmetric distance table: an
// M x C_sub table whose entry (m, c) is L2²(q_sub_m, codebook_m[:,c]).
// Flattened row-major: table[m*CodebookSize()+c].
func (q *Quantizer) AsymmetricTable(query []float32) ([]float32, error) {
	const op = "pq.AsymmetricTable"
	if len(query) != q.dimension {
		return nil, core.Invalid(op, "query dimension %d does not match quantizer dimension %d", len(query), q.dimension)
	}
	table := make([]float32, q.numSubspaces*q.codebookSize)
	for m := 0; m < q.numSubspaces; m++ {
		lo := m * q.subWidth
		sub := query[lo : lo+q.subWidth]
		for c := 0; c < q.codebookSize; c++ {
			table[m*q.codebookSize+c] = kernel.SquaredEuclidean(sub, q.codebooks[m].Column(c))
		}
	}
	return table, nil
}

// AsymmetricDistance implements spec.md §4.3's query-to-database
// distance: the sum, over subspaces, of the asymmetric table entry for
// that subspace's code byte.
func AsymmetricDistance(table []float32, codebookSize int, code []byte) float32 {
	var sum float32
	for m, c := range code {
		sum += table[m*codebookSize+int(c)]
	}
	return sum
}

// SymmetricDistance implements spec.md §4.3's code-to-code distance: the
// sum, over subspaces, of the precomputed symmetric table entry between
// the two codes' bytes for that subspace.
func (q *Quantizer) SymmetricDistance(codeA, codeB []byte) float32 {
	var sum float32
	for m := 0; m < q.numSubspaces; m++ {
		c1, c2 := int(codeA[m]), int(codeB[m])
		sum += q.symmetric[m][c1*q.codebookSize+c2]
	}
	return sum
}
