// Package matrix implements the column-major dense buffer that is the
// fundamental unit of vector storage for every component in this module
// (training matrices, centroids, corpora, shuffled partitions).
package matrix

import "github.com/habedi/annvector/core"

// Element is the scalar type a Dense matrix stores: u8 (PQ-coded vectors,
// bytes), f32 (raw vectors and scores) and u32 (result id matrices).
type Element interface {
	~float32 | ~uint8 | ~uint32
}

// ColumnSource is the capability interface spec.md §9 ("Dynamic
// polymorphism") asks for in place of the source's duck-typed templates:
// any in-memory or streaming vector container a query routine needs to
// read from.
type ColumnSource[E Element] interface {
	NumColumns() int
	Dimension() int
	// Column returns a borrowed view of column i; callers must not retain
	// it past the next mutating call on the source.
	Column(i int) []E
}

// Dense is a column-major (D, N) matrix: column i is vector i, stored as
// a contiguous span of D elements starting at i*D. Dense owns its backing
// buffer; Column returns a borrowed slice into it.
type Dense[E Element] struct {
	rows int // D
	cols int // N
	data []E // length rows*cols
}

// NewDense allocates a zeroed (rows, cols) matrix.
func NewDense[E Element](rows, cols int) *Dense[E] {
	return &Dense[E]{rows: rows, cols: cols, data: make([]E, rows*cols)}
}

// NewDenseFromSlice wraps an existing contiguous buffer as a (rows, cols)
// matrix without copying. It returns an error if the buffer length does
// not equal rows*cols, the invariant spec.md §3 states for Matrix.
func NewDenseFromSlice[E Element](rows, cols int, data []E) (*Dense[E], error) {
	if rows < 0 || cols < 0 {
		return nil, core.Invalid("matrix.NewDenseFromSlice", "negative dimension rows=%d cols=%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, core.Invalid("matrix.NewDenseFromSlice",
			"buffer length %d does not equal rows*cols=%d*%d", len(data), rows, cols)
	}
	return &Dense[E]{rows: rows, cols: cols, data: data}, nil
}

// Rows returns D, the vector dimension.
func (d *Dense[E]) Rows() int { return d.rows }

// Cols returns N, the number of vectors.
func (d *Dense[E]) Cols() int { return d.cols }

// Dimension satisfies ColumnSource.
func (d *Dense[E]) Dimension() int { return d.rows }

// NumColumns satisfies ColumnSource.
func (d *Dense[E]) NumColumns() int { return d.cols }

// Column returns a borrowed view of column i, length Rows().
func (d *Dense[E]) Column(i int) []E {
	start := i * d.rows
	return d.data[start : start+d.rows]
}

// SetColumn copies v into column i. len(v) must equal Rows().
func (d *Dense[E]) SetColumn(i int, v []E) {
	copy(d.Column(i), v)
}

// Data returns the whole backing buffer (column-major, length Rows()*Cols()).
func (d *Dense[E]) Data() []E { return d.data }

// Clone returns a deep copy.
func (d *Dense[E]) Clone() *Dense[E] {
	out := make([]E, len(d.data))
	copy(out, d.data)
	return &Dense[E]{rows: d.rows, cols: d.cols, data: out}
}

var (
	_ ColumnSource[float32] = (*Dense[float32])(nil)
	_ ColumnSource[uint8]   = (*Dense[uint8])(nil)
)
