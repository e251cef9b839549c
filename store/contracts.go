// Package store declares the persistence contracts spec.md §6 treats as
// an external collaborator: abstract vector/matrix loaders and a typed
// group writer/reader, specified only at their interface. No durable
// backend lives in this module; MemoryGroup exists solely so the round-
// trip persistence law (spec.md §8) is testable against something.
package store

import "github.com/habedi/annvector/matrix"

// VectorLoader loads a single contiguous vector of element type E from a
// uri (spec.md §6, "Load vector v<T>(uri)").
type VectorLoader[E matrix.Element] interface {
	LoadVector(uri string) ([]E, error)
}

// MatrixLoader loads a column-major matrix from a uri, optionally capped
// at maxCols columns (spec.md §6, "Load matrix M<T>(uri, max_cols?)").
// A maxCols of 0 means unbounded.
type MatrixLoader[E matrix.Element] interface {
	LoadMatrix(uri string, maxCols int) (*matrix.Dense[E], error)
}

// GroupWriter durably writes named matrices/vectors plus a metadata map
// under a group uri (spec.md §6, "Write matrix / write vector / group
// membership").
type GroupWriter interface {
	WriteMetadata(groupURI string, kv map[string]string) error
	WriteMatrixF32(groupURI, name string, m *matrix.Dense[float32]) error
	WriteMatrixU8(groupURI, name string, m *matrix.Dense[uint8]) error
	WriteVectorF32(groupURI, name string, v []float32) error
	WriteVectorU32(groupURI, name string, v []uint32) error
	WriteVectorI32(groupURI, name string, v []int32) error
}

// GroupReader is GroupWriter's dual.
type GroupReader interface {
	ReadMetadata(groupURI string) (map[string]string, error)
	ReadMatrixF32(groupURI, name string) (*matrix.Dense[float32], error)
	ReadMatrixU8(groupURI, name string) (*matrix.Dense[uint8], error)
	ReadVectorF32(groupURI, name string) ([]float32, error)
	ReadVectorU32(groupURI, name string) ([]uint32, error)
	ReadVectorI32(groupURI, name string) ([]int32, error)
}

// IVFMetadata mirrors spec.md §6's IVF group metadata keys.
type IVFMetadata struct {
	Dimension       int
	NTotal          int
	NList           int
	NumSubspaces    int
	BitsPerSubspace int
	// SizeIndex selects how the persisted PartitionIndexes member is
	// interpreted: true means it holds per-cluster sizes, false means
	// cumulative offsets (spec.md §6's "size_index flag").
	SizeIndex bool
}

// VamanaMetadata mirrors spec.md §6's Vamana group metadata keys.
type VamanaMetadata struct {
	Dimension int
	NTotal    int
	L         int
	R         int
	B         int
	AlphaMin  float32
	AlphaMax  float32
	Medoid    uint32
}
