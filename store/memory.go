package store

import (
	"bytes"
	"encoding/gob"
	"sync"

	"github.com/rs/zerolog"

	"github.com/habedi/annvector/core"
	"github.com/habedi/annvector/matrix"
)

// MemoryGroup is an in-memory GroupWriter/GroupReader grounded on the
// teacher's gob-based `GobEncode`/`GobDecode` pattern (pqivf/index.go),
// generalized from a single whole-index blob to per-member encoding so
// individual matrices/vectors round-trip independently, the way
// spec.md §6's group members (`partition_centroids`,
// `shuffled_vector_ids`, ...) are named and persisted separately. It
// exists to make the round-trip persistence law (spec.md §8) testable
// without a real durable backend, which spec.md §1 explicitly places out
// of scope for the core.
type MemoryGroup struct {
	mu     sync.RWMutex
	meta   map[string]map[string]string
	data   map[string][]byte // groupURI + "/" + name -> gob-encoded payload
	logger zerolog.Logger
}

// NewMemoryGroup returns an empty in-memory group store.
func NewMemoryGroup() *MemoryGroup {
	return &MemoryGroup{
		meta:   make(map[string]map[string]string),
		data:   make(map[string][]byte),
		logger: core.DisabledLogger(),
	}
}

// WithLogger attaches a logger that WriteMetadata/ReadMetadata use to
// report group persistence events, mirroring the teacher's
// "Index saved to %s"/"Index loaded from %s" idiom (hnsw/index.go Save
// and Load) adapted to this store's per-group rather than per-index
// granularity.
func (m *MemoryGroup) WithLogger(logger zerolog.Logger) *MemoryGroup {
	m.logger = logger
	return m
}

func key(groupURI, name string) string { return groupURI + "/" + name }

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (m *MemoryGroup) WriteMetadata(groupURI string, kv map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]string, len(kv))
	for k, v := range kv {
		cp[k] = v
	}
	m.meta[groupURI] = cp
	m.logger.Info().Msgf("store: group %s persisted, %d metadata keys", groupURI, len(cp))
	return nil
}

func (m *MemoryGroup) ReadMetadata(groupURI string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kv, ok := m.meta[groupURI]
	if !ok {
		return nil, core.NotFound("store.MemoryGroup.ReadMetadata", "group %q not found", groupURI)
	}
	cp := make(map[string]string, len(kv))
	for k, v := range kv {
		cp[k] = v
	}
	m.logger.Info().Msgf("store: group %s loaded, %d metadata keys", groupURI, len(cp))
	return cp, nil
}

type denseBlob[E matrix.Element] struct {
	Rows, Cols int
	Data       []E
}

func (m *MemoryGroup) WriteMatrixF32(groupURI, name string, mat *matrix.Dense[float32]) error {
	blob, err := encode(denseBlob[float32]{Rows: mat.Rows(), Cols: mat.Cols(), Data: mat.Data()})
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key(groupURI, name)] = blob
	return nil
}

func (m *MemoryGroup) ReadMatrixF32(groupURI, name string) (*matrix.Dense[float32], error) {
	m.mu.RLock()
	raw, ok := m.data[key(groupURI, name)]
	m.mu.RUnlock()
	if !ok {
		return nil, core.NotFound("store.MemoryGroup.ReadMatrixF32", "member %q not found in group %q", name, groupURI)
	}
	var blob denseBlob[float32]
	if err := decode(raw, &blob); err != nil {
		return nil, err
	}
	return matrix.NewDenseFromSlice[float32](blob.Rows, blob.Cols, blob.Data)
}

func (m *MemoryGroup) WriteMatrixU8(groupURI, name string, mat *matrix.Dense[uint8]) error {
	blob, err := encode(denseBlob[uint8]{Rows: mat.Rows(), Cols: mat.Cols(), Data: mat.Data()})
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key(groupURI, name)] = blob
	return nil
}

func (m *MemoryGroup) ReadMatrixU8(groupURI, name string) (*matrix.Dense[uint8], error) {
	m.mu.RLock()
	raw, ok := m.data[key(groupURI, name)]
	m.mu.RUnlock()
	if !ok {
		return nil, core.NotFound("store.MemoryGroup.ReadMatrixU8", "member %q not found in group %q", name, groupURI)
	}
	var blob denseBlob[uint8]
	if err := decode(raw, &blob); err != nil {
		return nil, err
	}
	return matrix.NewDenseFromSlice[uint8](blob.Rows, blob.Cols, blob.Data)
}

func (m *MemoryGroup) WriteVectorF32(groupURI, name string, v []float32) error {
	blob, err := encode(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key(groupURI, name)] = blob
	return nil
}

func (m *MemoryGroup) ReadVectorF32(groupURI, name string) ([]float32, error) {
	m.mu.RLock()
	raw, ok := m.data[key(groupURI, name)]
	m.mu.RUnlock()
	if !ok {
		return nil, core.NotFound("store.MemoryGroup.ReadVectorF32", "member %q not found in group %q", name, groupURI)
	}
	var v []float32
	if err := decode(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (m *MemoryGroup) WriteVectorU32(groupURI, name string, v []uint32) error {
	blob, err := encode(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key(groupURI, name)] = blob
	return nil
}

func (m *MemoryGroup) ReadVectorU32(groupURI, name string) ([]uint32, error) {
	m.mu.RLock()
	raw, ok := m.data[key(groupURI, name)]
	m.mu.RUnlock()
	if !ok {
		return nil, core.NotFound("store.MemoryGroup.ReadVectorU32", "member %q not found in group %q", name, groupURI)
	}
	var v []uint32
	if err := decode(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (m *MemoryGroup) WriteVectorI32(groupURI, name string, v []int32) error {
	blob, err := encode(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key(groupURI, name)] = blob
	return nil
}

func (m *MemoryGroup) ReadVectorI32(groupURI, name string) ([]int32, error) {
	m.mu.RLock()
	raw, ok := m.data[key(groupURI, name)]
	m.mu.RUnlock()
	if !ok {
		return nil, core.NotFound("store.MemoryGroup.ReadVectorI32", "member %q not found in group %q", name, groupURI)
	}
	var v []int32
	if err := decode(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var (
	_ GroupWriter = (*MemoryGroup)(nil)
	_ GroupReader = (*MemoryGroup)(nil)
)
