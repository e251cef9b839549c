package store_test

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/habedi/annvector/core"
	"github.com/habedi/annvector/ivf"
	"github.com/habedi/annvector/kmeans"
	"github.com/habedi/annvector/matrix"
	"github.com/habedi/annvector/pq"
	"github.com/habedi/annvector/store"
	"github.com/habedi/annvector/vamana"
)

func randomCorpus(seed int64, d, n int) *matrix.Dense[float32] {
	r := rand.New(rand.NewSource(seed))
	m := matrix.NewDense[float32](d, n)
	for i := 0; i < n; i++ {
		v := make([]float32, d)
		for j := range v {
			v[j] = float32(r.NormFloat64())
		}
		m.SetColumn(i, v)
	}
	return m
}

// TestIVFRoundTrip is spec.md §8's round-trip persistence law applied to
// an IVF partition: write_index then read_index must reproduce
// metadata, centroids, shuffled ids, and shuffled vectors exactly.
func TestIVFRoundTrip(t *testing.T) {
	ctx := core.NewContext(1)
	corpus := randomCorpus(1, 16, 400)
	centroids, err := kmeans.Train(ctx, corpus, kmeans.Config{K: 8, MaxIter: 4, Init: kmeans.InitKMeansPP})
	if err != nil {
		t.Fatalf("kmeans.Train: %v", err)
	}
	part, err := ivf.BuildPartition(ctx, centroids, corpus)
	if err != nil {
		t.Fatalf("BuildPartition: %v", err)
	}

	g := store.NewMemoryGroup()
	const groupURI = "mem://ivf-index"

	meta := store.IVFMetadata{
		Dimension: corpus.Rows(),
		NTotal:    corpus.Cols(),
		NList:     part.K,
		SizeIndex: false,
	}
	if err := g.WriteMetadata(groupURI, map[string]string{
		"dimension": strconv.Itoa(meta.Dimension),
		"ntotal":    strconv.Itoa(meta.NTotal),
		"nlist":     strconv.Itoa(meta.NList),
	}); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	if err := g.WriteMatrixF32(groupURI, "partition_centroids", centroids); err != nil {
		t.Fatalf("WriteMatrixF32(centroids): %v", err)
	}
	if err := g.WriteMatrixF32(groupURI, "shuffled_vectors", part.ShuffledVectors); err != nil {
		t.Fatalf("WriteMatrixF32(shuffled_vectors): %v", err)
	}
	if err := g.WriteVectorU32(groupURI, "shuffled_vector_ids", part.ShuffledIDs); err != nil {
		t.Fatalf("WriteVectorU32: %v", err)
	}
	if err := g.WriteVectorI32(groupURI, "partition_indexes", part.Offsets); err != nil {
		t.Fatalf("WriteVectorI32: %v", err)
	}

	gotMeta, err := g.ReadMetadata(groupURI)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if gotMeta["dimension"] != strconv.Itoa(meta.Dimension) || gotMeta["nlist"] != strconv.Itoa(meta.NList) {
		t.Fatalf("metadata mismatch: %v", gotMeta)
	}

	gotCentroids, err := g.ReadMatrixF32(groupURI, "partition_centroids")
	if err != nil {
		t.Fatalf("ReadMatrixF32(centroids): %v", err)
	}
	assertDenseEqual(t, centroids, gotCentroids)

	gotShuffled, err := g.ReadMatrixF32(groupURI, "shuffled_vectors")
	if err != nil {
		t.Fatalf("ReadMatrixF32(shuffled_vectors): %v", err)
	}
	assertDenseEqual(t, part.ShuffledVectors, gotShuffled)

	gotIDs, err := g.ReadVectorU32(groupURI, "shuffled_vector_ids")
	if err != nil {
		t.Fatalf("ReadVectorU32: %v", err)
	}
	if len(gotIDs) != len(part.ShuffledIDs) {
		t.Fatalf("shuffled id count = %d, want %d", len(gotIDs), len(part.ShuffledIDs))
	}
	for i := range gotIDs {
		if gotIDs[i] != part.ShuffledIDs[i] {
			t.Fatalf("shuffled id mismatch at %d: got %d, want %d", i, gotIDs[i], part.ShuffledIDs[i])
		}
	}

	gotOffsets, err := g.ReadVectorI32(groupURI, "partition_indexes")
	if err != nil {
		t.Fatalf("ReadVectorI32: %v", err)
	}
	for i := range gotOffsets {
		if gotOffsets[i] != part.Offsets[i] {
			t.Fatalf("offset mismatch at %d: got %d, want %d", i, gotOffsets[i], part.Offsets[i])
		}
	}
}

// TestIVFPQRoundTrip is TestIVFRoundTrip's PQ-coded variant: spec.md §6
// documents shuffled_vectors' "or PQ-coded equivalents" as an alternative
// persisted form, selected by the num_subspaces/bits_per_subspace metadata
// keys being present.
func TestIVFPQRoundTrip(t *testing.T) {
	ctx := core.NewContext(4)
	corpus := randomCorpus(4, 16, 400)
	centroids, err := kmeans.Train(ctx, corpus, kmeans.Config{K: 8, MaxIter: 4, Init: kmeans.InitKMeansPP})
	if err != nil {
		t.Fatalf("kmeans.Train: %v", err)
	}
	part, err := ivf.BuildPartition(ctx, centroids, corpus)
	if err != nil {
		t.Fatalf("BuildPartition: %v", err)
	}
	quantizer, err := pq.Train(ctx, part.ShuffledVectors, pq.Config{
		NumSubspaces:    4,
		BitsPerSubspace: 4,
		MaxIter:         4,
		Init:            kmeans.InitKMeansPP,
	})
	if err != nil {
		t.Fatalf("pq.Train: %v", err)
	}
	codes, err := quantizer.EncodeMatrix(ctx, part.ShuffledVectors)
	if err != nil {
		t.Fatalf("EncodeMatrix: %v", err)
	}

	g := store.NewMemoryGroup()
	const groupURI = "mem://ivf-pq-index"

	meta := store.IVFMetadata{
		Dimension:       corpus.Rows(),
		NTotal:          corpus.Cols(),
		NList:           part.K,
		NumSubspaces:    quantizer.NumSubspaces(),
		BitsPerSubspace: 4,
	}
	if err := g.WriteMetadata(groupURI, map[string]string{
		"dimension":         strconv.Itoa(meta.Dimension),
		"ntotal":            strconv.Itoa(meta.NTotal),
		"nlist":             strconv.Itoa(meta.NList),
		"num_subspaces":     strconv.Itoa(meta.NumSubspaces),
		"bits_per_subspace": strconv.Itoa(meta.BitsPerSubspace),
	}); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	if err := g.WriteMatrixU8(groupURI, "shuffled_vectors", codes); err != nil {
		t.Fatalf("WriteMatrixU8(codes): %v", err)
	}

	gotMeta, err := g.ReadMetadata(groupURI)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if gotMeta["num_subspaces"] != strconv.Itoa(meta.NumSubspaces) {
		t.Fatalf("metadata mismatch: %v", gotMeta)
	}

	gotCodes, err := g.ReadMatrixU8(groupURI, "shuffled_vectors")
	if err != nil {
		t.Fatalf("ReadMatrixU8(codes): %v", err)
	}
	if gotCodes.Rows() != codes.Rows() || gotCodes.Cols() != codes.Cols() {
		t.Fatalf("shape mismatch: want (%d,%d), got (%d,%d)", codes.Rows(), codes.Cols(), gotCodes.Rows(), gotCodes.Cols())
	}
	wd, gd := codes.Data(), gotCodes.Data()
	for i := range wd {
		if wd[i] != gd[i] {
			t.Fatalf("code mismatch at index %d: want %v, got %v", i, wd[i], gd[i])
		}
	}
}

// TestVamanaRoundTrip exercises the same law for a Vamana graph's arena
// form (spec.md §6's `adj_scores`/`adj_ids`/`adj_index` members).
func TestVamanaRoundTrip(t *testing.T) {
	ctx := core.NewContext(2)
	corpus := randomCorpus(2, 8, 100)
	cfg := vamana.Config{L: 10, R: 6, AlphaMax: 1.2}
	graph, medoid, err := vamana.Train(ctx, corpus, cfg)
	if err != nil {
		t.Fatalf("vamana.Train: %v", err)
	}
	arena := graph.ToArena()

	g := store.NewMemoryGroup()
	const groupURI = "mem://vamana-index"

	meta := store.VamanaMetadata{
		Dimension: corpus.Rows(),
		NTotal:    corpus.Cols(),
		L:         cfg.L,
		R:         cfg.R,
		B:         cfg.B,
		AlphaMin:  cfg.AlphaMin,
		AlphaMax:  cfg.AlphaMax,
		Medoid:    medoid,
	}
	if err := g.WriteMetadata(groupURI, map[string]string{
		"dimension": strconv.Itoa(meta.Dimension),
		"ntotal":    strconv.Itoa(meta.NTotal),
		"l":         strconv.Itoa(meta.L),
		"r":         strconv.Itoa(meta.R),
		"medoid":    strconv.Itoa(int(meta.Medoid)),
	}); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	gotMeta, err := g.ReadMetadata(groupURI)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if gotMeta["medoid"] != strconv.Itoa(int(medoid)) || gotMeta["l"] != strconv.Itoa(cfg.L) {
		t.Fatalf("metadata mismatch: %v", gotMeta)
	}

	if err := g.WriteMatrixF32(groupURI, "feature_vectors", corpus); err != nil {
		t.Fatalf("WriteMatrixF32(feature_vectors): %v", err)
	}
	if err := g.WriteVectorU32(groupURI, "adj_ids", arena.IDs); err != nil {
		t.Fatalf("WriteVectorU32(adj_ids): %v", err)
	}
	if err := g.WriteVectorF32(groupURI, "adj_scores", arena.Scores); err != nil {
		t.Fatalf("WriteVectorF32(adj_scores): %v", err)
	}
	offsets := make([]int32, len(arena.Offsets))
	copy(offsets, arena.Offsets)
	if err := g.WriteVectorI32(groupURI, "adj_index", offsets); err != nil {
		t.Fatalf("WriteVectorI32(adj_index): %v", err)
	}

	gotIDs, err := g.ReadVectorU32(groupURI, "adj_ids")
	if err != nil {
		t.Fatalf("ReadVectorU32: %v", err)
	}
	if len(gotIDs) != len(arena.IDs) {
		t.Fatalf("adj_ids length = %d, want %d", len(gotIDs), len(arena.IDs))
	}
	for i := range gotIDs {
		if gotIDs[i] != arena.IDs[i] {
			t.Fatalf("adj_ids mismatch at %d", i)
		}
	}

	gotScores, err := g.ReadVectorF32(groupURI, "adj_scores")
	if err != nil {
		t.Fatalf("ReadVectorF32: %v", err)
	}
	if len(gotScores) != len(arena.Scores) {
		t.Fatalf("adj_scores length = %d, want %d", len(gotScores), len(arena.Scores))
	}
	for i := range gotScores {
		if gotScores[i] != arena.Scores[i] {
			t.Fatalf("adj_scores mismatch at %d: got %v, want %v", i, gotScores[i], arena.Scores[i])
		}
	}

	gotOffsets, err := g.ReadVectorI32(groupURI, "adj_index")
	if err != nil {
		t.Fatalf("ReadVectorI32: %v", err)
	}
	for i := range gotOffsets {
		if gotOffsets[i] != offsets[i] {
			t.Fatalf("adj_index mismatch at %d", i)
		}
	}

	gotFeatures, err := g.ReadMatrixF32(groupURI, "feature_vectors")
	if err != nil {
		t.Fatalf("ReadMatrixF32(feature_vectors): %v", err)
	}
	assertDenseEqual(t, corpus, gotFeatures)
}

func TestReadMetadataNotFound(t *testing.T) {
	g := store.NewMemoryGroup()
	_, err := g.ReadMetadata("mem://missing")
	if !core.IsKind(err, core.KindNotFound) {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func assertDenseEqual(t *testing.T, want, got *matrix.Dense[float32]) {
	t.Helper()
	if want.Rows() != got.Rows() || want.Cols() != got.Cols() {
		t.Fatalf("shape mismatch: want (%d,%d), got (%d,%d)", want.Rows(), want.Cols(), got.Rows(), got.Cols())
	}
	wd, gd := want.Data(), got.Data()
	for i := range wd {
		if wd[i] != gd[i] {
			t.Fatalf("data mismatch at index %d: want %v, got %v", i, wd[i], gd[i])
		}
	}
}
