package kernel

import "testing"

func TestSquaredEuclidean(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 6, 3}
	got := SquaredEuclidean(a, b)
	want := float32(9 + 16 + 0)
	if got != want {
		t.Fatalf("SquaredEuclidean = %v, want %v", got, want)
	}
}

func TestSquaredEuclideanScalarMatchesAccel(t *testing.T) {
	a := make([]float32, 64)
	b := make([]float32, 64)
	for i := range a {
		a[i] = float32(i) * 0.37
		b[i] = float32(i) * 0.11
	}
	scalar := squaredEuclideanScalar(a, b)
	accel := squaredEuclideanAccel(a, b)
	diff := scalar - accel
	if diff < 0 {
		diff = -diff
	}
	if diff > 1e-1 {
		t.Fatalf("scalar=%v accel=%v diverge by %v", scalar, accel, diff)
	}
}

func TestNearestColumn(t *testing.T) {
	q := []float32{0, 0}
	cands := [][]float32{{3, 4}, {1, 1}, {0, 0.5}}
	idx, dist := NearestColumn(q, cands)
	if idx != 2 {
		t.Fatalf("NearestColumn index = %d, want 2", idx)
	}
	if dist != 0.25 {
		t.Fatalf("NearestColumn dist = %v, want 0.25", dist)
	}
}

func TestSumSquares(t *testing.T) {
	cols := [][]float32{{1, 2}, {0, 0}, {3, 4}}
	got := SumSquares(cols)
	want := []float32{5, 0, 25}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SumSquares[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
