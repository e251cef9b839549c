package vamana

import (
	roaring "github.com/RoaringBitmap/roaring/v2"

	"github.com/habedi/annvector/core"
	"github.com/habedi/annvector/kernel"
	"github.com/habedi/annvector/matrix"
)

// Config controls graph training (spec.md §4.5).
type Config struct {
	L int // candidate list size, build-time and query-time default
	R int // degree bound

	// AlphaMax is the pruning slack applied on the final (or only)
	// training pass. Typically 1.2.
	AlphaMax float32
	// AlphaMin, when set below AlphaMax, triggers the two-pass training
	// variant supplemented from original_source/src/include/detail/graph
	// per SPEC_FULL.md §12: a first pass at AlphaMin (commonly 1.0, no
	// occlusion) builds a sparser backbone before the AlphaMax pass
	// refines it. Left at zero (or >= AlphaMax), training runs a single
	// pass at AlphaMax, matching spec.md §4.5's base description.
	AlphaMin float32

	// B is the optional backtrack size spec.md §4.5 reserves; carried
	// for persisted-metadata completeness (spec.md §6's "B" key) but not
	// consulted by GreedySearch, matching the original's own reserved
	// status for this parameter (SPEC_FULL.md §12).
	B int
}

// alpha returns the slack Train passes to RobustPrune on its final (or
// only) pass, preferring AlphaMax and falling back to a sane default if
// unset.
func (c Config) alpha() float32 {
	if c.AlphaMax > 0 {
		return c.AlphaMax
	}
	return 1.2
}

func (c Config) twoPass() bool {
	return c.AlphaMin > 0 && c.AlphaMin < c.alpha()
}

// Medoid implements spec.md §4.5's medoid computation: the mean of the
// corpus, then the corpus vector with minimum L2² to that mean.
// Deterministic given the corpus.
func Medoid(corpus matrix.ColumnSource[float32]) (uint32, error) {
	const op = "vamana.Medoid"
	n := corpus.NumColumns()
	if n == 0 {
		return 0, core.Invalid(op, "empty corpus")
	}
	d := corpus.Dimension()
	mean := make([]float32, d)
	for i := 0; i < n; i++ {
		col := corpus.Column(i)
		for x := 0; x < d; x++ {
			mean[x] += col[x]
		}
	}
	for x := range mean {
		mean[x] /= float32(n)
	}

	best := uint32(0)
	bestDist := kernel.SquaredEuclidean(corpus.Column(0), mean)
	for i := 1; i < n; i++ {
		d := kernel.SquaredEuclidean(corpus.Column(i), mean)
		if d < bestDist {
			bestDist = d
			best = uint32(i)
		}
	}
	return best, nil
}

// Train implements spec.md §4.5's training loop: for each vertex p in
// ascending id order, GreedySearch from the medoid toward p to collect a
// candidate set, RobustPrune it into p's out-edges, then propagate
// reverse edges to p's new neighbors, RobustPruning them in turn if they
// would exceed R. Traversal order is sequential and ascending, matching
// spec.md §5's build-determinism guarantee: construction is
// order-dependent, and the design fixes that order at ascending id.
// Grounded on spec.md §4.5 directly; the reverse-edge propagation shape
// mirrors `other_examples/hyper-light-sylk__graph.go`'s
// addReverseEdgesLocal.
func Train(ctx *core.Context, corpus matrix.ColumnSource[float32], cfg Config) (*Graph, uint32, error) {
	const op = "vamana.Train"
	n := corpus.NumColumns()
	if n == 0 {
		return nil, 0, core.Invalid(op, "empty corpus")
	}
	if cfg.R <= 0 {
		return nil, 0, core.Invalid(op, "R must be positive, got %d", cfg.R)
	}
	if cfg.L < 1 {
		return nil, 0, core.Invalid(op, "L must be at least 1, got %d", cfg.L)
	}

	medoid, err := Medoid(corpus)
	if err != nil {
		return nil, 0, err
	}
	ctx.Logger.Info().Msgf("vamana: medoid=%d n=%d L=%d R=%d", medoid, n, cfg.L, cfg.R)

	g := NewGraph(n)
	if cfg.twoPass() {
		ctx.Logger.Info().Msgf("vamana: training pass 1/2 alpha=%.2f", cfg.AlphaMin)
		if err := trainPass(ctx, g, corpus, medoid, cfg.L, cfg.R, cfg.AlphaMin); err != nil {
			return nil, 0, err
		}
		ctx.Logger.Info().Msgf("vamana: training pass 2/2 alpha=%.2f", cfg.alpha())
	} else {
		ctx.Logger.Info().Msgf("vamana: training single pass alpha=%.2f", cfg.alpha())
	}
	if err := trainPass(ctx, g, corpus, medoid, cfg.L, cfg.R, cfg.alpha()); err != nil {
		return nil, 0, err
	}

	return g, medoid, nil
}

func trainPass(ctx *core.Context, g *Graph, corpus matrix.ColumnSource[float32], medoid uint32, l, r int, alpha float32) error {
	n := corpus.NumColumns()
	logEvery := n / 10
	if logEvery < 1 {
		logEvery = 1
	}
	for p := 0; p < n; p++ {
		if p > 0 && p%logEvery == 0 {
			ctx.Logger.Debug().Msgf("vamana: pass alpha=%.2f progress %d/%d vertices", alpha, p, n)
		}
		pID := uint32(p)
		result, err := GreedySearch(g, corpus, medoid, corpus.Column(p), 1, l)
		if err != nil {
			return err
		}
		RobustPrune(g, corpus, pID, result.Visited, alpha, r)

		for _, e := range g.OutEdges(pID) {
			j := e.ID
			if g.OutDegree(j)+1 > r {
				t := roaring.New()
				for _, je := range g.OutEdges(j) {
					t.Add(je.ID)
				}
				t.Add(pID)
				RobustPrune(g, corpus, j, t, alpha, r)
			} else {
				score := kernel.SquaredEuclidean(corpus.Column(int(j)), corpus.Column(p))
				g.AddEdge(j, score, pID)
			}
		}
	}
	return nil
}
