// Package vamana implements spec.md §4.5's Vamana / DiskANN-style
// proximity graph: medoid seeding, GreedySearch, RobustPrune, and the
// training loop that wires them together.
package vamana

import "github.com/habedi/annvector/core"

// Edge is one out-edge: a neighbor id and its precomputed L2² score
// against the owning vertex.
type Edge struct {
	Score float32
	ID    uint32
}

// Graph is the mutable adjacency structure used during training: one
// dynamic out-edge slice per vertex, capped at R after a RobustPrune
// call but transiently allowed to exceed it while a working set is being
// built (spec.md §4.5's RobustPrune precondition: "W = (V ∪
// out_neighbors(p)) \ {p}"). Grounded on the teacher's hnsw/index.go
// per-vertex neighbor slice shape, generalized from the teacher's
// single fixed-degree graph to Vamana's build-then-prune lifecycle.
type Graph struct {
	edges [][]Edge
}

// NewGraph allocates an empty graph of n vertices, no edges (spec.md
// §4.5 training step 1).
func NewGraph(n int) *Graph {
	return &Graph{edges: make([][]Edge, n)}
}

// NumVertices returns N.
func (g *Graph) NumVertices() int { return len(g.edges) }

// Stats reports introspection data about the graph; dim is the corpus
// dimension, which the graph itself doesn't carry (it only stores edges).
func (g *Graph) Stats(dim int) core.IndexStats {
	return core.IndexStats{Count: g.NumVertices(), Dimension: dim}
}

// OutEdges returns a borrowed view of v's out-edges.
func (g *Graph) OutEdges(v uint32) []Edge { return g.edges[v] }

// OutDegree returns |out_neighbors(v)|.
func (g *Graph) OutDegree(v uint32) int { return len(g.edges[v]) }

// OutNeighbors returns v's neighbor ids, satisfying the adjacency
// interface GreedySearch runs against.
func (g *Graph) OutNeighbors(v uint32) []uint32 {
	edges := g.edges[v]
	ids := make([]uint32, len(edges))
	for i, e := range edges {
		ids[i] = e.ID
	}
	return ids
}

// SetOutEdges replaces v's out-edge list wholesale, as RobustPrune does.
func (g *Graph) SetOutEdges(v uint32, edges []Edge) {
	g.edges[v] = edges
}

// AddEdge appends a single out-edge to v without checking the degree
// bound R; callers enforce R via RobustPrune before it would be violated
// (spec.md §4.5 training step 3c's unconditional add when |T| ≤ R).
func (g *Graph) AddEdge(v uint32, score float32, id uint32) {
	g.edges[v] = append(g.edges[v], Edge{Score: score, ID: id})
}

// Arena is the flattened, persistence-ready form of a Graph: one
// contiguous scores array, one ids array, and an offsets array of
// length N+1 such that vertex v's edges occupy
// [Offsets[v], Offsets[v+1]) — the layout spec.md §6's Vamana group
// metadata (`adj_scores`, `adj_ids`, `adj_index`) names directly, and
// spec.md §9's design note prefers over pointer-chasing adjacency nodes.
type Arena struct {
	IDs     []uint32
	Scores  []float32
	Offsets []int32
}

// ToArena flattens g into its persistence-ready arena form.
func (g *Graph) ToArena() *Arena {
	n := len(g.edges)
	offsets := make([]int32, n+1)
	for v := 0; v < n; v++ {
		offsets[v+1] = offsets[v] + int32(len(g.edges[v]))
	}
	total := offsets[n]
	ids := make([]uint32, total)
	scores := make([]float32, total)
	for v := 0; v < n; v++ {
		lo := offsets[v]
		for i, e := range g.edges[v] {
			ids[int(lo)+i] = e.ID
			scores[int(lo)+i] = e.Score
		}
	}
	return &Arena{IDs: ids, Scores: scores, Offsets: offsets}
}

// OutEdges returns vertex v's out-edges from an arena-backed graph,
// without reconstructing a *Graph.
func (a *Arena) OutEdges(v uint32) []uint32 {
	return a.IDs[a.Offsets[v]:a.Offsets[v+1]]
}

// OutNeighbors satisfies the adjacency interface GreedySearch runs
// against, letting a query run directly off a persisted arena.
func (a *Arena) OutNeighbors(v uint32) []uint32 { return a.OutEdges(v) }

// NumVertices returns N for an arena-backed graph.
func (a *Arena) NumVertices() int { return len(a.Offsets) - 1 }

// Validate checks the universal invariants spec.md §8 states for every
// trained graph: out-degree ≤ R at every vertex, no self-loops.
func (g *Graph) Validate(r int) error {
	const op = "vamana.Graph.Validate"
	for v, edges := range g.edges {
		if len(edges) > r {
			return core.Invalid(op, "vertex %d has out-degree %d, exceeds R=%d", v, len(edges), r)
		}
		for _, e := range edges {
			if e.ID == uint32(v) {
				return core.Invalid(op, "vertex %d has a self-loop", v)
			}
		}
	}
	return nil
}
