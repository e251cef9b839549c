package core

import (
	"context"
	"hash/fnv"
	"math/rand"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Context carries the values the Design Notes (spec.md §9) require to
// replace process-global mutable state: an explicit RNG seed (so
// thread-count-invariance, spec.md §8, is reproducible), a worker-pool
// size, and a logger. It is passed explicitly into every build/query
// entry point; nothing in this module reads an environment variable or a
// package-level global at call time.
type Context struct {
	Seed    int64
	Workers int
	Logger  zerolog.Logger
}

// NewContext builds a Context with sensible defaults: GOMAXPROCS workers
// and a disabled logger. Use With* to customize.
func NewContext(seed int64) *Context {
	return &Context{
		Seed:    seed,
		Workers: runtime.GOMAXPROCS(0),
		Logger:  DisabledLogger(),
	}
}

// WithWorkers returns a copy of c with Workers set.
func (c *Context) WithWorkers(n int) *Context {
	cp := *c
	if n > 0 {
		cp.Workers = n
	}
	return &cp
}

// WithSeed returns a copy of c with Seed set, typically used with
// SubSeed to drive an independent deterministic sub-component (a PQ
// subspace trainer, say) from the parent's seed.
func (c *Context) WithSeed(seed int64) *Context {
	cp := *c
	cp.Seed = seed
	return &cp
}

// WithLogger returns a copy of c with Logger set.
func (c *Context) WithLogger(l zerolog.Logger) *Context {
	cp := *c
	cp.Logger = l
	return &cp
}

// SubSeed derives a seed for a named sub-component (e.g. "pq.subspace.3")
// so that a single top-level Context.Seed can deterministically drive
// several independent RNG streams (k-means seeding, PQ per-subspace
// training) without those streams correlating.
func (c *Context) SubSeed(tag string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tag))
	mixed := int64(h.Sum64())
	return mixed ^ c.Seed
}

// Rand returns a fresh, independent *rand.Rand seeded from c.Seed. Callers
// that need several independent streams should combine it with SubSeed.
func (c *Context) Rand() *rand.Rand {
	return rand.New(rand.NewSource(c.Seed))
}

// RandFor returns a fresh *rand.Rand seeded deterministically from
// c.Seed and tag.
func (c *Context) RandFor(tag string) *rand.Rand {
	return rand.New(rand.NewSource(c.SubSeed(tag)))
}

// WorkerCount returns the effective worker count, defaulting to
// GOMAXPROCS when Workers is unset — exported for callers that need to
// size their own per-thread accumulator buffers (e.g. kmeans Lloyd
// iterations) rather than go through Parallel.
func (c *Context) WorkerCount() int { return c.workers() }

// workers returns a valid worker count, defaulting to GOMAXPROCS.
func (c *Context) workers() int {
	if c == nil || c.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Workers
}

// Parallel covers [0, n) with at most Context.Workers goroutines via
// errgroup, calling fn(start, end) once per contiguous chunk (the
// concurrency model spec.md §5 specifies: per-thread state is
// thread-local, combined after the region returns). It returns the first
// error encountered, if any, after all goroutines have completed.
func (c *Context) Parallel(n int, fn func(start, end int) error) error {
	if n <= 0 {
		return nil
	}
	workers := c.workers()
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		return fn(0, n)
	}
	chunk := (n + workers - 1) / workers
	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if start >= n {
			break
		}
		if end > n {
			end = n
		}
		g.Go(func() error {
			return fn(start, end)
		})
	}
	return g.Wait()
}
