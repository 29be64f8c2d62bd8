package pool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool bounds concurrent fan-out work to a fixed capacity, the way the
// source's thread pool bounds worker threads. It is safe for concurrent
// use by multiple goroutines starting independent Groups.
type Pool struct {
	sem *semaphore.Weighted
}

// New returns a Pool with the given capacity. A capacity <= 0 defaults to
// runtime.GOMAXPROCS(0).
func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(capacity))}
}

// Group starts a bounded fan-out unit of work against ctx. Each task
// submitted via Go acquires a pool slot before running and releases it on
// completion; Wait is the cooperative join point (the analogue of the
// source's ChangeCurrentThreadStateFromActiveToWaiting around
// future.wait()).
type Group struct {
	eg  *errgroup.Group
	sem *semaphore.Weighted
	ctx context.Context
}

// Group returns a new bounded fan-out Group bound to ctx.
func (p *Pool) Group(ctx context.Context) *Group {
	eg, gctx := errgroup.WithContext(ctx)
	return &Group{eg: eg, sem: p.sem, ctx: gctx}
}

// Go submits task to run on the pool and returns at once; the task runs
// on its own goroutine once that goroutine acquires a slot. If task
// returns an error, Wait will report it (first error wins, as errgroup
// does).
func (g *Group) Go(task func() error) {
	g.eg.Go(func() error {
		if err := g.sem.Acquire(g.ctx, 1); err != nil {
			return err
		}
		defer g.sem.Release(1)
		return task()
	})
}

// Wait blocks until every submitted task has completed, returning the
// first error encountered, if any. This is the thread-pool join point.
func (g *Group) Wait() error {
	return g.eg.Wait()
}
