// Package workpool bounds the number of provider requests in flight across
// every search call of the process.
package workpool

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// MaxDefaultSize caps the size of the default pool.
const MaxDefaultSize = 32

// Pool is a counting semaphore shared by concurrent calls.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// New returns a pool admitting size concurrent tasks. Sizes below one are
// treated as one.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the number of tasks the pool admits at once.
func (p *Pool) Size() int { return p.size }

var (
	defaultOnce sync.Once
	defaultPool *Pool
	defaultSize int
	defaultMu   sync.Mutex
)

// Default returns the process-wide pool, creating it on first use with
// min(32, NumCPU+4) slots unless SetDefaultSize was called first.
func Default() *Pool {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		size := defaultSize
		defaultMu.Unlock()
		if size <= 0 {
			size = min(MaxDefaultSize, runtime.NumCPU()+4)
		}
		defaultPool = New(size)
	})
	return defaultPool
}

// SetDefaultSize sets the size Default uses. It has no effect once Default
// has been called.
func SetDefaultSize(n int) {
	defaultMu.Lock()
	defaultSize = n
	defaultMu.Unlock()
}

// Map runs fn over items on pool and returns the results in item order,
// whatever order the tasks complete in. The first error cancels the
// remaining tasks and is returned; no partial results are returned with it.
// A nil pool means Default.
func Map[In, Out any](ctx context.Context, pool *Pool, items []In, fn func(context.Context, In) (Out, error)) ([]Out, error) {
	if pool == nil {
		pool = Default()
	}
	out := make([]Out, len(items))
	g, gCtx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			if err := pool.sem.Acquire(gCtx, 1); err != nil {
				return err
			}
			defer pool.sem.Release(1)

			v, err := fn(gCtx, item)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
