// Package workers runs data-parallel work over contiguous chunks of a row or
// group range.
package workers

import (
	"context"
	"errors"
	"runtime"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// ErrCancelled is returned when the pool's cancellation flag is set.
var ErrCancelled = errors.New("execution cancelled")

// DefaultChunkSize is the number of rows or groups per chunk when none is
// configured.
const DefaultChunkSize = 4096

// Pool splits ranges into contiguous chunks and processes them with a fixed
// number of workers. Chunk boundaries depend only on the chunk size, never on
// the number of workers, so merging chunk results in chunk order produces
// the same output for any worker count.
type Pool struct {
	workers   int
	chunkSize int
	cancelled *atomic.Bool
}

// New returns a pool with the given number of workers and chunk size. Zero
// values select GOMAXPROCS and [DefaultChunkSize].
func New(workers, chunkSize int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Pool{
		workers:   workers,
		chunkSize: chunkSize,
		cancelled: atomic.NewBool(false),
	}
}

func (p *Pool) Workers() int   { return p.workers }
func (p *Pool) ChunkSize() int { return p.chunkSize }

// Cancel sets the cancellation flag. Chunks that have not started yet are
// skipped and Run returns [ErrCancelled].
func (p *Pool) Cancel() { p.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called.
func (p *Pool) Cancelled() bool { return p.cancelled.Load() }

// Watch sets the cancellation flag once ctx is done. The returned function
// stops watching.
func (p *Pool) Watch(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, p.Cancel)
}

// Check returns an error if the pool was cancelled or ctx is done.
func (p *Pool) Check(ctx context.Context) error {
	if p.cancelled.Load() {
		return ErrCancelled
	}
	return ctx.Err()
}

// Chunk is a half-open range [Lo, Hi).
type Chunk struct {
	Index  int
	Lo, Hi int
}

// Chunks splits [0, n) into contiguous chunks of at most ChunkSize elements.
func (p *Pool) Chunks(n int) []Chunk {
	if n <= 0 {
		return nil
	}
	chunks := make([]Chunk, 0, (n+p.chunkSize-1)/p.chunkSize)
	for lo := 0; lo < n; lo += p.chunkSize {
		chunks = append(chunks, Chunk{Index: len(chunks), Lo: lo, Hi: min(lo+p.chunkSize, n)})
	}
	return chunks
}

// Run calls fn for every chunk of [0, n). The cancellation flag is polled
// before each chunk starts. Run returns the first error encountered.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, c Chunk) error) error {
	chunks := p.Chunks(n)
	if len(chunks) <= 1 || p.workers == 1 {
		for _, c := range chunks {
			if err := p.Check(ctx); err != nil {
				return err
			}
			if err := fn(ctx, c); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, c := range chunks {
		if p.Check(gctx) != nil {
			break
		}
		g.Go(func() error {
			if err := p.Check(gctx); err != nil {
				return err
			}
			return fn(gctx, c)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return p.Check(ctx)
}

// Map calls fn for every chunk of [0, n) and returns the results in chunk
// order.
func Map[T any](ctx context.Context, p *Pool, n int, fn func(ctx context.Context, c Chunk) (T, error)) ([]T, error) {
	results := make([]T, len(p.Chunks(n)))
	err := p.Run(ctx, n, func(ctx context.Context, c Chunk) error {
		res, err := fn(ctx, c)
		if err != nil {
			return err
		}
		results[c.Index] = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
