package api

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Future is the pending result of an asynchronous request.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future that is already complete.
func Resolved[T any](value T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(value, err)
	return f
}

func (f *Future[T]) resolve(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the result is available or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Pool runs requests concurrently, at most size at a time.
type Pool struct {
	sem    *semaphore.Weighted
	size   int64
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewPool creates a pool. size < 1 is treated as 1.
func NewPool(size int64, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		sem:    semaphore.NewWeighted(size),
		size:   size,
		logger: logger,
	}
}

// Size returns the concurrency limit.
func (p *Pool) Size() int64 { return p.size }

// Submit runs fn on p and returns its future. If ctx is done before a slot
// frees up, the future fails with ctx's error and fn never runs.
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if err := p.sem.Acquire(ctx, 1); err != nil {
			var zero T
			f.resolve(zero, err)
			return
		}
		defer p.sem.Release(1)

		v, err := fn(ctx)
		if err != nil {
			p.logger.Debug("request failed", "error", err)
		}
		f.resolve(v, err)
	}()

	return f
}

// Wait blocks until every submitted request has completed.
func (p *Pool) Wait() {
	p.wg.Wait()
}
