// Package pool runs independent work items under a fixed concurrency ceiling.
package pool

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultLimit is the ceiling used when a non-positive limit is supplied.
const DefaultLimit = 2

// PanicHandler is invoked with the item whose task panicked and the
// recovered value.
type PanicHandler[T any] func(item T, recovered any)

// Pool executes tasks with at most Limit in flight. A new task starts as soon
// as any running task returns.
type Pool[T any] struct {
	limit   int
	onPanic PanicHandler[T]
}

// New creates a Pool. onPanic may be nil.
func New[T any](limit int, onPanic PanicHandler[T]) *Pool[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Pool[T]{limit: limit, onPanic: onPanic}
}

// Limit returns the concurrency ceiling.
func (p *Pool[T]) Limit() int { return p.limit }

// Run starts fn for every item and waits for all started tasks to finish.
// If ctx is canceled while waiting for a slot, no further items are started
// and the context error is returned after in-flight tasks complete.
func (p *Pool[T]) Run(ctx context.Context, items []T, fn func(context.Context, T)) error {
	sem := semaphore.NewWeighted(int64(p.limit))
	var wg sync.WaitGroup
	var acquireErr error

	for _, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			acquireErr = fmt.Errorf("acquire pool slot: %w", err)
			break
		}
		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if r := recover(); r != nil && p.onPanic != nil {
					p.onPanic(item, r)
				}
			}()
			fn(ctx, item)
		}(item)
	}

	wg.Wait()
	return acquireErr
}
