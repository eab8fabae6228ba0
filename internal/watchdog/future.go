// Package watchdog bounds how long a single piece of work may run.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrTimeLimit is returned by Run when the work doesn't finish within
// its limit.
var ErrTimeLimit = errors.New("time limit exceeded")

// A Future holds a value that might not be available yet.
type Future[T any] struct {
	done chan struct{}
	val  T
}

// NewFuture returns a new future and a function that completes that
// future with the given value. The returned complete function becomes
// a no-op after the first usage.
func NewFuture[T any]() (f *Future[T], complete func(T)) {
	var once sync.Once
	f = &Future[T]{done: make(chan struct{})}
	return f, func(val T) {
		once.Do(func() {
			f.val = val
			close(f.done)
		})
	}
}

// Go runs f concurrently, yielding its value via the returned [Future].
func Go[T any](f func() T) *Future[T] {
	future, complete := NewFuture[T]()
	go func() { complete(f()) }()
	return future
}

// Done returns a channel that is closed when the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get blocks, if necessary, until the future is completed and then
// returns its value.
func (f *Future[T]) Get() T {
	<-f.done
	return f.val
}

// Run calls f and waits for it to return, for at most limit. A limit
// of zero or less means no limit. If the limit passes or ctx is
// canceled first, Run returns without waiting for f, which keeps
// running in the background. The caller must not touch anything f
// uses until f has returned.
func Run(ctx context.Context, limit time.Duration, f func() error) error {
	if limit <= 0 {
		return f()
	}

	timer := time.NewTimer(limit)
	defer timer.Stop()

	result := Go(f)
	select {
	case <-result.Done():
		return result.Get()
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrTimeLimit, limit)
	case <-ctx.Done():
		return ctx.Err()
	}
}
