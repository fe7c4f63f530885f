package localpool

import (
	"context"
	"fmt"
	"sync"
)

// Future is a single-assignment result that background goroutines complete
// and pool tasks poll.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// NewFuture returns an unresolved Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve completes f with v. Only the first Resolve or Reject has effect.
func (f *Future[T]) Resolve(v T) {
	f.once.Do(func() {
		f.value = v
		close(f.done)
	})
}

// Reject completes f with err.
func (f *Future[T]) Reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Ready reports whether f has been completed. It never blocks.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Done is closed when f completes.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Result returns the completed value. It must only be called once Ready is
// true; before that it returns the zero value and a nil error.
func (f *Future[T]) Result() (T, error) {
	if !f.Ready() {
		var zero T
		return zero, nil
	}
	return f.value, f.err
}

// Go runs fn on a new goroutine and returns a Future for its result. A panic
// in fn rejects the Future.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				f.Reject(fmt.Errorf("panic: %v", rec))
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}()
	return f
}

// Await returns a Task that stays pending until f is ready, then calls then
// with the result on the polling goroutine.
func Await[T any](f *Future[T], then func(T, error)) Task {
	return Func(func() bool {
		if !f.Ready() {
			return false
		}
		if then != nil {
			then(f.Result())
		}
		return true
	})
}
