// Package bridge provides the bounded message channels that connect the tick
// goroutine to the background network loops.
//
// Each bridge is a pair of endpoints over one buffered Go channel. The Sender
// side blocks when the buffer is full (backpressure); the Receiver side can
// poll without blocking. Closing either endpoint is one-way and is observed by
// the other as end-of-stream. The underlying Go channel is never closed, so a
// late Send never panics.
package bridge

import (
	"context"
	"sync"
)

// DefaultCapacity is the buffer size used when a caller asks for none.
const DefaultCapacity = 1000

// Status is the outcome of a non-blocking receive.
type Status int

const (
	Received Status = iota // a value was returned
	Empty                  // nothing buffered right now
	Closed                 // sender gone (or receiver closed) and buffer drained
)

func (s Status) String() string {
	switch s {
	case Received:
		return "received"
	case Empty:
		return "empty"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// queue is the state shared by both endpoints.
type queue[T any] struct {
	buf chan T

	senderGone   chan struct{}
	receiverGone chan struct{}
	senderOnce   sync.Once
	receiverOnce sync.Once
}

// Sender is the producing endpoint. It is safe for concurrent use.
type Sender[T any] struct {
	q *queue[T]
}

// Receiver is the consuming endpoint. It is meant to have a single consumer.
type Receiver[T any] struct {
	q *queue[T]
}

// New creates a bridge with the given capacity. Capacity below 1 means
// DefaultCapacity.
func New[T any](capacity int) (*Sender[T], *Receiver[T]) {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	q := &queue[T]{
		buf:          make(chan T, capacity),
		senderGone:   make(chan struct{}),
		receiverGone: make(chan struct{}),
	}
	return &Sender[T]{q: q}, &Receiver[T]{q: q}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Send enqueues v, waiting for a free slot if the buffer is full. It returns
// false if either endpoint has been closed or ctx is done first.
func (s *Sender[T]) Send(ctx context.Context, v T) bool {
	if isClosed(s.q.senderGone) || isClosed(s.q.receiverGone) {
		return false
	}
	select {
	case s.q.buf <- v:
		return true
	case <-s.q.receiverGone:
		return false
	case <-s.q.senderGone:
		return false
	case <-ctx.Done():
		return false
	}
}

// Close marks the sending side as finished. Values already buffered stay
// available to the receiver.
func (s *Sender[T]) Close() {
	s.q.senderOnce.Do(func() { close(s.q.senderGone) })
}

// Done is closed once the receiver has gone away.
func (s *Sender[T]) Done() <-chan struct{} {
	return s.q.receiverGone
}

// Len returns the number of buffered values.
func (s *Sender[T]) Len() int { return len(s.q.buf) }

// Cap returns the buffer capacity.
func (s *Sender[T]) Cap() int { return cap(s.q.buf) }

// TryRecv returns the next buffered value without blocking.
func (r *Receiver[T]) TryRecv() (T, Status) {
	var zero T
	if isClosed(r.q.receiverGone) {
		return zero, Closed
	}
	select {
	case v := <-r.q.buf:
		return v, Received
	default:
	}
	if isClosed(r.q.senderGone) {
		// A send may have landed between the two checks.
		select {
		case v := <-r.q.buf:
			return v, Received
		default:
			return zero, Closed
		}
	}
	return zero, Empty
}

// Recv waits for the next value. It returns false once the sender has closed
// and the buffer is drained, the receiver is closed, or ctx is done.
func (r *Receiver[T]) Recv(ctx context.Context) (T, bool) {
	var zero T
	if isClosed(r.q.receiverGone) {
		return zero, false
	}
	select {
	case v := <-r.q.buf:
		return v, true
	case <-r.q.senderGone:
		select {
		case v := <-r.q.buf:
			return v, true
		default:
			return zero, false
		}
	case <-r.q.receiverGone:
		return zero, false
	case <-ctx.Done():
		return zero, false
	}
}

// Close stops receiving. Blocked and future Sends return false.
func (r *Receiver[T]) Close() {
	r.q.receiverOnce.Do(func() { close(r.q.receiverGone) })
}

// Done is closed once the sender has gone away.
func (r *Receiver[T]) Done() <-chan struct{} {
	return r.q.senderGone
}

// Len returns the number of buffered values.
func (r *Receiver[T]) Len() int { return len(r.q.buf) }

// Cap returns the buffer capacity.
func (r *Receiver[T]) Cap() int { return cap(r.q.buf) }
