// Package localpool is a cooperative task pool owned by a single goroutine.
//
// Tasks may be scheduled from any goroutine, but they are only ever polled
// inside Runner.Advance, and a pool has exactly one Runner. A host that calls
// Advance from its own tick goroutine can therefore hand tasks values that are
// not safe to touch anywhere else.
//
//	pool := localpool.New()
//	runner, _ := pool.Bind()
//	pool.Schedule(localpool.Func(func() bool { return true }))
//	runner.Advance() // polls the task on this goroutine
package localpool

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// ErrAlreadyBound is returned by Bind when the pool already has a Runner.
var ErrAlreadyBound = errors.New("localpool: pool already bound")

// Task is a unit of suspended work. Poll resumes it once and reports whether it
// has completed. Poll must not block.
type Task interface {
	Poll() bool
}

// Func adapts a plain function to Task.
type Func func() bool

// Poll calls f.
func (f Func) Poll() bool { return f() }

// Pool holds tasks waiting to be polled.
type Pool struct {
	mu       sync.Mutex
	incoming []Task
	closed   bool

	bound atomic.Bool
	size  atomic.Int64
}

// New creates an empty, unbound pool.
func New() *Pool {
	return &Pool{}
}

// Schedule adds t to the pool. It never runs t and never fails; after Close
// the task is dropped.
func (p *Pool) Schedule(t Task) {
	if t == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		log.Println("[Pool] ⚠️ Schedule after close, task dropped")
		return
	}
	p.incoming = append(p.incoming, t)
	p.size.Add(1)
}

// Len returns the number of tasks not yet completed.
func (p *Pool) Len() int {
	if n := p.size.Load(); n > 0 {
		return int(n)
	}
	return 0
}

// Bind returns the pool's only Runner.
func (p *Pool) Bind() (*Runner, error) {
	if !p.bound.CompareAndSwap(false, true) {
		return nil, ErrAlreadyBound
	}
	return &Runner{pool: p}, nil
}

// Close drops every pending task. Later Schedule calls are ignored.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.incoming = nil
	p.size.Store(0)
}

func (p *Pool) takeIncoming() ([]Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in := p.incoming
	p.incoming = nil
	return in, p.closed
}

// Runner advances a Pool. Only the goroutine that owns the Runner may call
// Advance.
type Runner struct {
	pool      *Pool
	local     []Task
	advancing bool
}

// Advance polls every task that is in the pool when it starts, exactly once
// each, and drops the ones that completed or panicked. Tasks scheduled while
// it runs wait for the next call. It returns the number of tasks still
// pending, or -1 when called from inside a task.
func (r *Runner) Advance() int {
	if r.advancing {
		return -1
	}
	r.advancing = true
	defer func() { r.advancing = false }()

	in, closed := r.pool.takeIncoming()
	if closed {
		r.local = nil
		return 0
	}
	r.local = append(r.local, in...)
	if len(r.local) == 0 {
		return 0
	}

	pending := r.local[:0]
	for _, t := range r.local {
		done, err := poll(t)
		if err != nil {
			log.Printf("[Pool] ❌ Task fault, dropped: %v", err)
			r.pool.size.Add(-1)
			continue
		}
		if done {
			r.pool.size.Add(-1)
			continue
		}
		pending = append(pending, t)
	}
	// Clear the tail so completed tasks can be collected.
	for i := len(pending); i < len(r.local); i++ {
		r.local[i] = nil
	}
	r.local = pending
	return len(r.local)
}

func poll(t Task) (done bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return t.Poll(), nil
}
