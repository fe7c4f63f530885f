// Package tick drives a localpool.Pool from the host's main loop.
//
// The host registers Driver.Tick as its per-frame callback. Every call advances
// the pool once and returns; nothing here waits on I/O.
package tick

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dayuer/apbridge-go/internal/localpool"
)

// Stats is a snapshot of driver activity.
type Stats struct {
	Ticks     int64 `json:"ticks"`
	Faults    int64 `json:"faults"`
	Pending   int   `json:"pending"`   // left after the last Advance
	Scheduled int   `json:"scheduled"` // live tasks, including ones not yet picked up
}

// Driver owns the pool's Runner and advances it once per tick.
type Driver struct {
	pool   *localpool.Pool
	runner *localpool.Runner

	ticks   atomic.Int64
	faults  atomic.Int64
	pending atomic.Int64
}

// NewDriver binds pool to a new driver.
func NewDriver(pool *localpool.Pool) (*Driver, error) {
	r, err := pool.Bind()
	if err != nil {
		return nil, fmt.Errorf("bind pool: %w", err)
	}
	return &Driver{pool: pool, runner: r}, nil
}

// Tick advances the pool exactly once. A fault escaping the pool is logged
// and swallowed so the next tick still runs.
func (d *Driver) Tick() {
	d.ticks.Add(1)
	defer func() {
		if rec := recover(); rec != nil {
			d.faults.Add(1)
			log.Printf("[Tick] ❌ Advance fault on tick %d: %v", d.ticks.Load(), rec)
		}
	}()
	n := d.runner.Advance()
	if n >= 0 {
		d.pending.Store(int64(n))
	}
}

// Stats returns the current counters.
func (d *Driver) Stats() Stats {
	return Stats{
		Ticks:     d.ticks.Load(),
		Faults:    d.faults.Load(),
		Pending:   int(d.pending.Load()),
		Scheduled: d.pool.Len(),
	}
}

// Run is a host loop for programs without their own main loop. It pins the
// calling goroutine to its OS thread and ticks every interval until ctx is
// done. frame, if non-nil, runs after each tick on the same goroutine.
func (d *Driver) Run(ctx context.Context, interval time.Duration, frame func()) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[Tick] ✅ Host loop started (interval=%s)", interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Tick] Host loop stopped after %d ticks", d.ticks.Load())
			return
		case <-ticker.C:
			d.Tick()
			if frame != nil {
				frame()
			}
		}
	}
}
