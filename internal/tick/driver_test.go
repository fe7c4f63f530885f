package tick

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/apbridge-go/internal/localpool"
)

func TestNewDriver_BindsOnce(t *testing.T) {
	pool := localpool.New()
	_, err := NewDriver(pool)
	require.NoError(t, err)

	_, err = NewDriver(pool)
	assert.ErrorIs(t, err, localpool.ErrAlreadyBound)
}

func TestTick_EmptyPool(t *testing.T) {
	d, err := NewDriver(localpool.New())
	require.NoError(t, err)

	d.Tick()
	d.Tick()
	assert.Equal(t, Stats{Ticks: 2}, d.Stats())
}

func TestTick_AdvancesOncePerCall(t *testing.T) {
	pool := localpool.New()
	d, err := NewDriver(pool)
	require.NoError(t, err)

	polls := 0
	pool.Schedule(localpool.Func(func() bool { polls++; return polls == 2 }))

	d.Tick()
	assert.Equal(t, 1, polls)
	assert.Equal(t, 1, d.Stats().Pending)

	d.Tick()
	assert.Equal(t, 2, polls)
	assert.Equal(t, 0, d.Stats().Pending)
}

func TestStats_CountsScheduledBeforeFirstTick(t *testing.T) {
	pool := localpool.New()
	d, err := NewDriver(pool)
	require.NoError(t, err)

	pool.Schedule(localpool.Func(func() bool { return false }))
	pool.Schedule(localpool.Func(func() bool { return true }))
	assert.Equal(t, Stats{Scheduled: 2}, d.Stats())

	d.Tick()
	assert.Equal(t, Stats{Ticks: 1, Pending: 1, Scheduled: 1}, d.Stats())
}

func TestTick_FaultingTaskDoesNotStopLaterTicks(t *testing.T) {
	pool := localpool.New()
	d, err := NewDriver(pool)
	require.NoError(t, err)

	pool.Schedule(localpool.Func(func() bool { panic("task fault") }))
	d.Tick()

	ran := false
	pool.Schedule(localpool.Func(func() bool { ran = true; return true }))
	d.Tick()
	assert.True(t, ran)
	assert.Equal(t, int64(2), d.Stats().Ticks)
}

func TestTick_NotReadyTaskSkipped(t *testing.T) {
	pool := localpool.New()
	d, err := NewDriver(pool)
	require.NoError(t, err)

	f := localpool.NewFuture[int]()
	got := 0
	pool.Schedule(localpool.Await(f, func(v int, _ error) { got = v }))

	start := time.Now()
	d.Tick()
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 0, got)

	f.Resolve(7)
	d.Tick()
	assert.Equal(t, 7, got)
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	pool := localpool.New()
	d, err := NewDriver(pool)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	frames := 0
	d.Run(ctx, 5*time.Millisecond, func() { frames++ })

	assert.Greater(t, d.Stats().Ticks, int64(1))
	assert.Equal(t, d.Stats().Ticks, int64(frames))
}
