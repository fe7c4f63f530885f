package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultCapacity(t *testing.T) {
	tx, rx := New[int](0)
	assert.Equal(t, DefaultCapacity, tx.Cap())
	assert.Equal(t, DefaultCapacity, rx.Cap())
	assert.Equal(t, 0, rx.Len())
}

func TestTryRecv_EmptyDoesNotBlock(t *testing.T) {
	_, rx := New[int](4)
	v, st := rx.TryRecv()
	assert.Equal(t, Empty, st)
	assert.Equal(t, 0, v)
}

func TestSendTryRecv_FIFO(t *testing.T) {
	tx, rx := New[string](8)
	ctx := context.Background()
	for _, s := range []string{"a", "b", "c"} {
		require.True(t, tx.Send(ctx, s))
	}
	assert.Equal(t, 3, tx.Len())

	var got []string
	for {
		v, st := rx.TryRecv()
		if st != Received {
			assert.Equal(t, Empty, st)
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestSenderClose_BufferedValuesStillDelivered(t *testing.T) {
	tx, rx := New[int](4)
	require.True(t, tx.Send(context.Background(), 1))
	require.True(t, tx.Send(context.Background(), 2))
	tx.Close()
	tx.Close() // idempotent

	v, st := rx.TryRecv()
	assert.Equal(t, Received, st)
	assert.Equal(t, 1, v)
	v, st = rx.TryRecv()
	assert.Equal(t, Received, st)
	assert.Equal(t, 2, v)
	_, st = rx.TryRecv()
	assert.Equal(t, Closed, st)

	assert.False(t, tx.Send(context.Background(), 3))
}

func TestReceiverClose_FailsSend(t *testing.T) {
	tx, rx := New[int](1)
	rx.Close()
	assert.False(t, tx.Send(context.Background(), 1))

	select {
	case <-tx.Done():
	default:
		t.Fatal("sender should observe the receiver going away")
	}
}

func TestSend_BlocksUntilSlotFrees(t *testing.T) {
	tx, rx := New[int](1)
	ctx := context.Background()
	require.True(t, tx.Send(ctx, 1))
	assert.Equal(t, 1, tx.Len())

	done := make(chan bool, 1)
	go func() { done <- tx.Send(ctx, 2) }()

	select {
	case <-done:
		t.Fatal("Send should block while the buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	v, ok := rx.Recv(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Send did not unblock after a slot was freed")
	}
	v, st := rx.TryRecv()
	assert.Equal(t, Received, st)
	assert.Equal(t, 2, v)
}

func TestSend_UnblockedByReceiverClose(t *testing.T) {
	tx, rx := New[int](1)
	require.True(t, tx.Send(context.Background(), 1))

	done := make(chan bool, 1)
	go func() { done <- tx.Send(context.Background(), 2) }()
	time.Sleep(20 * time.Millisecond)
	rx.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("blocked Send should fail once the receiver closes")
	}
}

func TestSend_ContextCancelled(t *testing.T) {
	tx, _ := New[int](1)
	require.True(t, tx.Send(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, tx.Send(ctx, 2))
}

func TestRecv_EndOfStream(t *testing.T) {
	tx, rx := New[int](2)
	go func() {
		time.Sleep(20 * time.Millisecond)
		tx.Close()
	}()
	_, ok := rx.Recv(context.Background())
	assert.False(t, ok)
}

func TestConcurrentSenders(t *testing.T) {
	tx, rx := New[int](100)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tx.Send(context.Background(), i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, rx.Len())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "received", Received.String())
	assert.Equal(t, "empty", Empty.String())
	assert.Equal(t, "closed", Closed.String())
}
