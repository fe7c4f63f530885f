package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/apbridge-go/internal/protocol"
)

func newTestSession(t *testing.T, net *fakeNet, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithClientUUID("test-uuid")}, opts...)
	f := NewFactory(&fakeDialer{net: net}, opts...)
	s, err := f.Create(context.Background(), "ws://test")
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func waitSent(t *testing.T, net *fakeNet) protocol.Command {
	t.Helper()
	select {
	case cmd := <-net.sent:
		return cmd
	case <-time.After(time.Second):
		t.Fatal("writer never delivered a command")
		return nil
	}
}

func waitBuffered(t *testing.T, s *Session, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.inbound.Len() >= n }, time.Second, 5*time.Millisecond)
}

func TestSession_ConnectScenario(t *testing.T) {
	net := newFakeNet()
	s := newTestSession(t, net)

	assert.True(t, s.ConnectToMultiworld("G", "P", nil, nil, []string{}))

	cmd := waitSent(t, net)
	connect, ok := cmd.(protocol.Connect)
	require.True(t, ok)
	assert.Equal(t, "G", connect.Game)
	assert.Equal(t, "P", connect.Name)
	assert.Nil(t, connect.Password)
	assert.Nil(t, connect.ItemsHandling)
	assert.Equal(t, "test-uuid", connect.UUID)
	assert.Equal(t, protocol.ClientVersion, connect.Version)

	net.push(protocol.Connected{Slot: 1})
	waitBuffered(t, s, 1)

	events := s.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, protocol.Connected{Slot: 1}, events[0])
}

func TestSession_EnqueueDoesNotProduceEvents(t *testing.T) {
	net := newFakeNet()
	s := newTestSession(t, net)

	assert.True(t, s.Say("hello"))
	assert.True(t, s.Sync())
	assert.True(t, s.LocationChecks([]int64{1, 2}))
	waitSent(t, net)
	waitSent(t, net)
	waitSent(t, net)

	assert.Empty(t, s.Drain())
}

func TestSession_DrainPreservesOrderAndExhausts(t *testing.T) {
	net := newFakeNet()
	s := newTestSession(t, net)

	want := []protocol.Event{
		protocol.Print{Text: "1"},
		protocol.Print{Text: "2"},
		protocol.ReceivedItems{Index: 0, Items: []protocol.NetworkItem{{Item: 5}}},
		protocol.Print{Text: "3"},
	}
	for _, ev := range want {
		net.push(ev)
	}
	waitBuffered(t, s, len(want))

	assert.Equal(t, want, s.Drain())
	assert.Empty(t, s.Drain())
}

func TestSession_HeartbeatSkipped(t *testing.T) {
	net := newFakeNet()
	s := newTestSession(t, net)

	net.push(nil)
	net.push(protocol.Print{Text: "after"})
	waitBuffered(t, s, 1)

	assert.Equal(t, []protocol.Event{protocol.Print{Text: "after"}}, s.Drain())
}

func TestSession_ReadFailureMidStream(t *testing.T) {
	net := newFakeNet()
	s := newTestSession(t, net)

	net.push(protocol.Print{Text: "a"})
	net.push(protocol.Print{Text: "b"})
	net.fail(errors.New("connection reset"))

	require.Eventually(t, func() bool { return isDone(s.inbound.Done()) }, time.Second, 5*time.Millisecond)
	assert.False(t, s.Closed())

	assert.Equal(t, []protocol.Event{protocol.Print{Text: "a"}, protocol.Print{Text: "b"}}, s.Drain())
	assert.Empty(t, s.Drain())
	assert.True(t, s.Closed())
}

func TestSession_ReadFailureStopsWriter(t *testing.T) {
	net := newFakeNet()
	s := newTestSession(t, net)

	net.fail(errors.New("connection reset"))

	require.Eventually(t, net.isClosed, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !s.Say("after reset") }, time.Second, 5*time.Millisecond)
	assert.True(t, s.Closed())
}

func TestSession_BackpressureBlocksUntilSlotFrees(t *testing.T) {
	net := newFakeNet()
	net.gate = make(chan struct{})
	t.Cleanup(net.close)
	s := newTestSession(t, net, WithCapacity(1))

	// The writer takes the first command and stalls inside Send.
	require.True(t, s.Say("1"))
	select {
	case <-net.entered:
	case <-time.After(time.Second):
		t.Fatal("writer never picked up the first command")
	}
	// The second fills the bridge.
	require.True(t, s.Say("2"))

	done := make(chan bool, 1)
	go func() { done <- s.Say("3") }()

	select {
	case <-done:
		t.Fatal("enqueue should block while the bridge is full")
	case <-time.After(50 * time.Millisecond):
	}

	net.gate <- struct{}{}
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("enqueue did not resume after the writer freed a slot")
	}
	assert.Equal(t, protocol.Say{Text: "1"}, waitSent(t, net))
}

func TestSession_CloseStopsLoops(t *testing.T) {
	net := newFakeNet()
	s := newTestSession(t, net)

	s.Close()
	s.Close()

	require.Eventually(t, net.isClosed, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return isDone(s.inbound.Done()) }, time.Second, 5*time.Millisecond)
	assert.True(t, s.Closed())
	assert.False(t, s.Say("too late"))
	assert.Empty(t, s.Drain())
}

func TestSession_CloseUnblocksPendingEnqueue(t *testing.T) {
	net := newFakeNet()
	net.gate = make(chan struct{})
	t.Cleanup(net.close)
	s := newTestSession(t, net, WithCapacity(1))

	require.True(t, s.Say("1"))
	<-net.entered
	require.True(t, s.Say("2"))

	done := make(chan bool, 1)
	go func() { done <- s.Say("3") }()
	time.Sleep(20 * time.Millisecond)
	s.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Close should release a blocked enqueue")
	}
}

func TestSession_WriteFailureFailsLaterEnqueues(t *testing.T) {
	net := newFakeNet()
	s := newTestSession(t, net)

	net.close()
	s.Say("lost")
	require.Eventually(t, func() bool { return !s.Say("x") }, time.Second, 5*time.Millisecond)
}

func TestSession_RejectsInvalidArguments(t *testing.T) {
	net := newFakeNet()
	s := newTestSession(t, net)

	assert.False(t, s.StatusUpdate(protocol.ClientStatus(42)))
	assert.False(t, s.Set("k", make(chan int), false, nil))
	assert.False(t, s.Set("k", 0, false, []protocol.DataStorageOperation{{Operation: "add", Value: func() {}}}))
	assert.False(t, s.Bounce(nil, nil, nil, make(chan int)))

	select {
	case cmd := <-net.entered:
		t.Fatalf("rejected call reached the writer: %v", cmd)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestSession_CommandShapes(t *testing.T) {
	net := newFakeNet()
	s := newTestSession(t, net)

	items := 3
	require.True(t, s.LocationScouts(nil, 2))
	require.True(t, s.StatusUpdate(protocol.ClientGoal))
	require.True(t, s.Bounce([]string{"G"}, []int{1}, nil, map[string]any{"x": 1}))
	require.True(t, s.Get([]string{"k"}))
	require.True(t, s.Set("k", 0, true, []protocol.DataStorageOperation{{Operation: "add", Value: 1}}))
	require.True(t, s.SetNotify(nil))
	require.True(t, s.ConnectUpdate(&items, []string{"Tracker"}))

	assert.Equal(t, protocol.LocationScouts{Locations: []int64{}, CreateAsHint: 2}, waitSent(t, net))
	assert.Equal(t, protocol.StatusUpdate{Status: protocol.ClientGoal}, waitSent(t, net))
	assert.Equal(t, protocol.Bounce{Games: []string{"G"}, Slots: []int{1}, Data: map[string]any{"x": 1}}, waitSent(t, net))
	assert.Equal(t, protocol.Get{Keys: []string{"k"}}, waitSent(t, net))
	assert.Equal(t, protocol.Set{Key: "k", Default: 0, WantReply: true, Operations: []protocol.DataStorageOperation{{Operation: "add", Value: 1}}}, waitSent(t, net))
	assert.Equal(t, protocol.SetNotify{Keys: []string{}}, waitSent(t, net))
	assert.Equal(t, protocol.ConnectUpdate{ItemsHandling: &items, Tags: []string{"Tracker"}}, waitSent(t, net))
}

func TestSession_Accessors(t *testing.T) {
	net := newFakeNet()
	s := newTestSession(t, net)

	assert.Equal(t, "ws://test", s.URL())
	assert.Equal(t, "seed", s.RoomInfo().SeedName)

	dp := s.DataPackage()
	require.Contains(t, dp, "G")
	assert.Equal(t, int64(1), dp["G"].ItemNameToID["Sword"])

	delete(dp, "G")
	assert.Contains(t, s.DataPackage(), "G")
}
