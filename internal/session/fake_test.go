package session

import (
	"context"
	"errors"
	"sync"

	"github.com/dayuer/apbridge-go/internal/protocol"
)

var errFakeClosed = errors.New("fake connection closed")

type fakeRead struct {
	ev  protocol.Event
	err error
}

// fakeNet is the server end of an in-memory connection.
type fakeNet struct {
	handshake    Handshake
	handshakeErr error

	sent    chan protocol.Command
	reads   chan fakeRead
	closed  chan struct{}
	once    sync.Once
	entered chan protocol.Command // every command reaching Writer.Send
	gate    chan struct{}         // when non-nil, Send waits for a token

	mu        sync.Mutex
	dialCount int
}

func newFakeNet() *fakeNet {
	return &fakeNet{
		handshake: Handshake{
			RoomInfo: protocol.RoomInfo{SeedName: "seed", Games: []string{"G"}},
			Games: map[string]protocol.GameData{
				"G": {ItemNameToID: map[string]int64{"Sword": 1}, Checksum: "c1"},
			},
		},
		sent:    make(chan protocol.Command, 64),
		reads:   make(chan fakeRead, 64),
		closed:  make(chan struct{}),
		entered: make(chan protocol.Command, 64),
	}
}

func (n *fakeNet) close() { n.once.Do(func() { close(n.closed) }) }

func (n *fakeNet) push(ev protocol.Event) { n.reads <- fakeRead{ev: ev} }

func (n *fakeNet) fail(err error) { n.reads <- fakeRead{err: err} }

func (n *fakeNet) isClosed() bool {
	select {
	case <-n.closed:
		return true
	default:
		return false
	}
}

type fakeDialer struct {
	net *fakeNet
	err error
}

func (d *fakeDialer) Dial(context.Context, string) (Conn, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.net.mu.Lock()
	d.net.dialCount++
	d.net.mu.Unlock()
	return &fakeConn{net: d.net}, nil
}

type fakeConn struct{ net *fakeNet }

func (c *fakeConn) Handshake(context.Context) (Handshake, error) {
	if c.net.handshakeErr != nil {
		return Handshake{}, c.net.handshakeErr
	}
	return c.net.handshake, nil
}

func (c *fakeConn) Split() (Writer, Reader) {
	return &fakeWriter{net: c.net}, &fakeReader{net: c.net}
}

func (c *fakeConn) Close() error {
	c.net.close()
	return nil
}

type fakeWriter struct{ net *fakeNet }

func (w *fakeWriter) Send(_ context.Context, cmd protocol.Command) error {
	w.net.entered <- cmd
	if w.net.gate != nil {
		select {
		case <-w.net.gate:
		case <-w.net.closed:
			return errFakeClosed
		}
	}
	if w.net.isClosed() {
		return errFakeClosed
	}
	w.net.sent <- cmd
	return nil
}

func (w *fakeWriter) Close() error {
	w.net.close()
	return nil
}

type fakeReader struct{ net *fakeNet }

func (r *fakeReader) Close() error {
	r.net.close()
	return nil
}

func (r *fakeReader) Recv(context.Context) (protocol.Event, error) {
	select {
	case rd := <-r.net.reads:
		return rd.ev, rd.err
	case <-r.net.closed:
		return nil, errFakeClosed
	}
}
