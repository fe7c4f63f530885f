// Package session exposes a live Archipelago connection to a tick-driven host.
//
// A Session is a pair of bounded bridges: host calls enqueue commands and drain
// events without ever touching the network, while a writer goroutine and a
// reader goroutine move values between the bridges and the connection. A
// Factory builds sessions; its Create runs the connection sequence and
// CreateAsync hands the result back on the host's pool.
package session

import (
	"context"

	"github.com/dayuer/apbridge-go/internal/protocol"
)

// Handshake is the metadata received before a session goes live.
type Handshake struct {
	RoomInfo protocol.RoomInfo
	Games    map[string]protocol.GameData
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is an established connection that has not been split yet.
type Conn interface {
	// Handshake reads the room info and the data package.
	Handshake(ctx context.Context) (Handshake, error)
	// Split hands out the two halves. The Conn must not be used afterwards.
	Split() (Writer, Reader)
	// Close drops the connection; used when the sequence fails before Split.
	Close() error
}

// Writer is the sending half. Close also closes the underlying connection.
type Writer interface {
	Send(ctx context.Context, cmd protocol.Command) error
	Close() error
}

// Reader is the receiving half. A nil event with a nil error is a frame
// carrying nothing for the client (keep-alive); callers skip it. Close also
// closes the underlying connection.
type Reader interface {
	Recv(ctx context.Context) (protocol.Event, error)
	Close() error
}
