// Package transport connects to an Archipelago server over WebSocket.
//
// Every frame is a JSON array of {"cmd": ...} objects. After the handshake
// the connection is split: the Writer is the only goroutine that writes data
// frames and the Reader the only one that reads, which is exactly the
// concurrency gorilla/websocket allows without a lock.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dayuer/apbridge-go/internal/protocol"
	"github.com/dayuer/apbridge-go/internal/session"
)

// DefaultPort is the Archipelago server port used when an address has none.
const DefaultPort = "38281"

// ErrHandshake is wrapped by every handshake failure.
var ErrHandshake = errors.New("transport: handshake failed")

// GameCache stores data packages between connections.
type GameCache interface {
	Lookup(ctx context.Context, game, checksum string) (protocol.GameData, bool)
	Store(ctx context.Context, game string, data protocol.GameData) bool
}

// Dialer opens WebSocket connections to Archipelago servers.
type Dialer struct {
	ws      *websocket.Dialer
	cache   GameCache
	timeout time.Duration
}

// Option configures a Dialer.
type Option func(*Dialer)

// WithCache makes the handshake consult and fill c.
func WithCache(c GameCache) Option {
	return func(d *Dialer) { d.cache = c }
}

// WithHandshakeTimeout bounds the dial and the handshake when the caller's
// context has no deadline.
func WithHandshakeTimeout(t time.Duration) Option {
	return func(d *Dialer) { d.timeout = t }
}

// NewDialer creates a Dialer.
func NewDialer(opts ...Option) *Dialer {
	d := &Dialer{
		ws: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Candidates lists the URLs tried for addr, in order. Addresses with a scheme
// are used as is; bare host[:port] tries wss before ws.
func Candidates(addr string) []string {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return []string{addr}
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, DefaultPort)
	}
	return []string{"wss://" + addr, "ws://" + addr}
}

// Dial connects to addr.
func (d *Dialer) Dial(ctx context.Context, addr string) (session.Conn, error) {
	var lastErr error
	for _, u := range Candidates(addr) {
		dialCtx, cancel := d.withTimeout(ctx)
		ws, _, err := d.ws.DialContext(dialCtx, u, nil)
		cancel()
		if err != nil {
			log.Printf("[Transport] ⚠️ Dial %s failed: %v", u, err)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		log.Printf("[Transport] 🔗 Connected: %s", u)
		return &Conn{ws: ws, cache: d.cache, timeout: d.timeout}, nil
	}
	return nil, fmt.Errorf("dial %s: %w", addr, lastErr)
}

func (d *Dialer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}

// Conn is a connected, not yet split, WebSocket.
type Conn struct {
	ws      *websocket.Conn
	cache   GameCache
	timeout time.Duration
	pending []protocol.Event
}

// readEvents reads frames until one carries events.
func (c *Conn) readEvents() ([]protocol.Event, error) {
	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if typ != websocket.TextMessage {
			continue
		}
		events, err := protocol.DecodeEvents(data)
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			return events, nil
		}
	}
}

// await reads until an event of type T arrives. Events before it and after it
// in the same frame are kept for the Reader.
func await[T protocol.Event](c *Conn) (T, error) {
	var zero T
	for {
		events, err := c.readEvents()
		if err != nil {
			return zero, err
		}
		for i, ev := range events {
			if v, ok := ev.(T); ok {
				c.pending = append(c.pending, events[i+1:]...)
				return v, nil
			}
			c.pending = append(c.pending, ev)
		}
	}
}

// Handshake reads RoomInfo and fetches the data package of every game whose
// checksum is not cached. Cancelling ctx aborts a handshake stuck on the
// server.
func (c *Conn) Handshake(ctx context.Context) (session.Handshake, error) {
	deadline, ok := ctx.Deadline()
	if !ok && c.timeout > 0 {
		deadline, ok = time.Now().Add(c.timeout), true
	}
	if ok {
		c.ws.SetReadDeadline(deadline)
		c.ws.SetWriteDeadline(deadline)
	}
	stop := c.interruptOnDone(ctx)
	defer func() {
		stop()
		c.ws.SetReadDeadline(time.Time{})
		c.ws.SetWriteDeadline(time.Time{})
	}()
	fail := func(step string, err error) error {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s: %w", ErrHandshake, step, ctx.Err())
		}
		return fmt.Errorf("%w: %s: %v", ErrHandshake, step, err)
	}

	room, err := await[protocol.RoomInfo](c)
	if err != nil {
		return session.Handshake{}, fail("room info", err)
	}

	games := make(map[string]protocol.GameData)
	var missing []string
	for _, game := range roomGames(room) {
		checksum := room.DatapackageChecksums[game]
		if c.cache != nil {
			if data, hit := c.cache.Lookup(ctx, game, checksum); hit {
				games[game] = data
				continue
			}
		}
		missing = append(missing, game)
	}
	if len(missing) == 0 {
		return session.Handshake{RoomInfo: room, Games: games}, nil
	}

	frame, err := protocol.EncodeCommands(protocol.GetDataPackage{Games: missing})
	if err != nil {
		return session.Handshake{}, fail("encode", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return session.Handshake{}, fail("request data package", err)
	}
	dp, err := await[protocol.DataPackage](c)
	if err != nil {
		return session.Handshake{}, fail("data package", err)
	}
	for game, data := range dp.Data.Games {
		games[game] = data
		if c.cache != nil {
			c.cache.Store(ctx, game, data)
		}
	}
	log.Printf("[Transport] Handshake done: %d games (%d fetched)", len(games), len(dp.Data.Games))
	return session.Handshake{RoomInfo: room, Games: games}, nil
}

// interruptOnDone expires the read deadline once ctx is done so a blocked read
// returns. Only the read deadline is touched: gorilla keeps the write deadline
// in a plain field. The returned func stops the watcher and waits for it.
func (c *Conn) interruptOnDone(ctx context.Context) func() {
	stop := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			c.ws.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()
	return func() {
		close(stop)
		<-exited
	}
}

// roomGames lists every game named by the room, in first-seen order.
func roomGames(room protocol.RoomInfo) []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range room.Games {
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	for g := range room.DatapackageChecksums {
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}

// Split hands the socket to a Writer and a Reader. Events read during the
// handshake but not consumed by it go to the Reader.
func (c *Conn) Split() (session.Writer, session.Reader) {
	r := &Reader{ws: c.ws, pending: c.pending}
	w := &Writer{ws: c.ws}
	c.pending = nil
	c.ws = nil
	return w, r
}

// Close closes the socket if it has not been split.
func (c *Conn) Close() error {
	if c.ws == nil {
		return nil
	}
	return c.ws.Close()
}

// Writer is the sending half.
type Writer struct {
	ws *websocket.Conn
}

// Send writes cmd as a one-element frame.
func (w *Writer) Send(ctx context.Context, cmd protocol.Command) error {
	frame, err := protocol.EncodeCommands(cmd)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		w.ws.SetWriteDeadline(deadline)
	}
	return w.ws.WriteMessage(websocket.TextMessage, frame)
}

// Close sends a close frame and closes the socket, which ends the Reader.
func (w *Writer) Close() error {
	w.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return w.ws.Close()
}

// Reader is the receiving half.
type Reader struct {
	ws      *websocket.Conn
	pending []protocol.Event
}

// Close closes the socket, which also ends the Writer's next write.
func (r *Reader) Close() error {
	return r.ws.Close()
}

// Recv returns the next event. Frames without events, non-text frames and
// unknown commands yield a nil event. ctx is not observed while a read is in
// flight; closing the Writer unblocks it.
func (r *Reader) Recv(_ context.Context) (protocol.Event, error) {
	if len(r.pending) > 0 {
		ev := r.pending[0]
		r.pending = r.pending[1:]
		return ev, nil
	}
	typ, data, err := r.ws.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			log.Printf("[Transport] ⚠️ Error: %v", err)
		}
		return nil, err
	}
	if typ != websocket.TextMessage {
		return nil, nil
	}
	events, err := protocol.DecodeEvents(data)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	r.pending = append(r.pending, events[1:]...)
	return events[0], nil
}
