package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/dayuer/apbridge-go/internal/bridge"
	"github.com/dayuer/apbridge-go/internal/localpool"
	"github.com/dayuer/apbridge-go/internal/protocol"
)

// State is a step of the connection sequence.
type State int

const (
	Connecting  State = iota // dialing the server
	Handshaking              // reading room info and the data package
	Splitting                // handing the connection to its two halves
	Spawning                 // starting the send and receive loops
	Ready                    // session handed to the caller
	Failed                   // terminal; the cause is in the ConnectionError
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Handshaking:
		return "handshaking"
	case Splitting:
		return "splitting"
	case Spawning:
		return "spawning"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ConnectionError reports a Create that ended in Failed.
type ConnectionError struct {
	URL   string
	State State // the step that failed
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %s: %v", e.URL, e.State, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Factory creates sessions.
type Factory struct {
	dialer     Dialer
	capacity   int
	clientUUID string
	onState    func(url string, s State)
}

// Option configures a Factory.
type Option func(*Factory)

// WithCapacity sets the size of both bridges of each session.
func WithCapacity(n int) Option {
	return func(f *Factory) { f.capacity = n }
}

// WithClientUUID sets the uuid sent in Connect.
func WithClientUUID(id string) Option {
	return func(f *Factory) { f.clientUUID = id }
}

// WithStateHook registers a callback for every state transition. It runs on
// the goroutine executing Create.
func WithStateHook(fn func(url string, s State)) Option {
	return func(f *Factory) { f.onState = fn }
}

// NewFactory creates a Factory that dials through d.
func NewFactory(d Dialer, opts ...Option) *Factory {
	f := &Factory{dialer: d, capacity: bridge.DefaultCapacity}
	for _, o := range opts {
		o(f)
	}
	if f.clientUUID == "" {
		f.clientUUID = uuid.NewString()
	}
	return f
}

// ClientUUID returns the uuid this factory's sessions announce.
func (f *Factory) ClientUUID() string { return f.clientUUID }

func (f *Factory) enter(url string, s State) {
	log.Printf("[Factory] %s → %s", url, s)
	if f.onState != nil {
		f.onState(url, s)
	}
}

func (f *Factory) fail(url string, at State, err error) error {
	f.enter(url, Failed)
	log.Printf("[Factory] ❌ %s failed while %s: %v", url, at, err)
	return &ConnectionError{URL: url, State: at, Err: err}
}

// Create runs the connection sequence and returns a live Session. ctx bounds
// the sequence only; the session's loops outlive it. No retry is attempted.
func (f *Factory) Create(ctx context.Context, url string) (*Session, error) {
	if f.dialer == nil {
		return nil, f.fail(url, Connecting, errors.New("no dialer configured"))
	}

	f.enter(url, Connecting)
	conn, err := f.dialer.Dial(ctx, url)
	if err != nil {
		return nil, f.fail(url, Connecting, err)
	}

	f.enter(url, Handshaking)
	hs, err := conn.Handshake(ctx)
	if err != nil {
		conn.Close()
		return nil, f.fail(url, Handshaking, err)
	}
	log.Printf("[Factory] Room %q: %d games, %d in data package",
		hs.RoomInfo.SeedName, len(hs.RoomInfo.Games), len(hs.Games))

	f.enter(url, Splitting)
	w, r := conn.Split()

	f.enter(url, Spawning)
	cmdTx, cmdRx := bridge.New[protocol.Command](f.capacity)
	evTx, evRx := bridge.New[protocol.Event](f.capacity)
	log.Printf("[Factory] Spawning loops (outbound cap %d, inbound cap %d)", cmdTx.Cap(), evRx.Cap())
	// The reader cancels loopCtx when it stops so the writer follows it.
	loopCtx, stopLoops := context.WithCancel(context.Background())
	go writeLoop(loopCtx, w, cmdRx)
	go readLoop(r, evTx, stopLoops)

	s := newSession(url, f.clientUUID, hs, cmdTx, evRx)
	f.enter(url, Ready)
	return s, nil
}

// CreateAsync runs Create in the background and calls then on the goroutine
// that advances pool, once the sequence has finished.
func (f *Factory) CreateAsync(ctx context.Context, pool *localpool.Pool, url string, then func(*Session, error)) *localpool.Future[*Session] {
	fut := localpool.Go(ctx, func(ctx context.Context) (*Session, error) {
		return f.Create(ctx, url)
	})
	pool.Schedule(localpool.Await(fut, then))
	return fut
}

func isDone(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// writeLoop owns the writer half and the outbound receive endpoint. It stops
// when the session closes, a write fails or ctx is cancelled by the reader.
func writeLoop(ctx context.Context, w Writer, cmds *bridge.Receiver[protocol.Command]) {
	log.Println("[Session] Started send loop")
	defer func() {
		cmds.Close()
		w.Close()
		log.Println("[Session] Send loop stopped")
	}()

	for {
		if isDone(cmds.Done()) {
			return
		}
		cmd, ok := cmds.Recv(ctx)
		if !ok {
			return
		}
		if err := w.Send(ctx, cmd); err != nil {
			log.Printf("[Session] ❌ Send %s failed: %v", cmd.Cmd(), err)
			return
		}
	}
}

// readLoop owns the reader half and the inbound send endpoint. On exit it
// closes the reader and calls stop so the send loop ends too.
func readLoop(r Reader, events *bridge.Sender[protocol.Event], stop context.CancelFunc) {
	log.Println("[Session] Started receive loop")
	defer func() {
		events.Close()
		r.Close()
		stop()
		log.Println("[Session] Receive loop stopped")
	}()

	ctx := context.Background()
	for {
		if isDone(events.Done()) {
			return
		}
		ev, err := r.Recv(ctx)
		if err != nil {
			log.Printf("[Session] ❌ Receive failed: %v", err)
			return
		}
		if ev == nil {
			continue
		}
		if !events.Send(ctx, ev) {
			return
		}
	}
}
