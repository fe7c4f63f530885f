package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/dayuer/apbridge-go/internal/bridge"
	"github.com/dayuer/apbridge-go/internal/protocol"
)

// Session is the host-facing side of a connection. Command methods and Drain
// only touch bridge endpoints; none of them wait on the network, although a
// command may wait for room in a full outbound bridge.
type Session struct {
	url         string
	clientUUID  string
	roomInfo    protocol.RoomInfo
	dataPackage map[string]protocol.GameData

	outbound *bridge.Sender[protocol.Command]
	inbound  *bridge.Receiver[protocol.Event]

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newSession(url, clientUUID string, hs Handshake, out *bridge.Sender[protocol.Command], in *bridge.Receiver[protocol.Event]) *Session {
	games := make(map[string]protocol.GameData, len(hs.Games))
	for name, g := range hs.Games {
		games[name] = g
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		url:         url,
		clientUUID:  clientUUID,
		roomInfo:    hs.RoomInfo,
		dataPackage: games,
		outbound:    out,
		inbound:     in,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *Session) enqueue(cmd protocol.Command) bool {
	if s.outbound.Send(s.ctx, cmd) {
		log.Printf("[Session] Queued %s", cmd.Cmd())
		return true
	}
	log.Printf("[Session] ⚠️ Failed to queue %s: session closed", cmd.Cmd())
	return false
}

// ConnectToMultiworld asks the server to bind this connection to a slot.
func (s *Session) ConnectToMultiworld(game, name string, password *string, itemsHandling *int, tags []string) bool {
	if tags == nil {
		tags = []string{}
	}
	return s.enqueue(protocol.Connect{
		Password:      password,
		Game:          game,
		Name:          name,
		UUID:          s.clientUUID,
		Version:       protocol.ClientVersion,
		ItemsHandling: itemsHandling,
		Tags:          tags,
		SlotData:      true,
	})
}

// ConnectUpdate changes items handling or tags of a connected slot.
func (s *Session) ConnectUpdate(itemsHandling *int, tags []string) bool {
	return s.enqueue(protocol.ConnectUpdate{ItemsHandling: itemsHandling, Tags: tags})
}

// Say sends a chat line.
func (s *Session) Say(text string) bool {
	return s.enqueue(protocol.Say{Text: text})
}

// Sync asks for every received item again.
func (s *Session) Sync() bool {
	return s.enqueue(protocol.Sync{})
}

// LocationChecks reports checked locations.
func (s *Session) LocationChecks(locations []int64) bool {
	return s.enqueue(protocol.LocationChecks{Locations: nonNil(locations)})
}

// LocationScouts asks what is placed at locations.
func (s *Session) LocationScouts(locations []int64, createAsHint int) bool {
	return s.enqueue(protocol.LocationScouts{Locations: nonNil(locations), CreateAsHint: createAsHint})
}

// StatusUpdate reports the client state. Unknown states are rejected.
func (s *Session) StatusUpdate(status protocol.ClientStatus) bool {
	if !status.Valid() {
		log.Printf("[Session] ⚠️ Rejected StatusUpdate: invalid status %d", int(status))
		return false
	}
	return s.enqueue(protocol.StatusUpdate{Status: status})
}

// Bounce relays data to the clients matching games, slots or tags.
func (s *Session) Bounce(games []string, slots []int, tags []string, data any) bool {
	if !encodable(data) {
		log.Println("[Session] ⚠️ Rejected Bounce: data is not JSON-encodable")
		return false
	}
	return s.enqueue(protocol.Bounce{Games: games, Slots: slots, Tags: tags, Data: data})
}

// Get reads data storage keys; the answer arrives as a Retrieved event.
func (s *Session) Get(keys []string) bool {
	return s.enqueue(protocol.Get{Keys: nonNil(keys)})
}

// Set writes a data storage key.
func (s *Session) Set(key string, def any, wantReply bool, ops []protocol.DataStorageOperation) bool {
	if !encodable(def) {
		log.Printf("[Session] ⚠️ Rejected Set %q: default is not JSON-encodable", key)
		return false
	}
	for _, op := range ops {
		if !encodable(op.Value) {
			log.Printf("[Session] ⚠️ Rejected Set %q: %s value is not JSON-encodable", key, op.Operation)
			return false
		}
	}
	return s.enqueue(protocol.Set{Key: key, Default: def, WantReply: wantReply, Operations: nonNil(ops)})
}

// SetNotify subscribes to changes of data storage keys.
func (s *Session) SetNotify(keys []string) bool {
	return s.enqueue(protocol.SetNotify{Keys: nonNil(keys)})
}

// Drain returns every event currently buffered, in arrival order.
func (s *Session) Drain() []protocol.Event {
	var events []protocol.Event
	for {
		ev, st := s.inbound.TryRecv()
		if st != bridge.Received {
			break
		}
		events = append(events, ev)
	}
	if len(events) > 0 {
		log.Printf("[Session] Drained %d events", len(events))
	}
	return events
}

// URL returns the address the session was created for.
func (s *Session) URL() string { return s.url }

// RoomInfo returns the room metadata received during the handshake.
func (s *Session) RoomInfo() protocol.RoomInfo { return s.roomInfo }

// DataPackage returns a copy of the per-game metadata keyed by game name.
func (s *Session) DataPackage() map[string]protocol.GameData {
	out := make(map[string]protocol.GameData, len(s.dataPackage))
	for k, v := range s.dataPackage {
		out[k] = v
	}
	return out
}

// Closed reports whether the session was closed or the reader has stopped.
func (s *Session) Closed() bool {
	select {
	case <-s.ctx.Done():
		return true
	case <-s.inbound.Done():
		return s.inbound.Len() == 0
	default:
		return false
	}
}

// Close drops both bridge endpoints; the background loops exit on their next
// iteration. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.outbound.Close()
		s.inbound.Close()
		log.Printf("[Session] Closed %s", s.url)
	})
}

func encodable(v any) bool {
	_, err := json.Marshal(v)
	return err == nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
