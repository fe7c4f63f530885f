// Package script drives a session from a YAML timeline, for headless hosts
// and smoke tests.
//
//	steps:
//	  - tick: 1
//	    connect: {game: "Clique", name: "Player1"}
//	  - tick: 60
//	    say: "hello"
//	    checks: [69696969]
//	  - tick: 120
//	    status: goal
//
// A Runner is a localpool.Task; each poll is one tick.
package script

import (
	"fmt"
	"log"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dayuer/apbridge-go/internal/protocol"
)

// Script is a parsed timeline.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Step is everything issued on one tick. Fields run in declaration order.
type Step struct {
	Tick    int          `yaml:"tick"`
	Connect *ConnectStep `yaml:"connect,omitempty"`
	Say     string       `yaml:"say,omitempty"`
	Sync    bool         `yaml:"sync,omitempty"`
	Checks  []int64      `yaml:"checks,omitempty"`
	Scouts  *ScoutStep   `yaml:"scouts,omitempty"`
	Status  string       `yaml:"status,omitempty"`
	Get     []string     `yaml:"get,omitempty"`
	Set     *SetStep     `yaml:"set,omitempty"`
	Bounce  *BounceStep  `yaml:"bounce,omitempty"`
}

// ConnectStep mirrors Session.ConnectToMultiworld.
type ConnectStep struct {
	Game          string   `yaml:"game"`
	Name          string   `yaml:"name"`
	Password      *string  `yaml:"password,omitempty"`
	ItemsHandling *int     `yaml:"items_handling,omitempty"`
	Tags          []string `yaml:"tags,omitempty"`
}

// ScoutStep mirrors Session.LocationScouts.
type ScoutStep struct {
	Locations []int64 `yaml:"locations"`
	Hint      int     `yaml:"hint"`
}

// SetStep mirrors Session.Set.
type SetStep struct {
	Key        string      `yaml:"key"`
	Default    any         `yaml:"default"`
	WantReply  bool        `yaml:"want_reply"`
	Operations []Operation `yaml:"operations"`
}

// Operation is one data storage operation as written in YAML.
type Operation struct {
	Operation string `yaml:"operation"`
	Value     any    `yaml:"value"`
}

// BounceStep mirrors Session.Bounce.
type BounceStep struct {
	Games []string `yaml:"games,omitempty"`
	Slots []int    `yaml:"slots,omitempty"`
	Tags  []string `yaml:"tags,omitempty"`
	Data  any      `yaml:"data"`
}

var statusNames = map[string]protocol.ClientStatus{
	"unknown":   protocol.ClientUnknown,
	"connected": protocol.ClientConnected,
	"ready":     protocol.ClientReady,
	"playing":   protocol.ClientPlaying,
	"goal":      protocol.ClientGoal,
}

// Parse decodes and validates a timeline. Steps are sorted by tick.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	for i, st := range s.Steps {
		if st.Tick < 0 {
			return nil, fmt.Errorf("step %d: negative tick %d", i, st.Tick)
		}
		if st.Status != "" {
			if _, ok := statusNames[st.Status]; !ok {
				return nil, fmt.Errorf("step %d: unknown status %q", i, st.Status)
			}
		}
		if st.Connect != nil && (st.Connect.Game == "" || st.Connect.Name == "") {
			return nil, fmt.Errorf("step %d: connect needs game and name", i)
		}
		if st.Set != nil && st.Set.Key == "" {
			return nil, fmt.Errorf("step %d: set needs a key", i)
		}
	}
	sort.SliceStable(s.Steps, func(i, j int) bool { return s.Steps[i].Tick < s.Steps[j].Tick })
	return &s, nil
}

// Load reads and parses a timeline file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Parse(data)
}

// Target receives the commands; *session.Session implements it.
type Target interface {
	ConnectToMultiworld(game, name string, password *string, itemsHandling *int, tags []string) bool
	Say(text string) bool
	Sync() bool
	LocationChecks(locations []int64) bool
	LocationScouts(locations []int64, createAsHint int) bool
	StatusUpdate(status protocol.ClientStatus) bool
	Get(keys []string) bool
	Set(key string, def any, wantReply bool, ops []protocol.DataStorageOperation) bool
	Bounce(games []string, slots []int, tags []string, data any) bool
}

// Runner plays a Script against a Target, one poll per tick.
type Runner struct {
	script *Script
	target Target
	tick   int
	next   int

	issued int
	failed int
}

// NewRunner creates a Runner. The first poll is tick 1.
func NewRunner(s *Script, t Target) *Runner {
	return &Runner{script: s, target: t}
}

// Poll issues the steps that are due and reports whether all have run.
func (r *Runner) Poll() bool {
	r.tick++
	for r.next < len(r.script.Steps) && r.script.Steps[r.next].Tick <= r.tick {
		r.run(r.script.Steps[r.next])
		r.next++
	}
	return r.next >= len(r.script.Steps)
}

// Issued returns how many commands were accepted.
func (r *Runner) Issued() int { return r.issued }

// Failed returns how many commands were rejected.
func (r *Runner) Failed() int { return r.failed }

func (r *Runner) record(name string, ok bool) {
	if ok {
		r.issued++
		return
	}
	r.failed++
	log.Printf("[Script] ⚠️ Tick %d: %s rejected", r.tick, name)
}

func (r *Runner) run(st Step) {
	t := r.target
	if c := st.Connect; c != nil {
		r.record("connect", t.ConnectToMultiworld(c.Game, c.Name, c.Password, c.ItemsHandling, c.Tags))
	}
	if st.Say != "" {
		r.record("say", t.Say(st.Say))
	}
	if st.Sync {
		r.record("sync", t.Sync())
	}
	if len(st.Checks) > 0 {
		r.record("checks", t.LocationChecks(st.Checks))
	}
	if sc := st.Scouts; sc != nil {
		r.record("scouts", t.LocationScouts(sc.Locations, sc.Hint))
	}
	if st.Status != "" {
		r.record("status", t.StatusUpdate(statusNames[st.Status]))
	}
	if len(st.Get) > 0 {
		r.record("get", t.Get(st.Get))
	}
	if s := st.Set; s != nil {
		ops := make([]protocol.DataStorageOperation, 0, len(s.Operations))
		for _, op := range s.Operations {
			ops = append(ops, protocol.DataStorageOperation{Operation: op.Operation, Value: op.Value})
		}
		r.record("set", t.Set(s.Key, s.Default, s.WantReply, ops))
	}
	if b := st.Bounce; b != nil {
		r.record("bounce", t.Bounce(b.Games, b.Slots, b.Tags, b.Data))
	}
}
