// Package protocol defines the Archipelago messages exchanged by a session.
//
// Command and Event are closed sets: only this package can add variants, and
// the codec switches over every one of them.
package protocol

import "encoding/json"

// NetworkVersion is the version triple sent in Connect and RoomInfo.
type NetworkVersion struct {
	Major int    `json:"major"`
	Minor int    `json:"minor"`
	Build int    `json:"build"`
	Class string `json:"class"`
}

// ClientVersion is the protocol version this client announces.
var ClientVersion = NetworkVersion{Major: 0, Minor: 4, Build: 4, Class: "Version"}

// ClientStatus is the goal state reported through StatusUpdate.
type ClientStatus int

const (
	ClientUnknown   ClientStatus = 0
	ClientConnected ClientStatus = 5
	ClientReady     ClientStatus = 10
	ClientPlaying   ClientStatus = 20
	ClientGoal      ClientStatus = 30
)

func (s ClientStatus) String() string {
	switch s {
	case ClientUnknown:
		return "unknown"
	case ClientConnected:
		return "connected"
	case ClientReady:
		return "ready"
	case ClientPlaying:
		return "playing"
	case ClientGoal:
		return "goal"
	default:
		return "invalid"
	}
}

// Valid reports whether s is one of the defined states.
func (s ClientStatus) Valid() bool {
	return s.String() != "invalid"
}

// NetworkItem identifies an item placed at a location.
type NetworkItem struct {
	Item     int64 `json:"item"`
	Location int64 `json:"location"`
	Player   int   `json:"player"`
	Flags    int   `json:"flags"`
}

// NetworkPlayer is one player in the multiworld.
type NetworkPlayer struct {
	Team  int    `json:"team"`
	Slot  int    `json:"slot"`
	Alias string `json:"alias"`
	Name  string `json:"name"`
}

// NetworkSlot describes a slot in Connected.slot_info.
type NetworkSlot struct {
	Name         string `json:"name"`
	Game         string `json:"game"`
	Type         int    `json:"type"`
	GroupMembers []int  `json:"group_members,omitempty"`
}

// GameData is the static per-game metadata of a data package.
type GameData struct {
	ItemNameToID     map[string]int64 `json:"item_name_to_id"`
	LocationNameToID map[string]int64 `json:"location_name_to_id"`
	Checksum         string           `json:"checksum"`
}

// DataPackageObject is the payload of a DataPackage event.
type DataPackageObject struct {
	Games map[string]GameData `json:"games"`
}

// DataStorageOperation is one step applied by Set.
type DataStorageOperation struct {
	Operation string `json:"operation"`
	Value     any    `json:"value"`
}

// JSONMessagePart is one fragment of a PrintJSON message.
type JSONMessagePart struct {
	Type   string `json:"type,omitempty"`
	Text   string `json:"text,omitempty"`
	Color  string `json:"color,omitempty"`
	Flags  int    `json:"flags,omitempty"`
	Player int    `json:"player,omitempty"`
}

// RawValue carries server-defined JSON through untouched.
type RawValue = json.RawMessage
