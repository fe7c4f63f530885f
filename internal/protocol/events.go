package protocol

// Event is a message the server sends to the client.
type Event interface {
	// Cmd is the wire "cmd" value.
	Cmd() string
	isEvent()
}

// RoomInfo is the first message of every connection.
type RoomInfo struct {
	Version              NetworkVersion    `json:"version"`
	GeneratorVersion     NetworkVersion    `json:"generator_version"`
	Tags                 []string          `json:"tags"`
	Password             bool              `json:"password"`
	Permissions          map[string]int    `json:"permissions"`
	HintCost             int               `json:"hint_cost"`
	LocationCheckPoints  int               `json:"location_check_points"`
	Games                []string          `json:"games"`
	DatapackageChecksums map[string]string `json:"datapackage_checksums"`
	SeedName             string            `json:"seed_name"`
	Time                 float64           `json:"time"`
}

// Connected accepts a Connect.
type Connected struct {
	Team             int                    `json:"team"`
	Slot             int                    `json:"slot"`
	Players          []NetworkPlayer        `json:"players"`
	MissingLocations []int64                `json:"missing_locations"`
	CheckedLocations []int64                `json:"checked_locations"`
	SlotData         RawValue               `json:"slot_data,omitempty"`
	SlotInfo         map[string]NetworkSlot `json:"slot_info,omitempty"`
	HintPoints       int                    `json:"hint_points"`
}

// ConnectionRefused rejects a Connect.
type ConnectionRefused struct {
	Errors []string `json:"errors"`
}

// ReceivedItems delivers items starting at Index.
type ReceivedItems struct {
	Index int           `json:"index"`
	Items []NetworkItem `json:"items"`
}

// LocationInfo answers LocationScouts.
type LocationInfo struct {
	Locations []NetworkItem `json:"locations"`
}

// RoomUpdate carries changed RoomInfo or Connected fields.
type RoomUpdate struct {
	Tags                []string        `json:"tags,omitempty"`
	Permissions         map[string]int  `json:"permissions,omitempty"`
	HintCost            *int            `json:"hint_cost,omitempty"`
	LocationCheckPoints *int            `json:"location_check_points,omitempty"`
	HintPoints          *int            `json:"hint_points,omitempty"`
	Players             []NetworkPlayer `json:"players,omitempty"`
	CheckedLocations    []int64         `json:"checked_locations,omitempty"`
	MissingLocations    []int64         `json:"missing_locations,omitempty"`
}

// Print is a plain text notice.
type Print struct {
	Text string `json:"text"`
}

// PrintJSON is a structured notice; chat arrives with Type "Chat".
type PrintJSON struct {
	Data      []JSONMessagePart `json:"data"`
	Type      string            `json:"type,omitempty"`
	Receiving int               `json:"receiving,omitempty"`
	Item      *NetworkItem      `json:"item,omitempty"`
	Found     *bool             `json:"found,omitempty"`
	Team      int               `json:"team,omitempty"`
	Slot      int               `json:"slot,omitempty"`
	Message   string            `json:"message,omitempty"`
	Tags      []string          `json:"tags,omitempty"`
	Countdown int               `json:"countdown,omitempty"`
}

// Text joins the text of all parts.
func (p PrintJSON) Text() string {
	var s string
	for _, part := range p.Data {
		s += part.Text
	}
	return s
}

// DataPackage answers GetDataPackage.
type DataPackage struct {
	Data DataPackageObject `json:"data"`
}

// Bounced is relayed data from another client.
type Bounced struct {
	Games []string `json:"games,omitempty"`
	Slots []int    `json:"slots,omitempty"`
	Tags  []string `json:"tags,omitempty"`
	Data  RawValue `json:"data"`
}

// InvalidPacket reports a command the server could not handle.
type InvalidPacket struct {
	Type        string `json:"type"`
	OriginalCmd string `json:"original_cmd,omitempty"`
	Text        string `json:"text"`
}

// Retrieved answers Get.
type Retrieved struct {
	Keys map[string]RawValue `json:"keys"`
}

// SetReply reports a data storage change.
type SetReply struct {
	Key           string   `json:"key"`
	Value         RawValue `json:"value"`
	OriginalValue RawValue `json:"original_value,omitempty"`
	Slot          int      `json:"slot,omitempty"`
}

func (RoomInfo) Cmd() string          { return "RoomInfo" }
func (Connected) Cmd() string         { return "Connected" }
func (ConnectionRefused) Cmd() string { return "ConnectionRefused" }
func (ReceivedItems) Cmd() string     { return "ReceivedItems" }
func (LocationInfo) Cmd() string      { return "LocationInfo" }
func (RoomUpdate) Cmd() string        { return "RoomUpdate" }
func (Print) Cmd() string             { return "Print" }
func (PrintJSON) Cmd() string         { return "PrintJSON" }
func (DataPackage) Cmd() string       { return "DataPackage" }
func (Bounced) Cmd() string           { return "Bounced" }
func (InvalidPacket) Cmd() string     { return "InvalidPacket" }
func (Retrieved) Cmd() string         { return "Retrieved" }
func (SetReply) Cmd() string          { return "SetReply" }

func (RoomInfo) isEvent()          {}
func (Connected) isEvent()         {}
func (ConnectionRefused) isEvent() {}
func (ReceivedItems) isEvent()     {}
func (LocationInfo) isEvent()      {}
func (RoomUpdate) isEvent()        {}
func (Print) isEvent()             {}
func (PrintJSON) isEvent()         {}
func (DataPackage) isEvent()       {}
func (Bounced) isEvent()           {}
func (InvalidPacket) isEvent()     {}
func (Retrieved) isEvent()         {}
func (SetReply) isEvent()          {}
