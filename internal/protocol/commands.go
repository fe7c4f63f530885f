package protocol

// Command is a message the client sends to the server.
type Command interface {
	// Cmd is the wire "cmd" value.
	Cmd() string
	isCommand()
}

// Connect authenticates a slot.
type Connect struct {
	Password      *string        `json:"password"`
	Game          string         `json:"game"`
	Name          string         `json:"name"`
	UUID          string         `json:"uuid"`
	Version       NetworkVersion `json:"version"`
	ItemsHandling *int           `json:"items_handling"`
	Tags          []string       `json:"tags"`
	SlotData      bool           `json:"slot_data"`
}

// ConnectUpdate changes items handling or tags after Connected.
type ConnectUpdate struct {
	ItemsHandling *int     `json:"items_handling,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// Sync asks the server to resend all received items.
type Sync struct{}

// LocationChecks reports checked locations.
type LocationChecks struct {
	Locations []int64 `json:"locations"`
}

// LocationScouts asks what is placed at the given locations.
type LocationScouts struct {
	Locations    []int64 `json:"locations"`
	CreateAsHint int     `json:"create_as_hint"`
}

// StatusUpdate reports the client's goal state.
type StatusUpdate struct {
	Status ClientStatus `json:"status"`
}

// Say sends a chat line.
type Say struct {
	Text string `json:"text"`
}

// GetDataPackage requests static game metadata. An empty Games asks for all.
type GetDataPackage struct {
	Games []string `json:"games,omitempty"`
}

// Bounce relays data to other clients.
type Bounce struct {
	Games []string `json:"games,omitempty"`
	Slots []int    `json:"slots,omitempty"`
	Tags  []string `json:"tags,omitempty"`
	Data  any      `json:"data"`
}

// Get reads data storage keys.
type Get struct {
	Keys []string `json:"keys"`
}

// Set writes a data storage key.
type Set struct {
	Key        string                 `json:"key"`
	Default    any                    `json:"default"`
	WantReply  bool                   `json:"want_reply"`
	Operations []DataStorageOperation `json:"operations"`
}

// SetNotify subscribes to changes of data storage keys.
type SetNotify struct {
	Keys []string `json:"keys"`
}

func (Connect) Cmd() string        { return "Connect" }
func (ConnectUpdate) Cmd() string  { return "ConnectUpdate" }
func (Sync) Cmd() string           { return "Sync" }
func (LocationChecks) Cmd() string { return "LocationChecks" }
func (LocationScouts) Cmd() string { return "LocationScouts" }
func (StatusUpdate) Cmd() string   { return "StatusUpdate" }
func (Say) Cmd() string            { return "Say" }
func (GetDataPackage) Cmd() string { return "GetDataPackage" }
func (Bounce) Cmd() string         { return "Bounce" }
func (Get) Cmd() string            { return "Get" }
func (Set) Cmd() string            { return "Set" }
func (SetNotify) Cmd() string      { return "SetNotify" }

func (Connect) isCommand()        {}
func (ConnectUpdate) isCommand()  {}
func (Sync) isCommand()           {}
func (LocationChecks) isCommand() {}
func (LocationScouts) isCommand() {}
func (StatusUpdate) isCommand()   {}
func (Say) isCommand()            {}
func (GetDataPackage) isCommand() {}
func (Bounce) isCommand()         {}
func (Get) isCommand()            {}
func (Set) isCommand()            {}
func (SetNotify) isCommand()      {}
