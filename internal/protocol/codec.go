package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// ErrUnknownCommand is returned for a "cmd" value this package does not know.
var ErrUnknownCommand = errors.New("protocol: unknown cmd")

// Every frame on the wire is a JSON array of {"cmd": ...} objects.

type envelope struct {
	Cmd string `json:"cmd"`
}

func withCmd(name string, v any) (json.RawMessage, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	head := fmt.Sprintf(`{"cmd":%q`, name)
	if bytes.Equal(body, []byte("{}")) {
		return json.RawMessage(head + "}"), nil
	}
	return json.RawMessage(head + "," + string(body[1:])), nil
}

// EncodeCommands builds one frame holding cmds in order.
func EncodeCommands(cmds ...Command) ([]byte, error) {
	parts := make([]json.RawMessage, 0, len(cmds))
	for _, c := range cmds {
		var (
			raw json.RawMessage
			err error
		)
		switch v := c.(type) {
		case Connect, ConnectUpdate, Sync, LocationChecks, LocationScouts, StatusUpdate,
			Say, GetDataPackage, Bounce, Get, Set, SetNotify:
			raw, err = withCmd(v.Cmd(), v)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, c)
		}
		if err != nil {
			return nil, err
		}
		parts = append(parts, raw)
	}
	return json.Marshal(parts)
}

// EncodeEvents builds one frame holding events in order.
func EncodeEvents(events ...Event) ([]byte, error) {
	parts := make([]json.RawMessage, 0, len(events))
	for _, e := range events {
		var (
			raw json.RawMessage
			err error
		)
		switch v := e.(type) {
		case RoomInfo, Connected, ConnectionRefused, ReceivedItems, LocationInfo, RoomUpdate,
			Print, PrintJSON, DataPackage, Bounced, InvalidPacket, Retrieved, SetReply:
			raw, err = withCmd(v.Cmd(), v)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, e)
		}
		if err != nil {
			return nil, err
		}
		parts = append(parts, raw)
	}
	return json.Marshal(parts)
}

func splitFrame(frame []byte) ([]json.RawMessage, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return nil, nil
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(frame, &parts); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return parts, nil
}

func decodeInto[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

// DecodeEvent decodes one {"cmd": ...} object. Unknown cmds return
// ErrUnknownCommand.
func DecodeEvent(raw json.RawMessage) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	var (
		ev  Event
		err error
	)
	switch env.Cmd {
	case "RoomInfo":
		ev, err = decodeInto[RoomInfo](raw)
	case "Connected":
		ev, err = decodeInto[Connected](raw)
	case "ConnectionRefused":
		ev, err = decodeInto[ConnectionRefused](raw)
	case "ReceivedItems":
		ev, err = decodeInto[ReceivedItems](raw)
	case "LocationInfo":
		ev, err = decodeInto[LocationInfo](raw)
	case "RoomUpdate":
		ev, err = decodeInto[RoomUpdate](raw)
	case "Print":
		ev, err = decodeInto[Print](raw)
	case "PrintJSON":
		ev, err = decodeInto[PrintJSON](raw)
	case "DataPackage":
		ev, err = decodeInto[DataPackage](raw)
	case "Bounced":
		ev, err = decodeInto[Bounced](raw)
	case "InvalidPacket":
		ev, err = decodeInto[InvalidPacket](raw)
	case "Retrieved":
		ev, err = decodeInto[Retrieved](raw)
	case "SetReply":
		ev, err = decodeInto[SetReply](raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Cmd)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Cmd, err)
	}
	return ev, nil
}

// DecodeEvents decodes a frame. Unknown cmds are logged and skipped; a
// malformed frame or object is an error.
func DecodeEvents(frame []byte) ([]Event, error) {
	parts, err := splitFrame(frame)
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(parts))
	for _, raw := range parts {
		ev, err := DecodeEvent(raw)
		if errors.Is(err, ErrUnknownCommand) {
			log.Printf("[Protocol] Skipping event: %v", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// DecodeCommand decodes one client command object.
func DecodeCommand(raw json.RawMessage) (Command, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	var (
		cmd Command
		err error
	)
	switch env.Cmd {
	case "Connect":
		cmd, err = decodeInto[Connect](raw)
	case "ConnectUpdate":
		cmd, err = decodeInto[ConnectUpdate](raw)
	case "Sync":
		cmd = Sync{}
	case "LocationChecks":
		cmd, err = decodeInto[LocationChecks](raw)
	case "LocationScouts":
		cmd, err = decodeInto[LocationScouts](raw)
	case "StatusUpdate":
		cmd, err = decodeInto[StatusUpdate](raw)
	case "Say":
		cmd, err = decodeInto[Say](raw)
	case "GetDataPackage":
		cmd, err = decodeInto[GetDataPackage](raw)
	case "Bounce":
		cmd, err = decodeInto[Bounce](raw)
	case "Get":
		cmd, err = decodeInto[Get](raw)
	case "Set":
		cmd, err = decodeInto[Set](raw)
	case "SetNotify":
		cmd, err = decodeInto[SetNotify](raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Cmd)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Cmd, err)
	}
	return cmd, nil
}

// DecodeCommands decodes a client frame; the server side of tests uses it.
func DecodeCommands(frame []byte) ([]Command, error) {
	parts, err := splitFrame(frame)
	if err != nil {
		return nil, err
	}
	cmds := make([]Command, 0, len(parts))
	for _, raw := range parts {
		c, err := DecodeCommand(raw)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}
