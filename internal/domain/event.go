package domain

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventPlay         EventType = "play"
	EventPause        EventType = "pause"
	EventSeek         EventType = "seek"
	EventMediaChanged EventType = "media-changed"
	EventChat         EventType = "new-message"
)

// SyncEvent is the unit of synchronization traffic, both on the gateway
// wire and on the local relay. A receiver must never apply an event whose
// OriginID equals its own identity.
type SyncEvent struct {
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	OriginID  string          `json:"origin_id"`
}

type CommandKind string

const (
	CmdPlay        CommandKind = "play"
	CmdPause       CommandKind = "pause"
	CmdSeek        CommandKind = "seek"
	CmdChangeMedia CommandKind = "change-media"
)

// Command is a playback mutation against a room's authoritative state.
// Position is meaningful for play/pause/seek, MediaRef for change-media.
type Command struct {
	Kind     CommandKind
	Position float64
	MediaRef string
}

func (c Command) EventType() EventType {
	switch c.Kind {
	case CmdPlay:
		return EventPlay
	case CmdPause:
		return EventPause
	case CmdSeek:
		return EventSeek
	default:
		return EventMediaChanged
	}
}
