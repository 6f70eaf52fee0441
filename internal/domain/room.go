package domain

import (
	"time"

	"github.com/google/uuid"
)

type (
	RoomName string
	RoomID   string
)

const MaxRoomNameLen = 36

// PlaybackState is the authoritative play/pause/position triple of a room.
type PlaybackState struct {
	Playing   bool      `json:"playing"`
	Position  float64   `json:"position"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Room groups participants around one shared playback state.
// Mutated only by the session registry; everyone else sees snapshots.
type Room struct {
	ID        RoomID        `json:"id"`
	Name      RoomName      `json:"name"`
	MediaRef  string        `json:"media_ref"`
	Playback  PlaybackState `json:"playback"`
	CreatedAt time.Time     `json:"created_at"`
}

func NewRoom(name RoomName, mediaRef string) *Room {
	if len(name) > MaxRoomNameLen {
		name = name[:MaxRoomNameLen]
	}
	now := time.Now()
	return &Room{
		ID:        RoomID(uuid.NewString()),
		Name:      name,
		MediaRef:  mediaRef,
		Playback:  PlaybackState{UpdatedAt: now},
		CreatedAt: now,
	}
}
