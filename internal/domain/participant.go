// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxParticipantNameLen = 36

var (
	ErrNameEmpty   = errors.New("participant name empty")
	ErrNameTooLong = errors.New("participant name too long")
)

type (
	ParticipantID string
	ConnID        string
)

// Participant is one connected viewer inside a room. JoinSeq is the
// room-local monotonic join counter used for deterministic host promotion.
type Participant struct {
	ID      ParticipantID `json:"id"`
	Name    string        `json:"name"`
	IsHost  bool          `json:"is_host"`
	ConnID  ConnID        `json:"-"`
	JoinSeq uint64        `json:"-"`
}

// NewParticipant avoids raw struct literals in adapters and keeps
// construction obvious.
func NewParticipant(name string, conn ConnID) (*Participant, error) {
	if len(name) == 0 {
		return nil, ErrNameEmpty
	}
	if len(name) > MaxParticipantNameLen {
		return nil, ErrNameTooLong
	}
	return &Participant{
		ID:     ParticipantID(uuid.NewString()),
		Name:   name,
		ConnID: conn,
	}, nil
}
