package core

import (
	"time"

	"github.com/avheld/coview/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the orchestrator.
// Dropped sessions are a partial failure, never a hard error.
type PublishResult struct {
	SentTo  int
	Dropped []ParticipantSession
}

// LeaveResult describes the outcome of removing a participant.
type LeaveResult struct {
	Removed  *domain.Participant
	Promoted *domain.Participant
	Empty    bool
}

// RoomService is the core-facing API of a room. It owns the membership set
// and the authoritative playback state but never touches transport
// resources. Apply and Leave are serialized per room: no two commands
// against the same room mutate state concurrently.
type RoomService interface {
	Snapshot() domain.Room
	ParticipantCount() int
	ParticipantsSnapshot() []domain.Participant

	Join(p *domain.Participant, s ParticipantSession)
	Leave(conn domain.ConnID) LeaveResult
	Apply(cmd domain.Command) domain.PlaybackState
	Broadcast(from domain.ConnID, data Frame) PublishResult
}

// RoomInfo is the discovery-listing view of a room.
type RoomInfo struct {
	ID               domain.RoomID   `json:"id"`
	Name             domain.RoomName `json:"name"`
	ParticipantCount int             `json:"participantCount"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Registry owns the mapping from room id to room. Process-scoped state
// with explicit construction and teardown; no ambient singleton.
type Registry interface {
	Create(name domain.RoomName, mediaRef string) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	Remove(id domain.RoomID)
	List() []RoomInfo
	Reset()
}
