package core

import "github.com/avheld/coview/internal/domain"

// ParticipantSession binds a domain.Participant and its transport endpoint.
// This is what a room stores and fans out to.
type ParticipantSession interface {
	Meta() *domain.Participant
	Signal() SignalConnection
	UpdateMeta(*domain.Participant) ParticipantSession
	UpdateSignal(SignalConnection) ParticipantSession
}

type participantSession struct {
	meta *domain.Participant
	conn SignalConnection
}

func NewParticipantSession(meta *domain.Participant) ParticipantSession {
	return &participantSession{meta: meta}
}

func (s *participantSession) Meta() *domain.Participant { return s.meta }
func (s *participantSession) Signal() SignalConnection  { return s.conn }

func (s *participantSession) UpdateMeta(meta *domain.Participant) ParticipantSession {
	s.meta = meta
	return s
}

func (s *participantSession) UpdateSignal(conn SignalConnection) ParticipantSession {
	s.conn = conn
	return s
}
