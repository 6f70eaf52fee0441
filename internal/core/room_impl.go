package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/domain"
)

// roomImpl is a threadsafe in-memory room. One mutex serializes every
// mutation, which gives the per-room "one command at a time" guarantee;
// different rooms run on independent locks. It never closes adapter-owned
// resources.
type roomImpl struct {
	mu      sync.Mutex
	room    *domain.Room
	byConn  map[domain.ConnID]ParticipantSession
	joinSeq uint64
}

func NewRoomService(room *domain.Room) RoomService {
	return &roomImpl{
		room:   room,
		byConn: make(map[domain.ConnID]ParticipantSession),
	}
}

func (r *roomImpl) Snapshot() domain.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.room
}

func (r *roomImpl) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byConn)
}

// ParticipantsSnapshot returns members in join order.
func (r *roomImpl) ParticipantsSnapshot() []domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.membersLocked()
}

func (r *roomImpl) membersLocked() []domain.Participant {
	out := make([]domain.Participant, 0, len(r.byConn))
	for _, s := range r.byConn {
		out = append(out, *s.Meta())
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].JoinSeq < out[j-1].JoinSeq; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (r *roomImpl) Join(p *domain.Participant, s ParticipantSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joinSeq++
	p.JoinSeq = r.joinSeq
	if len(r.byConn) == 0 {
		p.IsHost = true
	}
	r.byConn[p.ConnID] = s
	log.Info().Str("module", "core.room").
		Str("room", string(r.room.ID)).
		Str("participant", string(p.ID)).
		Bool("host", p.IsHost).
		Msg("participant joined")
}

// Leave removes the participant bound to conn. When the removed participant
// was host and others remain, the earliest-joined remaining participant is
// promoted (lowest join sequence, deterministic by construction).
func (r *roomImpl) Leave(conn domain.ConnID) LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byConn[conn]
	if !ok {
		return LeaveResult{Empty: len(r.byConn) == 0}
	}
	removed := s.Meta()
	delete(r.byConn, conn)

	res := LeaveResult{Removed: removed, Empty: len(r.byConn) == 0}
	if removed.IsHost && !res.Empty {
		var next *domain.Participant
		for _, rest := range r.byConn {
			m := rest.Meta()
			if next == nil || m.JoinSeq < next.JoinSeq {
				next = m
			}
		}
		next.IsHost = true
		res.Promoted = next
	}
	log.Info().Str("module", "core.room").
		Str("room", string(r.room.ID)).
		Str("participant", string(removed.ID)).
		Bool("empty", res.Empty).
		Msg("participant left")
	return res
}

// Apply mutates the authoritative playback state and returns the result.
// Change-media resets playback to a paused position zero. Concurrent
// senders racing on the same room resolve to last-applied-wins.
func (r *roomImpl) Apply(cmd domain.Command) domain.PlaybackState {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	switch cmd.Kind {
	case domain.CmdPlay:
		r.room.Playback = domain.PlaybackState{Playing: true, Position: cmd.Position, UpdatedAt: now}
	case domain.CmdPause:
		r.room.Playback = domain.PlaybackState{Playing: false, Position: cmd.Position, UpdatedAt: now}
	case domain.CmdSeek:
		r.room.Playback.Position = cmd.Position
		r.room.Playback.UpdatedAt = now
	case domain.CmdChangeMedia:
		r.room.MediaRef = cmd.MediaRef
		r.room.Playback = domain.PlaybackState{UpdatedAt: now}
	}
	return r.room.Playback
}

// Broadcast fans data out to every participant except the sender.
// Slow consumers are collected as Dropped, not retried here.
func (r *roomImpl) Broadcast(from domain.ConnID, data Frame) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := PublishResult{}
	for conn, s := range r.byConn {
		if conn == from {
			continue
		}
		sig := s.Signal()
		if sig == nil {
			continue
		}
		if err := sig.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, s)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").
		Str("room", string(r.room.ID)).
		Str("from", string(from)).
		Int("sent_to", res.SentTo).
		Int("dropped", len(res.Dropped)).
		Msg("broadcast result")
	return res
}
