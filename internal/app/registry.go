package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/core"
	"github.com/avheld/coview/internal/domain"
)

type connEntry struct {
	RoomID  domain.RoomID
	Session core.ParticipantSession
	Cancel  context.CancelFunc
	Gen     uint64
}

// ConnRegistry tracks live gateway connections and which room each one is
// bound to. Rooms own the participant set; this map only answers
// "which room does this connection belong to" and carries the cancel
// handle of the connection's pumps.
type ConnRegistry struct {
	mu      sync.RWMutex
	conns   map[domain.ConnID]*connEntry
	nextGen uint64
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{conns: make(map[domain.ConnID]*connEntry)}
}

// Bind registers the connection and returns its binding generation. A
// rebind under the same id (reconnect with the same client token) cancels
// the previous pumps first; the stale pumps' teardown must present their
// own generation so it cannot evict the fresh binding.
func (r *ConnRegistry) Bind(conn domain.ConnID, sess core.ParticipantSession, cancel context.CancelFunc) uint64 {
	r.mu.Lock()
	prev := r.conns[conn]
	r.nextGen++
	gen := r.nextGen
	r.conns[conn] = &connEntry{Session: sess, Cancel: cancel, Gen: gen}
	r.mu.Unlock()
	if prev != nil && prev.Cancel != nil {
		prev.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Uint64("gen", gen).Msg("bound connection")
	return gen
}

// IsCurrent reports whether gen is still the live binding for conn.
func (r *ConnRegistry) IsCurrent(conn domain.ConnID, gen uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[conn]
	return ok && e.Gen == gen
}

// Unbind removes the binding only if gen still owns it; a stale socket's
// late teardown is a no-op against a rebound connection.
func (r *ConnRegistry) Unbind(conn domain.ConnID, gen uint64) {
	r.mu.Lock()
	e, ok := r.conns[conn]
	if !ok || e.Gen != gen {
		r.mu.Unlock()
		return
	}
	delete(r.conns, conn)
	r.mu.Unlock()
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("unbound connection")
}

func (r *ConnRegistry) Session(conn domain.ConnID) (core.ParticipantSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[conn]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *ConnRegistry) RoomOf(conn domain.ConnID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[conn]
	if !ok || e.RoomID == "" {
		return "", false
	}
	return e.RoomID, true
}

func (r *ConnRegistry) SetRoom(conn domain.ConnID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[conn]
	if !ok {
		return false
	}
	e.RoomID = room
	return true
}

func (r *ConnRegistry) ClearRoom(conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[conn]; ok {
		e.RoomID = ""
	}
}
