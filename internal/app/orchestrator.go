// Package app wires gateway connections to the session registry. The
// orchestrator is the only writer path into room state: adapters decode
// wire messages, call it, and fan the resulting events back out.
package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/core"
	"github.com/avheld/coview/internal/domain"
	"github.com/avheld/coview/internal/history"
	"github.com/avheld/coview/internal/metrics"
)

type Orchestrator struct {
	Conns   *ConnRegistry
	Rooms   core.Registry
	History *history.Store
	Metrics *metrics.Metrics
}

// DisconnectResult tells the adapter what to announce to the remainder of
// the room, if anything.
type DisconnectResult struct {
	RoomID      domain.RoomID
	Room        core.RoomService
	Removed     *domain.Participant
	Promoted    *domain.Participant
	RoomDeleted bool
}

// CreateRoom creates a room with the caller as its sole, hosting
// participant. The returned DisconnectResult describes the room the
// caller left to get here, so the adapter can notify its remainder.
func (o *Orchestrator) CreateRoom(conn domain.ConnID, roomName, userName, mediaRef string) (core.RoomService, *domain.Participant, DisconnectResult, error) {
	sess, ok := o.Conns.Session(conn)
	if !ok {
		return nil, nil, DisconnectResult{}, domain.ErrRoomNotFound
	}
	p, err := domain.NewParticipant(userName, conn)
	if err != nil {
		return nil, nil, DisconnectResult{}, err
	}

	// Leaving any previous room first keeps "one room per connection".
	left := o.Disconnect(conn)

	room := o.Rooms.Create(domain.RoomName(roomName), mediaRef)
	room.Join(p, sess.UpdateMeta(p))
	o.Conns.SetRoom(conn, room.Snapshot().ID)
	if o.Metrics != nil {
		o.Metrics.IncRoomsCreated()
	}
	return room, p, left, nil
}

// Join adds the caller to an existing room. Fails with ErrRoomNotFound and
// mutates nothing when the id is unknown. The first joiner of an otherwise
// empty room becomes host. The returned DisconnectResult describes the
// previous room the caller left, if any.
func (o *Orchestrator) Join(conn domain.ConnID, roomID domain.RoomID, userName string) (core.RoomService, *domain.Participant, DisconnectResult, error) {
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return nil, nil, DisconnectResult{}, domain.ErrRoomNotFound
	}
	sess, ok := o.Conns.Session(conn)
	if !ok {
		return nil, nil, DisconnectResult{}, domain.ErrRoomNotFound
	}
	p, err := domain.NewParticipant(userName, conn)
	if err != nil {
		return nil, nil, DisconnectResult{}, err
	}

	left := o.Disconnect(conn)
	room.Join(p, sess.UpdateMeta(p))
	o.Conns.SetRoom(conn, roomID)
	log.Info().Str("module", "app.orch").Str("conn", string(conn)).Str("room", string(roomID)).Msg("joined room")
	return room, p, left, nil
}

// ApplyCommand mutates the caller's room. The room's own lock serializes
// commands, so arrival order at the lock is application order.
func (o *Orchestrator) ApplyCommand(conn domain.ConnID, cmd domain.Command) (core.RoomService, domain.PlaybackState, error) {
	roomID, ok := o.Conns.RoomOf(conn)
	if !ok {
		return nil, domain.PlaybackState{}, domain.ErrRoomNotFound
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return nil, domain.PlaybackState{}, domain.ErrRoomNotFound
	}
	state := room.Apply(cmd)
	if o.Metrics != nil {
		o.Metrics.IncCommandsApplied()
	}
	return room, state, nil
}

// SaveChat records a chat message for the caller's room and returns the
// stored form for fan-out. History persistence is best-effort: a storage
// error is logged, the message still flows.
func (o *Orchestrator) SaveChat(conn domain.ConnID, userName, text string) (core.RoomService, history.Message, error) {
	roomID, ok := o.Conns.RoomOf(conn)
	if !ok {
		return nil, history.Message{}, domain.ErrRoomNotFound
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return nil, history.Message{}, domain.ErrRoomNotFound
	}
	msg := history.Message{
		ID:        uuid.NewString(),
		RoomID:    string(roomID),
		UserName:  userName,
		Text:      text,
		CreatedAt: time.Now(),
	}
	if o.History != nil {
		if err := o.History.Append(msg); err != nil {
			log.Error().Err(err).Str("module", "app.orch").Str("room", string(roomID)).Msg("chat append failed")
		}
	}
	if o.Metrics != nil {
		o.Metrics.IncChatMessages()
	}
	return room, msg, nil
}

// Disconnect removes the connection's participant from whichever room holds
// it, promotes a host if needed, and deletes the room once empty.
func (o *Orchestrator) Disconnect(conn domain.ConnID) DisconnectResult {
	roomID, ok := o.Conns.RoomOf(conn)
	if !ok {
		return DisconnectResult{}
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		o.Conns.ClearRoom(conn)
		return DisconnectResult{}
	}

	left := room.Leave(conn)
	o.Conns.ClearRoom(conn)

	res := DisconnectResult{
		RoomID:   roomID,
		Room:     room,
		Removed:  left.Removed,
		Promoted: left.Promoted,
	}
	if left.Empty {
		o.Rooms.Remove(roomID)
		if o.History != nil {
			if err := o.History.Purge(roomID); err != nil {
				log.Error().Err(err).Str("module", "app.orch").Str("room", string(roomID)).Msg("history purge failed")
			}
		}
		if o.Metrics != nil {
			o.Metrics.IncRoomsDeleted()
		}
		res.RoomDeleted = true
	}
	return res
}

func (o *Orchestrator) ListRooms() []core.RoomInfo {
	return o.Rooms.List()
}

func (o *Orchestrator) RecentChat(roomID domain.RoomID, limit int) ([]history.Message, error) {
	if o.History == nil {
		return nil, nil
	}
	return o.History.Recent(roomID, limit)
}
