package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/app"
	"github.com/avheld/coview/internal/domain"
)

func (ctl *GatewayWSController) handleCreateRoom(
	conn domain.ConnID,
	c *WsGatewayConn,
	data []byte,
) {
	type payload struct {
		Type     string `json:"type"`
		RoomName string `json:"roomName"`
		UserName string `json:"userName"`
		MediaRef string `json:"mediaRef"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create-room payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	room, part, left, err := ctl.Orch.CreateRoom(conn, p.RoomName, p.UserName, p.MediaRef)
	if err != nil {
		ctl.sendError(c, err.Error())
		return
	}
	// Whoever remains in the previous room learns the caller is gone.
	ctl.announceLeft(left)

	ctl.sendJSON(c, struct {
		Type         string               `json:"type"`
		Room         domain.Room          `json:"room"`
		Participant  domain.Participant   `json:"participant"`
		Participants []domain.Participant `json:"participants"`
	}{
		Type:         "room-created",
		Room:         room.Snapshot(),
		Participant:  *part,
		Participants: room.ParticipantsSnapshot(),
	})
}

func (ctl *GatewayWSController) handleJoinRoom(
	conn domain.ConnID,
	c *WsGatewayConn,
	data []byte,
) {
	type payload struct {
		Type     string `json:"type"`
		RoomID   string `json:"roomId"`
		UserName string `json:"userName"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join-room payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	room, part, left, err := ctl.Orch.Join(conn, domain.RoomID(p.RoomID), p.UserName)
	if errors.Is(err, domain.ErrRoomNotFound) {
		log.Warn().Str("module", "signal").Str("room_id", p.RoomID).Msg("join on unknown room")
		ctl.sendError(c, "room not found")
		return
	}
	if err != nil {
		ctl.sendError(c, err.Error())
		return
	}
	ctl.announceLeft(left)

	participants := room.ParticipantsSnapshot()
	ctl.sendJSON(c, struct {
		Type         string               `json:"type"`
		Room         domain.Room          `json:"room"`
		Participant  domain.Participant   `json:"participant"`
		Participants []domain.Participant `json:"participants"`
	}{
		Type:         "room-joined",
		Room:         room.Snapshot(),
		Participant:  *part,
		Participants: participants,
	})

	ctl.BroadcastRoom(room, conn, struct {
		Type         string               `json:"type"`
		Participant  domain.Participant   `json:"participant"`
		Participants []domain.Participant `json:"participants"`
	}{
		Type:         "user-joined",
		Participant:  *part,
		Participants: participants,
	})
}

// handleLeave removes the caller from its room without dropping the socket.
func (ctl *GatewayWSController) handleLeave(conn domain.ConnID, c *WsGatewayConn) {
	ctl.announceLeft(ctl.Orch.Disconnect(conn))
	ctl.sendJSON(c, map[string]any{"type": "left"})
}

// onDisconnect runs when the socket dies: membership cleanup plus the
// user-left notification to whoever remains. A socket superseded by a
// rebind under the same client token must not tear down the new session,
// so the whole path is gated on the binding generation.
func (ctl *GatewayWSController) onDisconnect(conn domain.ConnID, gen uint64) {
	if !ctl.Orch.Conns.IsCurrent(conn, gen) {
		log.Debug().Str("module", "signal").Str("conn", string(conn)).Msg("stale socket teardown skipped")
		return
	}
	ctl.announceLeft(ctl.Orch.Disconnect(conn))
	ctl.Orch.Conns.Unbind(conn, gen)
	if ctl.Chat != nil {
		ctl.Chat.Forget(conn)
	}
}

func (ctl *GatewayWSController) announceLeft(res app.DisconnectResult) {
	if res.Removed == nil || res.RoomDeleted || res.Room == nil {
		return
	}
	ctl.BroadcastRoom(res.Room, res.Removed.ConnID, struct {
		Type         string               `json:"type"`
		Participant  domain.Participant   `json:"participant"`
		Participants []domain.Participant `json:"participants"`
	}{
		Type:         "user-left",
		Participant:  *res.Removed,
		Participants: res.Room.ParticipantsSnapshot(),
	})
}
