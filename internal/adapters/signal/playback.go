package signal

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/domain"
)

// handlePlayback covers play, pause and seek. The command mutates the
// authoritative room state once and is then multicast to every other
// participant; the sender is never echoed.
func (ctl *GatewayWSController) handlePlayback(
	conn domain.ConnID,
	c *WsGatewayConn,
	kind string,
	data []byte,
) {
	type payload struct {
		Type     string  `json:"type"`
		RoomID   string  `json:"roomId"`
		Position float64 `json:"position"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", kind).Msg("bad playback payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.Position < 0 {
		p.Position = 0
	}

	cmd := domain.Command{Kind: domain.CommandKind(kind), Position: p.Position}
	room, state, err := ctl.Orch.ApplyCommand(conn, cmd)
	if err != nil {
		ctl.sendError(c, "room not found")
		return
	}

	origin := ctl.originOf(conn)
	ctl.BroadcastRoom(room, conn, struct {
		Type      string    `json:"type"`
		Position  float64   `json:"position"`
		Playing   bool      `json:"playing"`
		Timestamp time.Time `json:"timestamp"`
		OriginID  string    `json:"origin_id"`
	}{
		Type:      kind,
		Position:  state.Position,
		Playing:   state.Playing,
		Timestamp: state.UpdatedAt,
		OriginID:  origin,
	})
}

func (ctl *GatewayWSController) handleChangeMedia(
	conn domain.ConnID,
	c *WsGatewayConn,
	data []byte,
) {
	type payload struct {
		Type     string `json:"type"`
		RoomID   string `json:"roomId"`
		MediaRef string `json:"mediaRef"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad change-media payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	cmd := domain.Command{Kind: domain.CmdChangeMedia, MediaRef: p.MediaRef}
	room, state, err := ctl.Orch.ApplyCommand(conn, cmd)
	if err != nil {
		ctl.sendError(c, "room not found")
		return
	}

	ctl.BroadcastRoom(room, conn, struct {
		Type      string    `json:"type"`
		MediaRef  string    `json:"mediaRef"`
		Timestamp time.Time `json:"timestamp"`
		OriginID  string    `json:"origin_id"`
	}{
		Type:      "media-changed",
		MediaRef:  p.MediaRef,
		Timestamp: state.UpdatedAt,
		OriginID:  ctl.originOf(conn),
	})
}

// originOf returns the participant id bound to the connection, falling back
// to the connection id before a join completed.
func (ctl *GatewayWSController) originOf(conn domain.ConnID) string {
	if sess, ok := ctl.Orch.Conns.Session(conn); ok && sess.Meta() != nil && sess.Meta().ID != "" {
		return string(sess.Meta().ID)
	}
	return string(conn)
}
