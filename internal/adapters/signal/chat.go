package signal

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/domain"
)

func (ctl *GatewayWSController) handleSendMessage(
	conn domain.ConnID,
	c *WsGatewayConn,
	data []byte,
) {
	type payload struct {
		Type     string `json:"type"`
		RoomID   string `json:"roomId"`
		UserName string `json:"userName"`
		Text     string `json:"text"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad send-message payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.Text == "" {
		ctl.sendError(c, "empty message")
		return
	}
	if ctl.Chat != nil && !ctl.Chat.Allow(conn) {
		ctl.sendError(c, "too many messages")
		return
	}

	room, msg, err := ctl.Orch.SaveChat(conn, p.UserName, p.Text)
	if err != nil {
		ctl.sendError(c, "room not found")
		return
	}

	out := struct {
		Type      string    `json:"type"`
		ID        string    `json:"id"`
		UserName  string    `json:"userName"`
		Text      string    `json:"text"`
		Timestamp time.Time `json:"timestamp"`
		OriginID  string    `json:"origin_id"`
	}{
		Type:      "new-message",
		ID:        msg.ID,
		UserName:  msg.UserName,
		Text:      msg.Text,
		Timestamp: msg.CreatedAt,
		OriginID:  ctl.originOf(conn),
	}
	// Chat is the one event echoed back to its sender so the local pane
	// shows the stored form.
	ctl.sendJSON(c, out)
	ctl.BroadcastRoom(room, conn, out)
}
