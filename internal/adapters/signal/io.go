package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/core"
	"github.com/avheld/coview/internal/domain"
)

func (ctl *GatewayWSController) writePump(ctx context.Context, c *WsGatewayConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *GatewayWSController) readPump(ctx context.Context, conn domain.ConnID, gen uint64, c *WsGatewayConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(conn)).Msg("readPump closing")
		ctl.onDisconnect(conn, gen)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(conn)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(conn)).Msg("readPump read error")
				return
			}
			ctl.handleSignal(conn, c, data)
		}
	}
}

func (ctl *GatewayWSController) handleSignal(conn domain.ConnID, c *WsGatewayConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "create-room":
		ctl.handleCreateRoom(conn, c, data)
	case "join-room":
		ctl.handleJoinRoom(conn, c, data)
	case "play", "pause", "seek":
		ctl.handlePlayback(conn, c, env.Type, data)
	case "change-media":
		ctl.handleChangeMedia(conn, c, data)
	case "send-message":
		ctl.handleSendMessage(conn, c, data)
	case "leave":
		ctl.handleLeave(conn, c)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func encodeJSON(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}

func (ctl *GatewayWSController) sendJSON(c *WsGatewayConn, v any) {
	b, err := encodeJSON(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *GatewayWSController) sendError(c *WsGatewayConn, msg string) {
	ctl.sendJSON(c, map[string]any{
		"type":    "error",
		"message": msg,
	})
}
