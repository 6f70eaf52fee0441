package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/app"
	"github.com/avheld/coview/internal/core"
	"github.com/avheld/coview/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// GatewayWSController serializes wire commands into orchestrator calls and
// multicasts the resulting events to the other participants of the room.
type GatewayWSController struct {
	Orch       *app.Orchestrator
	Chat       *ChatLimiter
	ReadLim    int64
	PingPeriod time.Duration
}

func NewGatewayWSController(orch *app.Orchestrator, chat *ChatLimiter, readLimit int64, pingPeriod time.Duration) *GatewayWSController {
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &GatewayWSController{Orch: orch, Chat: chat, ReadLim: readLimit, PingPeriod: pingPeriod}
}

type WsGatewayConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsGatewayConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsGatewayConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// BroadcastRoom sends v to every participant of the room except the sender.
// The sender is never echoed its own event.
func (ctl *GatewayWSController) BroadcastRoom(room core.RoomService, from domain.ConnID, v any) {
	frame, err := encodeJSON(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("broadcast marshal")
		return
	}
	res := room.Broadcast(from, frame)
	if ctl.Orch.Metrics != nil {
		ctl.Orch.Metrics.AddEventsMulticast(res.SentTo)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *GatewayWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	conn := domain.ConnID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("conn", string(conn)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.ReadLim > 0 {
		ws.SetReadLimit(ctl.ReadLim)
	}

	wsc := &WsGatewayConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	// Participant meta is attached on create-room/join-room; until then the
	// session carries only the transport.
	sess := core.NewParticipantSession(&domain.Participant{ConnID: conn}).UpdateSignal(wsc)
	ctx, cancel := context.WithCancel(ctx)
	gen := ctl.Orch.Conns.Bind(conn, sess, cancel)

	go ctl.writePump(ctx, wsc)
	go ctl.readPump(ctx, conn, gen, wsc)
}
