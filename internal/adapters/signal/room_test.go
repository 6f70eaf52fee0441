package signal

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avheld/coview/internal/app"
	"github.com/avheld/coview/internal/core"
	"github.com/avheld/coview/internal/domain"
)

func newTestController() *GatewayWSController {
	return &GatewayWSController{
		Orch: &app.Orchestrator{
			Conns: app.NewConnRegistry(),
			Rooms: core.NewRegistry(),
		},
	}
}

// bindConn registers a gateway connection whose frames land in a buffered
// channel instead of a socket.
func bindConn(ctl *GatewayWSController, id domain.ConnID) *WsGatewayConn {
	wsc := &WsGatewayConn{send: make(chan core.Frame, 16)}
	sess := core.NewParticipantSession(&domain.Participant{ConnID: id}).UpdateSignal(wsc)
	_, cancel := context.WithCancel(context.Background())
	ctl.Orch.Conns.Bind(id, sess, cancel)
	return wsc
}

func drainTypes(t *testing.T, c *WsGatewayConn) []string {
	t.Helper()
	var out []string
	for {
		select {
		case frame := <-c.send:
			var env struct {
				Type string `json:"type"`
			}
			require.NoError(t, json.Unmarshal(frame, &env))
			out = append(out, env.Type)
		default:
			return out
		}
	}
}

func TestRoomSwitch_NotifiesTheRoomLeftBehind(t *testing.T) {
	ctl := newTestController()
	alice := bindConn(ctl, "conn-a")
	bob := bindConn(ctl, "conn-b")

	ctl.handleCreateRoom("conn-a", alice, []byte(`{"type":"create-room","roomName":"R1","userName":"Alice","mediaRef":"M"}`))
	var created struct {
		Type string      `json:"type"`
		Room domain.Room `json:"room"`
	}
	require.NoError(t, json.Unmarshal(<-alice.send, &created))
	require.Equal(t, "room-created", created.Type)

	ctl.handleJoinRoom("conn-b", bob, []byte(`{"type":"join-room","roomId":"`+string(created.Room.ID)+`","userName":"Bob"}`))
	assert.Equal(t, []string{"room-joined"}, drainTypes(t, bob))
	assert.Equal(t, []string{"user-joined"}, drainTypes(t, alice))

	// Bob moves to a new room without dropping his socket; Alice must
	// still be told he left.
	ctl.handleCreateRoom("conn-b", bob, []byte(`{"type":"create-room","roomName":"R2","userName":"Bob","mediaRef":"M2"}`))
	assert.Equal(t, []string{"room-created"}, drainTypes(t, bob))

	require.Len(t, alice.send, 1)
	var leftEv struct {
		Type         string               `json:"type"`
		Participant  domain.Participant   `json:"participant"`
		Participants []domain.Participant `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(<-alice.send, &leftEv))
	assert.Equal(t, "user-left", leftEv.Type)
	assert.Equal(t, "Bob", leftEv.Participant.Name)
	require.Len(t, leftEv.Participants, 1)
	assert.Equal(t, "Alice", leftEv.Participants[0].Name)
	assert.True(t, leftEv.Participants[0].IsHost)
}

func TestRoomSwitch_HostMoveAnnouncesPromotion(t *testing.T) {
	ctl := newTestController()
	alice := bindConn(ctl, "conn-a")
	bob := bindConn(ctl, "conn-b")

	ctl.handleCreateRoom("conn-a", alice, []byte(`{"type":"create-room","roomName":"R1","userName":"Alice","mediaRef":"M"}`))
	var created struct {
		Room domain.Room `json:"room"`
	}
	require.NoError(t, json.Unmarshal(<-alice.send, &created))
	ctl.handleJoinRoom("conn-b", bob, []byte(`{"type":"join-room","roomId":"`+string(created.Room.ID)+`","userName":"Bob"}`))
	drainTypes(t, alice)
	drainTypes(t, bob)

	// The host walks off to a new room; Bob inherits the old one.
	ctl.handleCreateRoom("conn-a", alice, []byte(`{"type":"create-room","roomName":"R2","userName":"Alice","mediaRef":"M"}`))
	drainTypes(t, alice)

	var leftEv struct {
		Type         string               `json:"type"`
		Participants []domain.Participant `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(<-bob.send, &leftEv))
	assert.Equal(t, "user-left", leftEv.Type)
	require.Len(t, leftEv.Participants, 1)
	assert.Equal(t, "Bob", leftEv.Participants[0].Name)
	assert.True(t, leftEv.Participants[0].IsHost, "remaining participant is promoted")
}

func TestStaleSocketTeardownLeavesRejoinedSessionAlone(t *testing.T) {
	ctl := newTestController()
	alice := &WsGatewayConn{send: make(chan core.Frame, 16)}
	sess := core.NewParticipantSession(&domain.Participant{ConnID: "conn-a"}).UpdateSignal(alice)
	_, cancel := context.WithCancel(context.Background())
	staleGen := ctl.Orch.Conns.Bind("conn-a", sess, cancel)

	ctl.handleCreateRoom("conn-a", alice, []byte(`{"type":"create-room","roomName":"R1","userName":"Alice","mediaRef":"M"}`))
	var created struct {
		Room domain.Room `json:"room"`
	}
	require.NoError(t, json.Unmarshal(<-alice.send, &created))

	// The client reconnects under the same token before the old socket's
	// read loop notices anything.
	rejoined := bindConn(ctl, "conn-a")
	ctl.handleJoinRoom("conn-a", rejoined, []byte(`{"type":"join-room","roomId":"`+string(created.Room.ID)+`","userName":"Alice"}`))
	assert.Equal(t, []string{"room-joined"}, drainTypes(t, rejoined))

	// The old socket finally dies; its teardown must not tear out the
	// rejoined session or its room.
	ctl.onDisconnect("conn-a", staleGen)

	_, ok := ctl.Orch.Conns.Session("conn-a")
	assert.True(t, ok, "fresh binding survives stale teardown")
	roomID, ok := ctl.Orch.Conns.RoomOf("conn-a")
	require.True(t, ok)
	assert.Equal(t, created.Room.ID, roomID)
	_, ok = ctl.Orch.Rooms.Get(created.Room.ID)
	assert.True(t, ok, "room not deleted by the stale socket")
}
