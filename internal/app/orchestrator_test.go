package app

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avheld/coview/internal/core"
	"github.com/avheld/coview/internal/domain"
	"github.com/avheld/coview/internal/history"
)

type fakeConn struct {
	frames chan core.Frame
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan core.Frame, 16)}
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	select {
	case f.frames <- fr:
		return nil
	default:
		return errors.New("buffer full")
	}
}

func (f *fakeConn) Close() {}

func newOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &Orchestrator{
		Conns:   NewConnRegistry(),
		Rooms:   core.NewRegistry(),
		History: store,
	}
}

func bind(o *Orchestrator, conn domain.ConnID) *fakeConn {
	fc := newFakeConn()
	sess := core.NewParticipantSession(&domain.Participant{ConnID: conn}).UpdateSignal(fc)
	_, cancel := context.WithCancel(context.Background())
	o.Conns.Bind(conn, sess, cancel)
	return fc
}

func TestOrchestrator_JoinUnknownRoomMutatesNothing(t *testing.T) {
	o := newOrchestrator(t)
	bind(o, "conn-a")

	_, _, _, err := o.Join("conn-a", "missing", "Alice")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	assert.Empty(t, o.ListRooms())
	_, bound := o.Conns.RoomOf("conn-a")
	assert.False(t, bound)
}

func TestOrchestrator_CreateJoinCommandDisconnect(t *testing.T) {
	o := newOrchestrator(t)
	aliceConn := bind(o, "conn-a")
	bobConn := bind(o, "conn-b")

	// Alice creates the room and hosts it; playback starts paused at zero.
	room, alice, _, err := o.CreateRoom("conn-a", "R1", "Alice", "M")
	require.NoError(t, err)
	assert.True(t, alice.IsHost)
	snap := room.Snapshot()
	assert.False(t, snap.Playback.Playing)
	assert.Equal(t, 0.0, snap.Playback.Position)

	// Bob joins; both see [Alice(host), Bob].
	room2, bob, _, err := o.Join("conn-b", snap.ID, "Bob")
	require.NoError(t, err)
	assert.False(t, bob.IsHost)
	parts := room2.ParticipantsSnapshot()
	require.Len(t, parts, 2)
	assert.Equal(t, "Alice", parts[0].Name)
	assert.True(t, parts[0].IsHost)
	assert.Equal(t, "Bob", parts[1].Name)

	// Alice plays; the room fan-out reaches Bob and only Bob.
	cmdRoom, state, err := o.ApplyCommand("conn-a", domain.Command{Kind: domain.CmdPlay, Position: 0})
	require.NoError(t, err)
	assert.True(t, state.Playing)
	res := cmdRoom.Broadcast("conn-a", core.Frame(`{"type":"play","position":0}`))
	assert.Equal(t, 1, res.SentTo)
	require.Len(t, bobConn.frames, 1)
	var ev struct {
		Type     string  `json:"type"`
		Position float64 `json:"position"`
	}
	require.NoError(t, json.Unmarshal(<-bobConn.frames, &ev))
	assert.Equal(t, "play", ev.Type)
	assert.Equal(t, 0.0, ev.Position)
	assert.Len(t, aliceConn.frames, 0)

	// Alice disconnects; Bob is promoted and the room persists.
	left := o.Disconnect("conn-a")
	require.NotNil(t, left.Promoted)
	assert.Equal(t, "Bob", left.Promoted.Name)
	assert.False(t, left.RoomDeleted)
	require.Len(t, o.ListRooms(), 1)
	assert.Equal(t, 1, o.ListRooms()[0].ParticipantCount)

	// Bob disconnects; the room is deleted before any further join can
	// find it.
	left = o.Disconnect("conn-b")
	assert.True(t, left.RoomDeleted)
	assert.Empty(t, o.ListRooms())

	_, _, _, err = o.Join("conn-a", snap.ID, "Alice")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestOrchestrator_CommandWithoutRoom(t *testing.T) {
	o := newOrchestrator(t)
	bind(o, "conn-a")

	_, _, err := o.ApplyCommand("conn-a", domain.Command{Kind: domain.CmdPause})
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestOrchestrator_ChatPersistsAndPurges(t *testing.T) {
	o := newOrchestrator(t)
	bind(o, "conn-a")

	room, _, _, err := o.CreateRoom("conn-a", "R1", "Alice", "M")
	require.NoError(t, err)
	roomID := room.Snapshot().ID

	_, msg, err := o.SaveChat("conn-a", "Alice", "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	got, err := o.RecentChat(roomID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Text)

	// Emptying the room drops its history with it.
	o.Disconnect("conn-a")
	got, err = o.RecentChat(roomID, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOrchestrator_RoomSwitchReportsWhoWasLeftBehind(t *testing.T) {
	o := newOrchestrator(t)
	bind(o, "conn-a")
	bind(o, "conn-b")

	first, _, _, err := o.CreateRoom("conn-a", "R1", "Alice", "M")
	require.NoError(t, err)
	firstID := first.Snapshot().ID
	_, bob, _, err := o.Join("conn-b", firstID, "Bob")
	require.NoError(t, err)

	// Bob moves to a fresh room; the result must carry everything the
	// adapter needs to tell Alice he left.
	second, _, left, err := o.CreateRoom("conn-b", "R2", "Bob", "M2")
	require.NoError(t, err)
	require.NotNil(t, left.Removed)
	assert.Equal(t, bob.ID, left.Removed.ID)
	assert.Equal(t, firstID, left.RoomID)
	require.NotNil(t, left.Room)
	assert.False(t, left.RoomDeleted)
	assert.Equal(t, 1, left.Room.ParticipantCount())

	// Switching via join carries the same information. Alice's old room
	// empties out, so the result reports the deletion instead of a
	// remainder to notify.
	_, _, left, err = o.Join("conn-a", second.Snapshot().ID, "Alice")
	require.NoError(t, err)
	require.NotNil(t, left.Removed)
	assert.Equal(t, firstID, left.RoomID)
	assert.True(t, left.RoomDeleted)
}

func TestOrchestrator_CreateLeavesPreviousRoom(t *testing.T) {
	o := newOrchestrator(t)
	bind(o, "conn-a")

	first, _, _, err := o.CreateRoom("conn-a", "R1", "Alice", "M")
	require.NoError(t, err)
	firstID := first.Snapshot().ID

	_, _, _, err = o.CreateRoom("conn-a", "R2", "Alice", "M")
	require.NoError(t, err)

	// The first room emptied out and was deleted.
	_, ok := o.Rooms.Get(firstID)
	assert.False(t, ok)
	require.Len(t, o.ListRooms(), 1)
	assert.Equal(t, domain.RoomName("R2"), o.ListRooms()[0].Name)
}
