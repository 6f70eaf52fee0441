package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParticipant_Validation(t *testing.T) {
	p, err := NewParticipant("alice", ConnID("c1"))
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "alice", p.Name)
	assert.False(t, p.IsHost)

	_, err = NewParticipant("", ConnID("c1"))
	assert.ErrorIs(t, err, ErrNameEmpty)

	_, err = NewParticipant(strings.Repeat("x", MaxParticipantNameLen+1), ConnID("c1"))
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestNewRoom_TruncatesOverlongName(t *testing.T) {
	r := NewRoom(RoomName(strings.Repeat("n", MaxRoomNameLen+10)), "media-1")
	assert.Len(t, string(r.Name), MaxRoomNameLen)
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.Playback.Playing)
	assert.Zero(t, r.Playback.Position)
}

func TestCommand_EventType(t *testing.T) {
	assert.Equal(t, EventPlay, Command{Kind: CmdPlay}.EventType())
	assert.Equal(t, EventPause, Command{Kind: CmdPause}.EventType())
	assert.Equal(t, EventSeek, Command{Kind: CmdSeek}.EventType())
	assert.Equal(t, EventMediaChanged, Command{Kind: CmdChangeMedia}.EventType())
}
