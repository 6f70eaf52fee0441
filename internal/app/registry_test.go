package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avheld/coview/internal/core"
	"github.com/avheld/coview/internal/domain"
)

func TestConnRegistry_StaleGenerationCannotUnbind(t *testing.T) {
	r := NewConnRegistry()
	conn := domain.ConnID("c1")

	firstCtx, firstCancel := context.WithCancel(context.Background())
	sess1 := core.NewParticipantSession(&domain.Participant{ConnID: conn})
	gen1 := r.Bind(conn, sess1, firstCancel)

	// Same token reconnects; the old pumps get cancelled on rebind.
	_, secondCancel := context.WithCancel(context.Background())
	sess2 := core.NewParticipantSession(&domain.Participant{ConnID: conn})
	gen2 := r.Bind(conn, sess2, secondCancel)
	require.NotEqual(t, gen1, gen2)
	assert.Error(t, firstCtx.Err(), "previous pumps cancelled on rebind")
	assert.False(t, r.IsCurrent(conn, gen1))
	assert.True(t, r.IsCurrent(conn, gen2))

	// The old socket's late teardown must not evict the new session.
	r.Unbind(conn, gen1)
	got, ok := r.Session(conn)
	require.True(t, ok)
	assert.Same(t, sess2, got)

	r.Unbind(conn, gen2)
	_, ok = r.Session(conn)
	assert.False(t, ok)
}

func TestConnRegistry_RoomBindingSurvivesStaleUnbind(t *testing.T) {
	r := NewConnRegistry()
	conn := domain.ConnID("c1")

	_, cancel1 := context.WithCancel(context.Background())
	gen1 := r.Bind(conn, core.NewParticipantSession(&domain.Participant{ConnID: conn}), cancel1)
	_, cancel2 := context.WithCancel(context.Background())
	r.Bind(conn, core.NewParticipantSession(&domain.Participant{ConnID: conn}), cancel2)

	require.True(t, r.SetRoom(conn, "room-1"))
	r.Unbind(conn, gen1)

	got, ok := r.RoomOf(conn)
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("room-1"), got)
}
