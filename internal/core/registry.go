package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/domain"
)

type registryImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]RoomService
}

// NewRegistry returns an empty room registry. All room lookup and lifecycle
// flows through here so there is exactly one owner of the id → room map.
func NewRegistry() Registry {
	return &registryImpl{rooms: make(map[domain.RoomID]RoomService)}
}

func (f *registryImpl) Create(name domain.RoomName, mediaRef string) RoomService {
	room := NewRoomService(domain.NewRoom(name, mediaRef))
	id := room.Snapshot().ID
	f.mu.Lock()
	f.rooms[id] = room
	f.mu.Unlock()
	log.Info().Str("module", "core.registry").Str("room", string(id)).Str("name", string(name)).Msg("room created")
	return room
}

func (f *registryImpl) Get(id domain.RoomID) (RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	return room, ok
}

func (f *registryImpl) Remove(id domain.RoomID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, id)
	log.Info().Str("module", "core.registry").Str("room", string(id)).Msg("room removed")
}

func (f *registryImpl) List() []RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]RoomInfo, 0, len(f.rooms))
	for id, r := range f.rooms {
		snap := r.Snapshot()
		out = append(out, RoomInfo{
			ID:               id,
			Name:             snap.Name,
			ParticipantCount: r.ParticipantCount(),
			CreatedAt:        snap.CreatedAt,
		})
	}
	return out
}

// Reset drops every room. Teardown hook for tests and shutdown.
func (f *registryImpl) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = make(map[domain.RoomID]RoomService)
}
