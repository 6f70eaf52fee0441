package relay

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/domain"
)

// Bus is the primary relay transport: in-process multicast to every
// subscribed context. Delivery to each subscriber runs on its own pump, so
// subscribers may observe events concurrently and independently.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan domain.SyncEvent
	nextID int
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan domain.SyncEvent)}
}

func (b *Bus) Available() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.closed
}

// Publish fans the event out to every subscriber. A subscriber whose
// buffer is full misses the event; the bus never blocks a publisher.
func (b *Bus) Publish(ev domain.SyncEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errors.New("relay bus closed")
	}
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.Debug().Str("module", "relay.bus").Int("sub", id).Msg("subscriber buffer full, dropped")
		}
	}
	return nil
}

func (b *Bus) Subscribe(h Handler) (func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, errors.New("relay bus closed")
	}
	id := b.nextID
	b.nextID++
	ch := make(chan domain.SyncEvent, 16)
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		for ev := range ch {
			h(ev)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
			b.mu.Unlock()
		})
	}
	return cancel, nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}
