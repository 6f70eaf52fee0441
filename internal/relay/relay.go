// Package relay is the serverless synchronization path between sibling
// contexts of the same host: a primary in-process multicast bus with a
// lossy single-slot persistent fallback. Used instead of the gateway when
// no room has been created.
package relay

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/domain"
)

// Handler receives events published by other contexts. Own-origin events
// are filtered before the handler runs.
type Handler func(domain.SyncEvent)

// Transport is the delivery strategy. It is picked once per context at
// construction and never re-evaluated at call sites. Delivery is
// best-effort: the bus drops on backpressure, the slot keeps only the
// most recent writes.
type Transport interface {
	Available() bool
	Publish(domain.SyncEvent) error
	Subscribe(Handler) (cancel func(), err error)
	Close() error
}

// Relay stamps outbound events with the context's origin id and filters
// inbound events against it.
type Relay struct {
	originID  string
	transport Transport
}

// New selects the first available transport. Running more than one
// transport in a context risks duplicate or out-of-order application, so
// exactly one is chosen here.
func New(originID string, transports ...Transport) (*Relay, error) {
	for _, t := range transports {
		if t != nil && t.Available() {
			return &Relay{originID: originID, transport: t}, nil
		}
	}
	return nil, domain.ErrTransportUnavailable
}

func (r *Relay) OriginID() string { return r.originID }

// Publish stamps the event and hands it to the transport.
func (r *Relay) Publish(t domain.EventType, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ev := domain.SyncEvent{
		Type:      t,
		Payload:   raw,
		Timestamp: time.Now(),
		OriginID:  r.originID,
	}
	if err := r.transport.Publish(ev); err != nil {
		log.Warn().Err(err).Str("module", "relay").Str("type", string(t)).Msg("publish failed")
		return err
	}
	return nil
}

// Subscribe delivers events from other contexts to h. Events carrying this
// relay's own origin id are never delivered.
func (r *Relay) Subscribe(h Handler) (func(), error) {
	return r.transport.Subscribe(func(ev domain.SyncEvent) {
		if ev.OriginID == r.originID {
			return
		}
		h(ev)
	})
}

func (r *Relay) Close() error {
	return r.transport.Close()
}
