// Package metrics provides Prometheus counters for the sync coordinator.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics contains the process counters. All operations are thread-safe.
type Metrics struct {
	roomsCreated    prometheus.Counter
	roomsDeleted    prometheus.Counter
	commandsApplied prometheus.Counter
	eventsMulticast prometheus.Counter
	chatMessages    prometheus.Counter
	fallbackWrites  prometheus.Counter
}

// New creates all collectors unregistered; call Register to attach them to
// a registry.
func New() *Metrics {
	return &Metrics{
		roomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coview_rooms_created_total",
			Help: "Total number of rooms created",
		}),
		roomsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coview_rooms_deleted_total",
			Help: "Total number of rooms deleted after the last participant left",
		}),
		commandsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coview_commands_applied_total",
			Help: "Total number of playback commands applied to room state",
		}),
		eventsMulticast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coview_events_multicast_total",
			Help: "Total number of per-participant event deliveries",
		}),
		chatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coview_chat_messages_total",
			Help: "Total number of chat messages accepted",
		}),
		fallbackWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coview_relay_fallback_writes_total",
			Help: "Total number of events written to the relay fallback slot",
		}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.roomsCreated,
		m.roomsDeleted,
		m.commandsApplied,
		m.eventsMulticast,
		m.chatMessages,
		m.fallbackWrites,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) IncRoomsCreated()    { m.roomsCreated.Inc() }
func (m *Metrics) IncRoomsDeleted()    { m.roomsDeleted.Inc() }
func (m *Metrics) IncCommandsApplied() { m.commandsApplied.Inc() }
func (m *Metrics) IncChatMessages()    { m.chatMessages.Inc() }
func (m *Metrics) IncFallbackWrites()  { m.fallbackWrites.Inc() }

func (m *Metrics) AddEventsMulticast(n int) { m.eventsMulticast.Add(float64(n)) }
