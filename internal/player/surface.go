// Package player fans a single user action out to N independently owned
// playback surfaces and keeps their readiness under one registry.
package player

// Surface is one controllable media player instance. Implemented outside
// the core (the embedding/iframe mechanics of a provider); the aggregator
// only drives this interface and never shares a handle across contexts.
type Surface interface {
	Play() error
	Pause() error
	SeekTo(position float64) error
	Destroy()
}

// State is the per-surface playback state machine:
// Unstarted → Ready → {Playing ⇄ Paused} → Buffering → Ended.
// Destroyed is reachable from any non-terminal state and is terminal.
type State int

const (
	Unstarted State = iota
	Ready
	Playing
	Paused
	Buffering
	Ended
	Destroyed
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Buffering:
		return "buffering"
	case Ended:
		return "ended"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// usable reports whether the surface has signalled readiness at some point
// and has not been torn down.
func (s State) usable() bool {
	return s != Unstarted && s != Destroyed
}
