package player

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/domain"
)

// Broadcaster is where the master clip's self-detected transitions go:
// the local relay in sibling-window mode, the gateway client in room mode.
type Broadcaster interface {
	Publish(t domain.EventType, payload any) error
}

// PositionPayload is the payload of play/pause/seek events on either path.
type PositionPayload struct {
	Position float64 `json:"position"`
}

// Result counts a fan-out. Attempted > Succeeded is a partial failure,
// reported upward instead of aborting the surfaces that did work.
type Result struct {
	Attempted int
	Succeeded int
	Failed    []domain.ClipID
}

type Options struct {
	Stagger     time.Duration // delay between per-surface dispatches
	RetryDelay  time.Duration // wait before the single bounded retry
	BufferRetry time.Duration // wait before re-playing a buffering surface
}

func (o *Options) defaults() {
	if o.Stagger <= 0 {
		o.Stagger = 150 * time.Millisecond
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 500 * time.Millisecond
	}
	if o.BufferRetry <= 0 {
		o.BufferRetry = time.Second
	}
}

type entry struct {
	clip    domain.Clip
	surface Surface
	state   State
	failed  bool
}

// Aggregator owns the clip → surface registry of one local context.
// Surfaces signal readiness and state transitions concurrently; every
// registry update here is mutex-guarded.
type Aggregator struct {
	mu      sync.Mutex
	entries map[domain.ClipID]*entry
	order   []domain.ClipID // registration order; order[0] is the master clip
	loop    bool

	opts Options
	out  Broadcaster
}

func NewAggregator(opts Options, out Broadcaster) *Aggregator {
	opts.defaults()
	return &Aggregator{
		entries: make(map[domain.ClipID]*entry),
		opts:    opts,
		out:     out,
	}
}

// Add registers a surface under its clip handle. The first-registered clip
// becomes the master: the sole source of outbound broadcast for
// self-detected transitions.
func (a *Aggregator) Add(clip domain.Clip, s Surface) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.entries[clip.ID]; ok {
		return
	}
	a.entries[clip.ID] = &entry{clip: clip, surface: s}
	a.order = append(a.order, clip.ID)
	log.Debug().Str("module", "player").Str("clip", string(clip.ID)).Bool("master", len(a.order) == 1).Msg("surface registered")
}

// Remove destroys the surface and drops the handle. A retry pending
// against this clip finds it gone and becomes a no-op. When the master is
// removed the next earliest-registered clip takes over outbound broadcast.
func (a *Aggregator) Remove(id domain.ClipID) error {
	a.mu.Lock()
	e, ok := a.entries[id]
	if ok {
		e.state = Destroyed
		delete(a.entries, id)
		for i, cid := range a.order {
			if cid == id {
				a.order = append(a.order[:i], a.order[i+1:]...)
				break
			}
		}
	}
	a.mu.Unlock()
	if !ok {
		return domain.ErrClipNotFound
	}
	e.surface.Destroy()
	return nil
}

func (a *Aggregator) SetLoop(on bool) {
	a.mu.Lock()
	a.loop = on
	a.mu.Unlock()
}

func (a *Aggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

func (a *Aggregator) StateOf(id domain.ClipID) (State, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.entries[id]; ok {
		return e.state, true
	}
	return Destroyed, false
}

// OnReady is the surface's ready signal. Safe under concurrent signals
// from multiple surfaces.
func (a *Aggregator) OnReady(id domain.ClipID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[id]
	if !ok || e.state != Unstarted {
		return
	}
	e.state = Ready
	log.Debug().Str("module", "player").Str("clip", string(id)).Msg("surface ready")
}

// OnStateChange is the surface's state-change signal; position is the
// surface's playback position at the transition. Master transitions to
// Playing/Paused are re-broadcast outward with that position; every other
// surface's transitions stay local so N surfaces don't multiply one event
// into N.
func (a *Aggregator) OnStateChange(id domain.ClipID, s State, position float64) {
	a.mu.Lock()
	e, ok := a.entries[id]
	if !ok || e.state == Destroyed {
		a.mu.Unlock()
		return
	}
	e.state = s
	isMaster := len(a.order) > 0 && a.order[0] == id
	loop := a.loop
	surface := e.surface
	a.mu.Unlock()

	switch s {
	case Playing, Paused:
		if isMaster && a.out != nil {
			t := domain.EventPlay
			if s == Paused {
				t = domain.EventPause
			}
			if err := a.out.Publish(t, PositionPayload{Position: position}); err != nil {
				log.Warn().Err(err).Str("module", "player").Str("clip", string(id)).Msg("outbound broadcast failed")
			}
		}
	case Buffering:
		// Transient; give the surface a moment and nudge it again.
		time.AfterFunc(a.opts.BufferRetry, func() {
			if st, ok := a.StateOf(id); ok && st == Buffering {
				_ = surface.Play()
			}
		})
	case Ended:
		if loop {
			// Purely local decision, never broadcast.
			a.replayFromStart(id)
		}
	}
}

func (a *Aggregator) replayFromStart(id domain.ClipID) {
	a.mu.Lock()
	e, ok := a.entries[id]
	if !ok || e.state == Destroyed {
		a.mu.Unlock()
		return
	}
	surface := e.surface
	e.state = Unstarted
	a.mu.Unlock()

	if err := surface.SeekTo(0); err != nil {
		log.Debug().Err(err).Str("module", "player").Str("clip", string(id)).Msg("loop seek failed")
		return
	}
	_ = surface.Play()
}

// PlayAll dispatches play to every eligible surface with a fixed stagger
// between calls. Eligible means readiness-signalled; when nothing has
// signalled yet but surfaces exist, all non-destroyed surfaces are
// attempted instead of failing outright. An empty registry is ErrNotReady.
// Each failing surface gets one bounded retry after a fixed delay; retry
// exhaustion marks it failed without touching the others.
func (a *Aggregator) PlayAll() (Result, error) {
	a.mu.Lock()
	if len(a.entries) == 0 {
		a.mu.Unlock()
		return Result{}, domain.ErrNotReady
	}
	targets := make([]domain.ClipID, 0, len(a.order))
	for _, id := range a.order {
		if e, ok := a.entries[id]; ok && e.state.usable() {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		// Nothing ready yet: attempt everything still registered.
		targets = append(targets, a.order...)
	}
	a.mu.Unlock()

	res := Result{Attempted: len(targets)}
	for i, id := range targets {
		if i > 0 {
			// Staggered, not simultaneous: N just-created surfaces starting
			// at once contend for the same decoder resources.
			time.Sleep(a.opts.Stagger)
		}
		if a.playOne(id) {
			res.Succeeded++
		} else {
			res.Failed = append(res.Failed, id)
		}
	}
	log.Info().Str("module", "player").Int("attempted", res.Attempted).Int("succeeded", res.Succeeded).Msg("playAll")
	return res, nil
}

// playOne plays a single surface with one bounded retry. The retry
// re-checks the registry first so a surface destroyed in the meantime is
// left alone.
func (a *Aggregator) playOne(id domain.ClipID) bool {
	a.mu.Lock()
	e, ok := a.entries[id]
	if !ok || e.state == Destroyed {
		a.mu.Unlock()
		return false
	}
	surface := e.surface
	a.mu.Unlock()

	if err := surface.Play(); err == nil {
		return true
	}

	time.Sleep(a.opts.RetryDelay)

	a.mu.Lock()
	e, ok = a.entries[id]
	if !ok || e.state == Destroyed {
		a.mu.Unlock()
		return false
	}
	surface = e.surface
	a.mu.Unlock()

	if err := surface.Play(); err != nil {
		a.mu.Lock()
		if e, ok := a.entries[id]; ok {
			e.failed = true
		}
		a.mu.Unlock()
		log.Warn().Err(err).Str("module", "player").Str("clip", string(id)).Msg("surface failed after retry")
		return false
	}
	return true
}

// PauseAll pauses every known surface; not-ready or destroyed surfaces
// no-op silently.
func (a *Aggregator) PauseAll() Result {
	return a.fanOut(func(s Surface) error { return s.Pause() })
}

// SeekAll seeks every known surface.
func (a *Aggregator) SeekAll(position float64) Result {
	return a.fanOut(func(s Surface) error { return s.SeekTo(position) })
}

func (a *Aggregator) fanOut(op func(Surface) error) Result {
	a.mu.Lock()
	surfaces := make([]Surface, 0, len(a.order))
	ids := make([]domain.ClipID, 0, len(a.order))
	for _, id := range a.order {
		if e, ok := a.entries[id]; ok {
			surfaces = append(surfaces, e.surface)
			ids = append(ids, id)
		}
	}
	a.mu.Unlock()

	res := Result{Attempted: len(surfaces)}
	for i, s := range surfaces {
		if i > 0 {
			time.Sleep(a.opts.Stagger)
		}
		if err := op(s); err != nil {
			res.Failed = append(res.Failed, ids[i])
			continue
		}
		res.Succeeded++
	}
	return res
}

// HandleEvent applies an inbound relay/gateway event to the local
// surfaces. Origin filtering already happened upstream; application here
// never re-broadcasts.
func (a *Aggregator) HandleEvent(ev domain.SyncEvent) {
	var p PositionPayload
	if len(ev.Payload) > 0 {
		// A malformed payload degrades to position zero rather than
		// dropping the state transition.
		_ = json.Unmarshal(ev.Payload, &p)
	}
	switch ev.Type {
	case domain.EventPlay:
		if p.Position > 0 {
			a.SeekAll(p.Position)
		}
		_, _ = a.PlayAll()
	case domain.EventPause:
		a.PauseAll()
	case domain.EventSeek:
		a.SeekAll(p.Position)
	}
}
