package relay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avheld/coview/internal/domain"
	"github.com/avheld/coview/internal/metrics"
)

const slotFileName = "coview.slot"

// slotRecord wraps an event with a write id so subscribers can skip what
// they have already dispatched. There is no consumption: the slot only
// guarantees last-write-visibility.
type slotRecord struct {
	ID    string           `json:"id"`
	Event domain.SyncEvent `json:"event"`
}

// Slot is the fallback relay transport: a single shared file plus an
// fsnotify change notification to wake listeners. With depth 1 (the
// default) a rapid burst of distinct events coalesces to only the last
// write: intermediate discrete events (a pause immediately followed by a
// seek) are silently dropped. That is acceptable for continuous position
// updates and a known correctness limitation for discrete transitions;
// raise depth when a bounded queue is needed instead.
type Slot struct {
	dir   string
	path  string
	depth int

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool

	Metrics *metrics.Metrics
}

func NewSlot(dir string, depth int) *Slot {
	if depth < 1 {
		depth = 1
	}
	return &Slot{
		dir:   dir,
		path:  filepath.Join(dir, slotFileName),
		depth: depth,
	}
}

func (s *Slot) Available() bool {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return false
	}
	// Probe writability once; the strategy choice is made at startup.
	f, err := os.OpenFile(filepath.Join(s.dir, ".probe"), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false
	}
	_ = f.Close()
	_ = os.Remove(filepath.Join(s.dir, ".probe"))
	return true
}

// Publish overwrites the slot with the newest records. Read-modify-write
// between sibling contexts is deliberately unsynchronized: racing writers
// resolve to last-write-wins.
func (s *Slot) Publish(ev domain.SyncEvent) error {
	records, _ := s.read()
	records = append(records, slotRecord{ID: uuid.NewString(), Event: ev})
	if len(records) > s.depth {
		records = records[len(records)-s.depth:]
	}

	data, err := json.Marshal(records)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("relay slot write: %w", err)
	}
	// Rename is atomic and raises the change notification in one step.
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("relay slot rename: %w", err)
	}
	if s.Metrics != nil {
		s.Metrics.IncFallbackWrites()
	}
	return nil
}

func (s *Slot) read() ([]slotRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var records []slotRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Subscribe watches the slot directory and dispatches records it has not
// seen before. Listeners that sleep through several overwrites only see
// whatever the last write left behind.
func (s *Slot) Subscribe(h Handler) (func(), error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	go func() {
		seen := make(map[string]struct{})
		var seenOrder []string
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				records, err := s.read()
				if err != nil {
					continue
				}
				for _, rec := range records {
					if _, dup := seen[rec.ID]; dup {
						continue
					}
					seen[rec.ID] = struct{}{}
					seenOrder = append(seenOrder, rec.ID)
					if len(seenOrder) > 64 {
						delete(seen, seenOrder[0])
						seenOrder = seenOrder[1:]
					}
					h(rec.Event)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Str("module", "relay.slot").Msg("watcher error")
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = watcher.Close() })
	}
	return cancel, nil
}

func (s *Slot) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
