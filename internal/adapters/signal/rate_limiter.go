package signal

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/avheld/coview/internal/domain"
)

// ChatLimiter throttles chat messages per connection. Stale entries are
// swept periodically so the map does not grow with connection churn.
type ChatLimiter struct {
	mu      sync.Mutex
	entries map[domain.ConnID]*chatLimiterEntry
	rps     rate.Limit
	burst   int
}

type chatLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewChatLimiter(rps float64, burst int) *ChatLimiter {
	cl := &ChatLimiter{
		entries: make(map[domain.ConnID]*chatLimiterEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
	go cl.cleanup()
	return cl
}

func (cl *ChatLimiter) Allow(conn domain.ConnID) bool {
	cl.mu.Lock()
	entry, ok := cl.entries[conn]
	if !ok {
		entry = &chatLimiterEntry{limiter: rate.NewLimiter(cl.rps, cl.burst)}
		cl.entries[conn] = entry
	}
	entry.lastSeen = time.Now()
	cl.mu.Unlock()

	return entry.limiter.Allow()
}

func (cl *ChatLimiter) Forget(conn domain.ConnID) {
	cl.mu.Lock()
	delete(cl.entries, conn)
	cl.mu.Unlock()
}

func (cl *ChatLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cl.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for conn, entry := range cl.entries {
			if entry.lastSeen.Before(cutoff) {
				delete(cl.entries, conn)
			}
		}
		cl.mu.Unlock()
	}
}
