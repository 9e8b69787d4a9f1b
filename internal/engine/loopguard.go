package engine

import (
	"context"
	"sync"
	"time"
)

// DefaultLoopGuardTTL is how long a sent-message id stays suppressed.
const DefaultLoopGuardTTL = 10 * time.Second

// LoopGuard remembers the ids of recently-sent messages so the pipeline can
// drop them when they re-enter the event stream as the bot's own traffic.
// Entries expire lazily on lookup; Run sweeps the map periodically so idle
// entries do not accumulate under volume.
type LoopGuard struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
	now     func() time.Time
}

func NewLoopGuard(ttl time.Duration) *LoopGuard {
	if ttl <= 0 {
		ttl = DefaultLoopGuardTTL
	}
	return &LoopGuard{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Register records id as just sent; it will be suppressed until the TTL
// elapses.
func (g *LoopGuard) Register(id string) {
	if id == "" {
		return
	}
	g.mu.Lock()
	g.entries[id] = g.now().Add(g.ttl)
	g.mu.Unlock()
}

// IsRecentlySent reports whether id was sent by the bot within the TTL window.
func (g *LoopGuard) IsRecentlySent(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	deadline, ok := g.entries[id]
	if !ok {
		return false
	}
	if g.now().After(deadline) {
		delete(g.entries, id)
		return false
	}
	return true
}

// Len returns the number of tracked ids, expired or not.
func (g *LoopGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Run sweeps expired entries every interval until ctx is done.
func (g *LoopGuard) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = g.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

func (g *LoopGuard) sweep() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for id, deadline := range g.entries {
		if now.After(deadline) {
			delete(g.entries, id)
		}
	}
}
