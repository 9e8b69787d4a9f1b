// Package bus is the in-process observer channel between the bot and the
// dashboard: the pipeline and session publish events, WebSocket handlers
// subscribe. Emission is fire-and-forget; a slow subscriber loses events
// rather than blocking the publisher.
package bus

import (
	"sync"

	"github.com/rs/zerolog"
)

const subscriberBuffer = 32

// Lifecycle event names shared by the session (publisher) and the WebSocket
// layer (initial push to late joiners).
const (
	EventStatus = "status"
	EventQR     = "qrcode"
)

// Event is one dashboard notification.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"data"`
}

// Bus fans events out to all current subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	log  zerolog.Logger
}

func New(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[chan Event]struct{}),
		log:  log,
	}
}

// Subscribe registers a new observer. The returned cancel func must be called
// when done; it closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking. Full
// subscriber buffers drop the event.
func (b *Bus) Publish(name string, payload any) {
	evt := Event{Name: name, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.log.Debug().Str("event", name).Msg("subscriber buffer full, event dropped")
		}
	}
}

// Subscribers returns the current observer count.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
