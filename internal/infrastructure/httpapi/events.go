package httpapi

import (
	"sync"

	"github.com/ersonp/influence-tracker/internal/domain/entities"
)

// clientBuffer is the number of events queued per slow client before
// further events are dropped for it.
const clientBuffer = 16

// EventHub fans repository change events out to streaming clients.
type EventHub struct {
	mu      sync.Mutex
	clients map[chan entities.ChangeEvent]struct{}
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[chan entities.ChangeEvent]struct{}),
	}
}

// Publish delivers ev to every client without blocking.
func (h *EventHub) Publish(ev entities.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a client. The returned function unregisters it and
// closes the channel.
func (h *EventHub) Subscribe() (<-chan entities.ChangeEvent, func()) {
	ch := make(chan entities.ChangeEvent, clientBuffer)

	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
