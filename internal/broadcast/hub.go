package broadcast

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/chani890/MediWait/internal/queue"
)

const clientBuffer = 16

// Hub fans queue events out to live display clients and hands reception
// events to the push worker pool. Publish never blocks: a client that is not
// keeping up loses events rather than stalling the queue.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan queue.Event]struct{}
	push    *WorkerPool
	log     zerolog.Logger
}

// NewHub creates a hub. push may be nil when web push is not configured.
func NewHub(push *WorkerPool, logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[chan queue.Event]struct{}),
		push:    push,
		log:     logger.With().Str("component", "broadcast").Logger(),
	}
}

// Subscribe registers a client. The returned cancel func must be called when
// the client goes away; it closes the channel.
func (h *Hub) Subscribe() (<-chan queue.Event, func()) {
	ch := make(chan queue.Event, clientBuffer)
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

// Publish implements queue.Publisher.
func (h *Hub) Publish(e queue.Event) {
	h.mu.RLock()
	for ch := range h.clients {
		select {
		case ch <- e:
		default:
			h.log.Warn().Str("kind", string(e.Kind)).Msg("slow client, event dropped")
		}
	}
	h.mu.RUnlock()

	if h.push != nil && e.Reception != nil && (e.Kind == queue.EventStatusChange || e.Kind == queue.EventDoctorCall) {
		if !h.push.TryDispatch(e) {
			h.log.Warn().Str("reception_id", e.Reception.ID).Msg("push queue full, event dropped")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
