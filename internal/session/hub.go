package session

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Event announces that the session of Email changed to Status.
type Event struct {
	SessionID string `json:"sessionId"`
	Email     string `json:"email"`
	Status    Status `json:"status"`
}

// Hub fans session events out to subscribers. Channel subscribers never block
// Publish: when their buffer is full the event is dropped, counted and logged.
// Handlers run synchronously inside Publish and see every event.
type Hub struct {
	mu       sync.Mutex
	nextID   int
	subs     map[int]chan Event
	handlers map[int]func(Event)
	dropped  atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		subs:     make(map[int]chan Event),
		handlers: make(map[int]func(Event)),
	}
}

// Subscribe registers a listener. The returned cancel func closes the channel
// and is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

// Handle registers fn to be called for every published event. fn must not
// block or publish. The returned cancel func is safe to call more than once.
func (h *Hub) Handle(fn func(Event)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.handlers[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers, id)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	handlers := make([]func(Event), 0, len(h.handlers))
	for _, fn := range h.handlers {
		handlers = append(handlers, fn)
	}
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
			h.dropped.Add(1)
			zap.S().Warnw("session event dropped for slow subscriber", "email", event.Email, "status", event.Status)
		}
	}
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(event)
	}
}

// Dropped reports how many channel deliveries were skipped so far.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
