package grpcserver

import (
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/snapshare/internal/model"
)

// subscriberBuffer is the per-subscriber queue; events beyond it are dropped for that subscriber.
const subscriberBuffer = 64

// Hub fans change events out to Watch streams keyed by scope id.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[chan model.ChangeEvent]struct{}
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[chan model.ChangeEvent]struct{})}
}

// Subscribe registers a listener for scope. The returned cancel func must be called once.
func (h *Hub) Subscribe(scope uuid.UUID) (<-chan model.ChangeEvent, func()) {
	ch := make(chan model.ChangeEvent, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	set, ok := h.subs[scope]
	if !ok {
		set = make(map[chan model.ChangeEvent]struct{})
		h.subs[scope] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[scope]; ok {
				if _, ok := set[ch]; ok {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(h.subs, scope)
				}
			}
		})
	}
}

// Publish delivers ev to every subscriber of ev.ScopeID without blocking and
// returns how many subscribers received it.
func (h *Hub) Publish(ev model.ChangeEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for ch := range h.subs[ev.ScopeID] {
		select {
		case ch <- ev:
			sent++
		default:
		}
	}
	return sent
}

// Subscribers returns the number of listeners on scope.
func (h *Hub) Subscribers(scope uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[scope])
}

// Close ends every subscription. Later Subscribe calls get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for scope, set := range h.subs {
		for ch := range set {
			close(ch)
		}
		delete(h.subs, scope)
	}
}
