package live

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ghostnote/ghost-note/backend/internal/model/user"
)

const defaultBuffer = 16

// Event is the payload pushed to owners when an anonymous message arrives.
type Event struct {
	Event   string       `json:"event"`
	Message user.Message `json:"message"`
}

// Subscription receives events for a single user.
type Subscription struct {
	userID string
	ch     chan Event
}

// Events is closed when the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Hub fans new messages out to connected owners.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: defaultBuffer,
	}
}

// Subscribe registers a listener for userID.
func (h *Hub) Subscribe(userID string) *Subscription {
	sub := &Subscription{userID: userID, ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sub)
}

// Publish delivers msg to every listener of userID without blocking.
// Listeners whose buffer is full are disconnected.
func (h *Hub) Publish(userID string, msg user.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	evt := Event{Event: "message", Message: msg}
	for sub := range h.subs[userID] {
		select {
		case sub.ch <- evt:
		default:
			logrus.Warnf("[live] dropping slow subscriber for user=%s", userID)
			h.remove(sub)
		}
	}
}

// Subscribers returns the number of active listeners for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

func (h *Hub) remove(sub *Subscription) {
	set, ok := h.subs[sub.userID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sub.userID)
	}
}
