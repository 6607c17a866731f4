package services

import (
	"sync"
	"time"

	"github.com/emanueledman/fixa-admin/internal/models"
)

// Event types delivered to stream subscribers.
const (
	EventSnapshot = "snapshot"
	EventToast    = "toast"
)

// Event is one message on a viewer's realtime stream. Snapshot events carry the
// viewer's full record set, which replaces whatever the subscriber held before.
type Event struct {
	Type     string           `json:"type"`
	ViewerID string           `json:"viewerId"`
	Problems []models.Problem `json:"problems,omitempty"`
	Toast    *models.Toast    `json:"toast,omitempty"`
}

const subscriberBuffer = 16

// Hub is an in-process publish/subscribe registry keyed by viewer id.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a new subscriber for viewerID. The returned cancel func
// removes the subscription and closes the channel; it is safe to call twice.
func (h *Hub) Subscribe(viewerID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[viewerID] == nil {
		h.subs[viewerID] = make(map[chan Event]struct{})
	}
	h.subs[viewerID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if subs, ok := h.subs[viewerID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.subs, viewerID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber of ev.ViewerID. Slow subscribers
// miss the event instead of blocking the publisher. It returns the number of
// subscribers that received it.
func (h *Hub) Publish(ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subs[ev.ViewerID] {
		select {
		case ch <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

// Viewers returns the ids that currently have at least one subscriber.
func (h *Hub) Viewers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	return ids
}

// ToastTTL is how long a toast stays visible.
const ToastTTL = 5 * time.Second

// ToastNotifier sends transient messages to a viewer's open streams.
type ToastNotifier struct {
	hub *Hub
	now func() time.Time
}

// NewToastNotifier creates a notifier publishing on hub.
func NewToastNotifier(hub *Hub) *ToastNotifier {
	return &ToastNotifier{hub: hub, now: time.Now}
}

// Notify builds a toast and publishes it. It never blocks.
func (n *ToastNotifier) Notify(viewerID, level, message string) models.Toast {
	t := models.Toast{Level: level, Message: message, ExpiresAt: n.now().Add(ToastTTL)}
	n.hub.Publish(Event{Type: EventToast, ViewerID: viewerID, Toast: &t})
	return t
}
