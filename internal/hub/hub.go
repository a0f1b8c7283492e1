// Package hub fans session render updates out to connected dashboard pages.
package hub

import (
	"log/slog"
	"sync"

	"github.com/visionguard/dashboard/internal/render"
	"github.com/visionguard/dashboard/internal/session"
)

// Event types pushed to pages.
const (
	EventSnapshot  = "snapshot"
	EventStatus    = "status"
	EventAnswer    = "answer"
	EventHistory   = "history"
	EventBusy      = "busy"
	EventNotice    = "notice"
)

// defaultBufferSize is the per-subscriber event backlog.
const defaultBufferSize = 64

// Event is one message sent to a page.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub is a session.Renderer that broadcasts to every subscribed page.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	nextID      int64
	bufferSize  int
}

var _ session.Renderer = (*Hub)(nil)

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		subscribers: make(map[int64]chan Event),
		bufferSize:  defaultBufferSize,
	}
}

// Subscribe registers a new receiver. Call Unsubscribe with the returned id.
func (h *Hub) Subscribe() (int64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan Event, h.bufferSize)
	h.subscribers[h.nextID] = ch
	slog.Info("Dashboard subscriber registered", "subscriber_id", h.nextID, "subscribers", len(h.subscribers))
	return h.nextID, ch
}

// Unsubscribe removes a receiver and closes its channel.
func (h *Hub) Unsubscribe(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
		slog.Info("Dashboard subscriber unregistered", "subscriber_id", id, "subscribers", len(h.subscribers))
	}
}

// Subscribers returns the number of connected receivers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Publish delivers ev to every subscriber. A subscriber whose backlog is
// full misses the event.
func (h *Hub) Publish(ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for id, ch := range h.subscribers {
		select {
		case ch <- ev:
			delivered++
		default:
			slog.Debug("Dropping event for slow subscriber", "subscriber_id", id, "type", ev.Type)
		}
	}
	return delivered
}

// RenderStatus pushes a new status view.
func (h *Hub) RenderStatus(v render.Status) {
	h.Publish(Event{Type: EventStatus, Data: v})
}

// RenderAnswer pushes the latest answer view.
func (h *Hub) RenderAnswer(v render.Answer) {
	h.Publish(Event{Type: EventAnswer, Data: v})
}

// PrependHistory pushes one new history entry for the top of the log.
func (h *Hub) PrependHistory(item render.HistoryItem) {
	h.Publish(Event{Type: EventHistory, Data: item})
}

// SetBusy pushes the ask indicator state.
func (h *Hub) SetBusy(b render.Busy) {
	h.Publish(Event{Type: EventBusy, Data: b})
}

// Notify pushes a notice to every page.
func (h *Hub) Notify(n session.Notice) {
	h.Publish(Event{Type: EventNotice, Data: n})
}
