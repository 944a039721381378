// Package hub implements the broadcast hub: a process-scoped registry of
// live-update subscribers and the fan-out that keeps every connected
// client's event list in sync without polling.
//
// DELIVERY SEMANTICS:
// Best-effort, at-most-once. A notification goes to every subscriber
// connected at the moment of the broadcast; clients that connect later
// never see it (they fetch full state on connect instead). Within a single
// notification kind, each subscriber observes emissions in the order they
// were broadcast. A subscriber whose channel buffer is full is skipped for
// that notification rather than blocking the fan-out — one stalled client
// must not delay everyone else.
//
// The hub is owned by the server and shut down with it; it is not ambient
// global state.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/sakif/event-board/internal/model"
)

// Notification kinds carried on the live-update channel.
const (
	TopicEventCreated = "eventCreated"
	TopicEventUpdated = "eventUpdated"
	TopicEventDeleted = "eventDeleted"
)

// subscriberBuffer is the per-subscriber channel capacity. A handful of
// notifications can queue while the transport drains; beyond that the
// subscriber is considered stalled and drops notifications.
const subscriberBuffer = 16

// Notification is one fan-out message: the topic name and its JSON payload.
type Notification struct {
	Topic string
	Data  string
}

// Subscriber is one connected live-update client. Receive notifications
// from C; the channel is closed when the subscriber is removed or the hub
// shuts down.
type Subscriber struct {
	C  chan Notification
	ch chan Notification // same channel, send side (hub internal)
}

// Hub maintains the subscriber set and fans out change notifications.
type Hub struct {
	mu          sync.RWMutex
	subscribers []*Subscriber
	closed      bool
	logger      *slog.Logger
}

// New creates an empty Hub.
func New(logger *slog.Logger) *Hub {
	return &Hub{logger: logger}
}

// Subscribe registers a new live-update subscriber and returns it.
// The subscriber sees only notifications broadcast AFTER this call returns.
func (h *Hub) Subscribe() *Subscriber {
	ch := make(chan Notification, subscriberBuffer)
	sub := &Subscriber{C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return sub
	}

	h.subscribers = append(h.subscribers, sub)
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call for
// a subscriber that was already removed (e.g. hub shutdown racing a client
// disconnect).
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	before := len(h.subscribers)
	h.subscribers = lo.Filter(h.subscribers, func(s *Subscriber, _ int) bool {
		return s != sub
	})
	if len(h.subscribers) < before {
		close(sub.ch)
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close shuts the hub down: every subscriber channel is closed and further
// broadcasts become no-ops. Called once during server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for _, sub := range h.subscribers {
		close(sub.ch)
	}
	h.subscribers = nil
}

// EventCreated notifies all subscribers that an event was created.
// Callers must broadcast only AFTER the store commit — subscribers must
// never hear about state that didn't durably persist.
func (h *Hub) EventCreated(event *model.Event) {
	h.broadcast(TopicEventCreated, event)
}

// EventUpdated notifies all subscribers that an event was updated.
func (h *Hub) EventUpdated(event *model.Event) {
	h.broadcast(TopicEventUpdated, event)
}

// EventDeleted notifies all subscribers that the event with the given id
// was deleted. The payload is the bare id — deleted events have no record
// left to send.
func (h *Hub) EventDeleted(eventID string) {
	h.broadcast(TopicEventDeleted, eventID)
}

// broadcast marshals the payload once and fans it out to every current
// subscriber. Sends are non-blocking: a full buffer means that subscriber
// misses this notification.
func (h *Hub) broadcast(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		// Payloads are our own model types; this only fires on a
		// programming error, and one bad payload must not kill fan-out.
		h.logger.Error("hub: failed to marshal notification payload",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return
	}

	n := Notification{Topic: topic, Data: string(data)}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for _, sub := range h.subscribers {
		select {
		case sub.ch <- n:
		default:
			h.logger.Warn("hub: dropping notification for slow subscriber",
				slog.String("topic", topic),
			)
		}
	}
}
