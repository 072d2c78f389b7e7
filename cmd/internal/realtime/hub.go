// Package realtime streams task events to their owners over websocket.
//
// The Hub keeps, per user id, the set of connected clients and implements
// tasks.Publisher; the WSGateway authenticates sessions and pumps envelopes.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"taskflow/cmd/internal/tasks"
	v1 "taskflow/shared/contracts/events/v1"
)

// Hub fans task events out to the owner's sessions. Publish never blocks:
// a client whose queue is full misses the event.
type Hub struct {
	log *slog.Logger

	mu   sync.RWMutex
	subs map[int64]map[string]*Client

	deliveries *prometheus.CounterVec
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithDeliveryCounter counts fan-out outcomes. The vector must have a
// "result" label (delivered, dropped).
func WithDeliveryCounter(c *prometheus.CounterVec) HubOption {
	return func(h *Hub) {
		if c != nil {
			h.deliveries = c
		}
	}
}

// NewHub constructs an empty Hub.
func NewHub(log *slog.Logger, opts ...HubOption) *Hub {
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{log: log, subs: make(map[int64]map[string]*Client)}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

var _ tasks.Publisher = (*Hub)(nil)

// Subscribe registers client for its user's events.
func (h *Hub) Subscribe(c *Client) {
	if h == nil || c == nil || c.SessionID == "" {
		return
	}

	h.mu.Lock()
	set := h.subs[c.UserID]
	if set == nil {
		set = make(map[string]*Client)
		h.subs[c.UserID] = set
	}
	set[c.SessionID] = c
	h.mu.Unlock()

	h.log.Info("realtime.subscribe", "user_id", c.UserID, "session_id", c.SessionID)
}

// Unsubscribe removes the client and then signals it to stop, so a publisher
// never holds a client that is being torn down.
func (h *Hub) Unsubscribe(c *Client) {
	if h == nil || c == nil {
		return
	}

	h.mu.Lock()
	if set := h.subs[c.UserID]; set != nil {
		delete(set, c.SessionID)
		if len(set) == 0 {
			delete(h.subs, c.UserID)
		}
	}
	h.mu.Unlock()

	c.Close()
	h.log.Info("realtime.unsubscribe", "user_id", c.UserID, "session_id", c.SessionID)
}

// Subscribers returns the number of sessions connected for userID.
func (h *Hub) Subscribers(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Publish implements tasks.Publisher.
func (h *Hub) Publish(_ context.Context, ev tasks.Event) {
	if h == nil {
		return
	}
	env, err := eventEnvelope(ev)
	if err != nil {
		h.log.Error("realtime.encode.fail", "kind", ev.Kind, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.subs[ev.OwnerID] {
		switch res := c.Offer(env); res {
		case offerClosed:
		case offerDropped:
			h.count(res)
			h.log.Warn("realtime.drop", "user_id", c.UserID, "session_id", c.SessionID, "kind", ev.Kind)
		default:
			h.count(res)
		}
	}
}

func (h *Hub) count(result string) {
	if h.deliveries != nil {
		h.deliveries.WithLabelValues(result).Inc()
	}
}

func eventEnvelope(ev tasks.Event) (v1.Envelope, error) {
	p := v1.TaskEventPayload{EventID: ev.ID, TaskID: ev.TaskID}
	if ev.Task != nil {
		t := toWireTask(*ev.Task)
		p.Task = &t
	}
	b, err := json.Marshal(p)
	if err != nil {
		return v1.Envelope{}, err
	}
	return v1.Envelope{
		V:       v1.Version,
		Type:    ev.Kind,
		ID:      ev.ID,
		TS:      ev.At,
		Payload: b,
	}, nil
}

func toWireTask(t tasks.Task) v1.Task {
	out := v1.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		Priority:    t.Priority,
		OwnerID:     t.OwnerID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Tags:        make([]v1.Tag, 0, len(t.Tags)),
	}
	for _, g := range t.Tags {
		out.Tags = append(out.Tags, v1.Tag{ID: g.ID, Name: g.Name, Color: g.Color})
	}
	return out
}
