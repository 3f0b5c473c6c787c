// Package notify fans domain events out to subscribers such as the audit log,
// SMTP mail and the websocket feed. Delivery is best effort: a failing
// subscriber is logged and never affects the operation that raised the event.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventKind names a domain event
type EventKind string

const (
	EventRequestSubmitted EventKind = "request-submitted"
	EventRequestApproved  EventKind = "request-approved"
	EventRequestRejected  EventKind = "request-rejected"
	EventPanelsAssigned   EventKind = "panels-assigned"
	EventScheduleSet      EventKind = "schedule-set"
	EventRequestCompleted EventKind = "request-completed"
	EventSyncCompleted    EventKind = "sync-completed"
)

// Event is one domain event. Actor is empty for system-driven events.
type Event struct {
	ID         string                 `json:"id"`
	Kind       EventKind              `json:"kind"`
	RequestID  int64                  `json:"requestId"`
	Actor      string                 `json:"actor,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// NewEvent creates an event with a fresh id.
func NewEvent(kind EventKind, requestID int64, actor string, at time.Time, data map[string]interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		RequestID:  requestID,
		Actor:      actor,
		OccurredAt: at,
		Data:       data,
	}
}

// Publisher accepts events for delivery
type Publisher interface {
	Publish(ctx context.Context, events ...Event)
}

// Subscriber receives every published event
type Subscriber interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc struct {
	ID string
	Fn func(ctx context.Context, ev Event) error
}

func (f SubscriberFunc) Name() string                               { return f.ID }
func (f SubscriberFunc) Notify(ctx context.Context, ev Event) error { return f.Fn(ctx, ev) }

// Dispatcher delivers events to its subscribers in registration order.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   []Subscriber
	logger zerolog.Logger
}

// NewDispatcher creates a Dispatcher with the given subscribers
func NewDispatcher(logger zerolog.Logger, subs ...Subscriber) *Dispatcher {
	return &Dispatcher{subs: subs, logger: logger}
}

// Subscribe adds a subscriber
func (d *Dispatcher) Subscribe(s Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, s)
}

// Publish delivers events synchronously. Subscriber errors are logged.
func (d *Dispatcher) Publish(ctx context.Context, events ...Event) {
	d.mu.RLock()
	subs := append([]Subscriber(nil), d.subs...)
	d.mu.RUnlock()

	for _, ev := range events {
		for _, s := range subs {
			if err := s.Notify(ctx, ev); err != nil {
				d.logger.Warn().Err(err).
					Str("subscriber", s.Name()).
					Str("event", string(ev.Kind)).
					Int64("requestID", ev.RequestID).
					Msg("Event delivery failed")
			}
		}
	}
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, ...Event) {}

// Recorder keeps published events in memory. Useful in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, events ...Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []EventKind {
	var kinds []EventKind
	for _, ev := range r.Events() {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}
