// Package events provides the in-process publish/subscribe bus that decouples
// the access workflow engine from notification and UI-refresh listeners, plus
// a bounded in-memory log of recent events.
package events

import (
	"log/slog"
	"sync"
	"time"

	"girder/internal/models"
	"girder/internal/observability"

	"github.com/google/uuid"
)

// Kind identifies an event type. Using a closed enum instead of free-form
// topic strings gives compile-time exhaustiveness over event kinds.
type Kind int

const (
	// KindAccessRequestSubmitted fires when a new request enters the ledger,
	// whether pending or auto-approved.
	KindAccessRequestSubmitted Kind = iota
	// KindAccessRequestDecided fires on an approve/reject decision, human or
	// rule-based.
	KindAccessRequestDecided
	// KindAccessRequestRevoked fires when an approved grant is withdrawn.
	KindAccessRequestRevoked
	// KindUserActivated fires when an admin activates a user account.
	KindUserActivated
	// KindUserDeactivated fires when an admin deactivates a user account.
	KindUserDeactivated
)

var kindNames = map[Kind]string{
	KindAccessRequestSubmitted: "access_request_submitted",
	KindAccessRequestDecided:   "access_request_decided",
	KindAccessRequestRevoked:   "access_request_revoked",
	KindUserActivated:          "user_activated",
	KindUserDeactivated:        "user_deactivated",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// AllKinds returns every declared event kind, in declaration order.
func AllKinds() []Kind {
	return []Kind{
		KindAccessRequestSubmitted,
		KindAccessRequestDecided,
		KindAccessRequestRevoked,
		KindUserActivated,
		KindUserDeactivated,
	}
}

// Event carries a snapshot of the post-transition state. Request is set for
// access-request kinds, User for user kinds.
type Event struct {
	ID         string                `json:"id"`
	Kind       Kind                  `json:"-"`
	Name       string                `json:"kind"`
	OccurredAt time.Time             `json:"occurred_at"`
	Request    *models.AccessRequest `json:"request,omitempty"`
	User       *models.User          `json:"user,omitempty"`
}

// Handler consumes a published event. Handlers run synchronously on the
// publisher's goroutine; a panicking handler is recovered and logged without
// affecting later handlers or the publisher.
type Handler func(Event)

type subscriber struct {
	name string
	fn   Handler
}

// Bus is a synchronous in-process publish/subscribe registry keyed by Kind.
// Delivery order equals subscription order. There is no persistence or
// replay: handlers registered after a publish never see that event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Kind][]subscriber
	logger *slog.Logger
}

// NewBus creates an empty bus. A nil logger falls back to slog.Default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[Kind][]subscriber),
		logger: logger,
	}
}

// Subscribe registers fn under name for the given kind. Subscribing the same
// name twice replaces the handler in place, keeping its original position.
func (b *Bus) Subscribe(kind Kind, name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs[kind] {
		if sub.name == name {
			b.subs[kind][i].fn = fn
			return
		}
	}
	b.subs[kind] = append(b.subs[kind], subscriber{name: name, fn: fn})
}

// SubscribeAll registers fn under name for every declared kind.
func (b *Bus) SubscribeAll(name string, fn Handler) {
	for _, kind := range AllKinds() {
		b.Subscribe(kind, name, fn)
	}
}

// Unsubscribe removes the named handler for the given kind. Removing a name
// that is not registered is a no-op.
func (b *Bus) Unsubscribe(kind Kind, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[kind]
	for i, sub := range subs {
		if sub.name == name {
			b.subs[kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish builds an Event for kind and delivers it to each current subscriber
// in subscription order. It returns the published event. Handler panics are
// recovered and logged; they never unwind into the publisher, and a failing
// handler does not prevent later handlers from running.
func (b *Bus) Publish(kind Kind, request *models.AccessRequest, user *models.User) Event {
	event := Event{
		ID:         uuid.New().String(),
		Kind:       kind,
		Name:       kind.String(),
		OccurredAt: time.Now().UTC(),
		Request:    request,
		User:       user,
	}

	observability.EventsPublished.WithLabelValues(kind.String()).Inc()

	b.mu.RLock()
	subs := make([]subscriber, len(b.subs[kind]))
	copy(subs, b.subs[kind])
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, event)
	}
	return event
}

func (b *Bus) deliver(sub subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked",
				slog.String("subscriber", sub.name),
				slog.String("kind", event.Kind.String()),
				slog.Any("panic", r),
			)
		}
	}()
	sub.fn(event)
}
