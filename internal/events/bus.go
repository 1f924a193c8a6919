// Package events is the in-process publish/subscribe registry connecting the
// alert transport to its consumers.
package events

import (
	"sync"

	"go.uber.org/zap"

	"github.com/gigflow/gigwatch/internal/gig"
)

// Kind identifies an event variant on the bus.
type Kind string

const (
	KindGigAlert           Kind = "gig_alert"
	KindApplicationUpdate  Kind = "application_update"
	KindSystemNotification Kind = "system_notification"
	KindConnected          Kind = "connected"
	KindDisconnected       Kind = "disconnected"
)

// Event is the tagged union of everything published on the bus.
type Event interface {
	EventKind() Kind
}

// GigAlert announces a freshly posted gig matching the user's subscription.
type GigAlert struct {
	Gig *gig.Gig
}

func (GigAlert) EventKind() Kind { return KindGigAlert }

// ApplicationUpdate reports a status change on one of the user's applications.
type ApplicationUpdate struct {
	ApplicationID string
	Status        string
	GigTitle      string
	Notes         string
}

func (ApplicationUpdate) EventKind() Kind { return KindApplicationUpdate }

// SystemNotification is a free-form message from the alert server.
type SystemNotification struct {
	Level   string
	Message string
}

func (SystemNotification) EventKind() Kind { return KindSystemNotification }

// Connected is published when the alert transport establishes a connection.
type Connected struct{}

func (Connected) EventKind() Kind { return KindConnected }

// Disconnected is published when the alert transport loses its connection.
type Disconnected struct{}

func (Disconnected) EventKind() Kind { return KindDisconnected }

// Handler receives events synchronously on the publishing goroutine.
type Handler func(Event)

type subscriber struct {
	id      int
	handler Handler
}

// Bus delivers every event to the handlers registered for its kind, in
// registration order. A panicking handler is recovered and logged without
// stopping delivery to the remaining handlers.
type Bus struct {
	mu       sync.Mutex
	logger   *zap.Logger
	nextID   int
	handlers map[Kind][]subscriber
}

func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		logger:   logger,
		handlers: make(map[Kind][]subscriber),
	}
}

// Subscription identifies a registered handler so it can be removed again.
type Subscription struct {
	bus  *Bus
	kind Kind
	id   int
}

func (b *Bus) Subscribe(kind Kind, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[kind] = append(b.handlers[kind], subscriber{id: b.nextID, handler: handler})

	return &Subscription{bus: b, kind: kind, id: b.nextID}
}

// Cancel removes the handler. Remaining handlers keep their relative order.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	subs := s.bus.handlers[s.kind]
	for i, sub := range subs {
		if sub.id == s.id {
			s.bus.handlers[s.kind] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish invokes the handlers for the event's kind synchronously, FIFO.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.handlers[event.EventKind()]))
	copy(subs, b.handlers[event.EventKind()])
	b.mu.Unlock()

	for _, sub := range subs {
		b.invoke(sub, event)
	}
}

func (b *Bus) invoke(sub subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event", string(event.EventKind())),
				zap.Any("panic", r),
			)
		}
	}()

	sub.handler(event)
}
