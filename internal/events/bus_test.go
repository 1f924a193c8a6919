package events

import (
	"testing"

	"go.uber.org/zap"

	"github.com/gigflow/gigwatch/internal/gig"
)

func TestHandlersRunInRegistrationOrder(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var order []int
	bus.Subscribe(KindGigAlert, func(Event) { order = append(order, 1) })
	bus.Subscribe(KindGigAlert, func(Event) { order = append(order, 2) })
	bus.Subscribe(KindGigAlert, func(Event) { order = append(order, 3) })

	bus.Publish(GigAlert{Gig: &gig.Gig{ID: "g1"}})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected FIFO order [1 2 3], got %v", order)
	}
}

func TestPanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var delivered bool
	bus.Subscribe(KindSystemNotification, func(Event) { panic("boom") })
	bus.Subscribe(KindSystemNotification, func(Event) { delivered = true })

	bus.Publish(SystemNotification{Level: "info", Message: "hello"})

	if !delivered {
		t.Fatalf("expected the second handler to run after the first panicked")
	}
}

func TestHandlersOnlyReceiveTheirKind(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var got []Kind
	bus.Subscribe(KindConnected, func(e Event) { got = append(got, e.EventKind()) })

	bus.Publish(Disconnected{})
	bus.Publish(Connected{})

	if len(got) != 1 || got[0] != KindConnected {
		t.Fatalf("expected only the connected event, got %v", got)
	}
}

func TestCancelRemovesHandlerKeepingOrder(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var order []int
	bus.Subscribe(KindGigAlert, func(Event) { order = append(order, 1) })
	sub := bus.Subscribe(KindGigAlert, func(Event) { order = append(order, 2) })
	bus.Subscribe(KindGigAlert, func(Event) { order = append(order, 3) })

	sub.Cancel()
	bus.Publish(GigAlert{Gig: &gig.Gig{ID: "g1"}})

	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Fatalf("expected [1 3] after cancel, got %v", order)
	}
}

func TestPublishWithoutHandlers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	// Must not panic.
	bus.Publish(ApplicationUpdate{ApplicationID: "a1", Status: "hired"})
}
