package events

import (
	"context"
	"errors"
	"testing"
)

type capturePublisher struct {
	events []Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, event Event) error {
	p.events = append(p.events, event)
	return p.err
}

func TestEmitStampsID(t *testing.T) {
	pub := &capturePublisher{}
	Emit(context.Background(), pub, Event{Type: BookingCreated, BookingID: 4})

	if len(pub.events) != 1 || pub.events[0].ID == "" {
		t.Fatalf("expected one stamped event, got %+v", pub.events)
	}

	Emit(context.Background(), pub, Event{ID: "fixed", Type: BookingCreated})
	if pub.events[1].ID != "fixed" {
		t.Fatalf("expected caller id to be kept, got %q", pub.events[1].ID)
	}
}

func TestEmitSwallowsFailures(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	Emit(context.Background(), pub, Event{Type: MatchStarted})
	Emit(context.Background(), nil, Event{Type: MatchStarted})

	if len(pub.events) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(pub.events))
	}
	if err := (LogPublisher{}).Publish(context.Background(), Event{Type: MatchStarted}); err != nil {
		t.Fatalf("log publisher: %v", err)
	}
}
