// Package notify delivers part lifecycle events to live consumers.
//
// Publishing is best-effort: callers log failures and carry on, a committed
// part is never rolled back because an event could not be sent.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// EventPartCreated is the event name for a newly created part.
const EventPartCreated = "part_created"

// Event is the JSON payload consumers receive.
type Event struct {
	Event   string `json:"event"`
	Message string `json:"message"`
	PartID  string `json:"part_id"`
}

// PartCreated builds the event announcing that user created part partID.
func PartCreated(user, partID string) Event {
	return Event{
		Event:   EventPartCreated,
		Message: fmt.Sprintf("Пользователь %s создал деталь: %s", user, partID),
		PartID:  partID,
	}
}

// Publisher sends events to consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Multi publishes every event to each publisher in order and joins the failures.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes events to a structured logger. It is the fallback sink
// when no Redis server is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, ev Event) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification", "event", ev.Event, "part_id", ev.PartID, "message", ev.Message)
	return nil
}

// Recorder keeps published events in memory. Set Err to simulate a failing sink.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.Err
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
