package events

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"fintrack/internal/log"
)

// Handler consumes one event.
type Handler func(ctx context.Context, e Event) error

// Bus fans events out to handlers in the publishing goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers []subscription
	logger   *log.Logger
}

type subscription struct {
	types   []Type
	handler Handler
}

func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Discard()
	}
	return &Bus{logger: logger.WithComponent(log.ComponentEvents)}
}

// Subscribe registers h for the given types, or for every type when none
// are given.
func (b *Bus) Subscribe(h Handler, types ...Type) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, subscription{types: types, handler: h})
}

// Publish runs every matching handler. A failing handler does not stop the
// others; their errors are joined.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	subs := slices.Clone(b.handlers)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if len(s.types) > 0 && !slices.Contains(s.types, e.Type) {
			continue
		}
		if err := s.handler(ctx, e); err != nil {
			b.logger.WarnContext(ctx, "Event handler failed",
				log.FieldEventType, e.Type,
				log.FieldEventID, e.ID,
				log.FieldError, err)
			errs = append(errs, fmt.Errorf("%s handler: %w", e.Type, err))
		}
	}
	return errors.Join(errs...)
}

// Forward returns a handler that republishes events to p.
func Forward(p Publisher) Handler {
	return func(ctx context.Context, e Event) error {
		return p.Publish(ctx, e)
	}
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
