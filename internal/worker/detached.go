package worker

import (
	"context"
	"sync"

	"fintrack/internal/events"
	"fintrack/internal/log"
)

// Detached runs an event handler off the publisher's goroutine. Events that
// allow rejects are dropped. A run keeps the values of the publishing
// context, such as the signed-in user, but not its cancellation, so it
// outlives the request that caused it.
type Detached struct {
	handler events.Handler
	allow   func(context.Context, events.Event) bool
	logger  *log.Logger
	wg      sync.WaitGroup
}

func NewDetached(h events.Handler, allow func(context.Context, events.Event) bool, logger *log.Logger) *Detached {
	if logger == nil {
		logger = log.Discard()
	}
	return &Detached{
		handler: h,
		allow:   allow,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// Handle starts a run for e and returns at once.
func (d *Detached) Handle(ctx context.Context, e events.Event) error {
	if d.allow != nil && !d.allow(ctx, e) {
		d.logger.DebugContext(ctx, "Event not allowed, skipping", log.FieldEventType, e.Type, log.FieldEventID, e.ID)
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.handler(ctx, e); err != nil {
			d.logger.ErrorContext(ctx, "Background event handler failed",
				log.FieldEventType, e.Type,
				log.FieldEventID, e.ID,
				log.FieldError, err)
		}
	}()
	return nil
}

// Wait blocks until every started run has returned or ctx is done.
func (d *Detached) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
