package worker

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/events"
	sheetsmem "fintrack/internal/sheets/memory"
)

func TestDetachedGatesAndOutlivesCaller(t *testing.T) {
	tests := []struct {
		name   string
		user   string
		export int
	}{
		{"allowed user", "pro", 1},
		{"refused user", "free", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := sheetsmem.New()
			w := NewExportWorker(kvWith(t, sample("t1", march)), exporter, nil)
			d := NewDetached(w.Handle, func(ctx context.Context, _ events.Event) bool {
				return auth.UserIDFrom(ctx) == "pro"
			}, nil)

			ctx, cancel := context.WithCancel(auth.WithUserID(context.Background(), tt.user))
			if err := d.Handle(ctx, created(t, sample("t1", march))); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			cancel()

			waitCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := d.Wait(waitCtx); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
			if got := len(exporter.Exported()); got != tt.export {
				t.Fatalf("exported %d, want %d", got, tt.export)
			}
		})
	}
}

func TestDetachedReturnsBeforeHandler(t *testing.T) {
	release := make(chan struct{})
	d := NewDetached(func(context.Context, events.Event) error {
		<-release
		return nil
	}, nil, nil)

	if err := d.Handle(context.Background(), events.Event{Type: events.TransactionCreated}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.Wait(ctx); err == nil {
		t.Fatal("Wait() returned while the handler was still running")
	}

	close(release)
	if err := d.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}
