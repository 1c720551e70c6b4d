package worker

import (
	"context"
	"log/slog"

	audit "issuehub/pkg/platform/audit"
)

// Worker drains audit events from a channel into a store. A failed append
// is logged and skipped so one bad sink write never stalls the queue.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run processes events until the inbox is closed. Events still queued when
// ctx is cancelled are written with a background context before returning.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case event, ok := <-w.inbox:
			if !ok {
				return
			}
			w.append(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	for event := range w.inbox {
		w.append(context.Background(), event)
	}
}

func (w *Worker) append(ctx context.Context, event audit.Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to persist audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
