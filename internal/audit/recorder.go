package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	id "fieldproof/pkg/domain"
	"fieldproof/pkg/requestcontext"
)

// Store is the append-only persistence behind the recorder.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByDocument(ctx context.Context, documentID id.DocumentID) ([]Event, error)
}

// Recorder stamps and appends events. It is the single write path for the
// audit trail; nothing updates or deletes.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// Record fills in the event identity, timestamp and request correlation, then
// appends. An append failure is surfaced to the caller; a transition without
// its audit record is treated as a failed transition.
func (r *Recorder) Record(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if err := r.store.Append(ctx, event); err != nil {
		r.logger.ErrorContext(ctx, "audit append failed",
			"document_id", event.DocumentID.String(),
			"action", event.Action,
			"error", err,
		)
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// History returns a document's events in append order.
func (r *Recorder) History(ctx context.Context, documentID id.DocumentID) ([]Event, error) {
	return r.store.ListByDocument(ctx, documentID)
}
