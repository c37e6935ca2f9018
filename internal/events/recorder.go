package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists events.
type Store interface {
	InsertEvent(ctx context.Context, ev EventLog) error
}

// Recorder is what domain services use to note that something happened.
// Recording is best effort: failures are logged, never returned.
type Recorder interface {
	Record(ctx context.Context, eventType string, aggregateID uuid.UUID, payload map[string]any)
}

type storeRecorder struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewRecorder(store Store, logger *zap.Logger) Recorder {
	return &storeRecorder{store: store, logger: logger, now: time.Now}
}

func (r *storeRecorder) Record(ctx context.Context, eventType string, aggregateID uuid.UUID, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Warn("failed to marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	id := aggregateID
	ev := EventLog{
		EventType:   eventType,
		AggregateID: &id,
		Payload:     data,
		CreatedAt:   r.now(),
	}

	if err := r.store.InsertEvent(ctx, ev); err != nil {
		r.logger.Error("failed to insert event log",
			zap.String("event_type", eventType),
			zap.Stringer("aggregate_id", aggregateID),
			zap.Error(err),
		)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Record(context.Context, string, uuid.UUID, map[string]any) {}
