package events

import (
	"time"

	"github.com/google/uuid"
)

// EventLog is one row of the append-only event_logs table.
type EventLog struct {
	ID          int64
	EventType   string
	AggregateID *uuid.UUID
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}
