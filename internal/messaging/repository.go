package messaging

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateReminderLog(ctx context.Context, r *ReminderLog) error
	ListReminderLogs(ctx context.Context, clinicID uuid.UUID) ([]ReminderLog, error)
	CreateMessageLog(ctx context.Context, m *MessageLog) error
	ListMessageLogs(ctx context.Context, clinicID uuid.UUID) ([]MessageLog, error)
}
