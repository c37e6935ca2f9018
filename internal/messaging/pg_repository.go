package messaging

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/vet-clinic/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const (
	reminderColumns = `id, clinic_id, entity_type, entity_id, channel, status, failure_reason, sent_at, created_at`
	messageColumns  = `id, clinic_id, recipient_phone, template_name, payload, status, provider_message_id, created_at`
)

func scanReminder(row pgx.Row) (*ReminderLog, error) {
	var r ReminderLog
	err := row.Scan(
		&r.ID,
		&r.ClinicID,
		&r.EntityType,
		&r.EntityID,
		&r.Channel,
		&r.Status,
		&r.FailureReason,
		&r.SentAt,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanMessage(row pgx.Row) (*MessageLog, error) {
	var m MessageLog
	var payload []byte
	err := row.Scan(
		&m.ID,
		&m.ClinicID,
		&m.RecipientPhone,
		&m.TemplateName,
		&payload,
		&m.Status,
		&m.ProviderMessageID,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Payload = payload
	return &m, nil
}

func writeError(op, table string, err error) error {
	if refErr := db.ReferenceError(err, table); refErr != nil {
		return refErr
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *PgRepository) CreateReminderLog(ctx context.Context, l *ReminderLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reminder_logs (`+reminderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, l.ID, l.ClinicID, l.EntityType, l.EntityID, l.Channel, l.Status, l.FailureReason, l.SentAt, l.CreatedAt)
	if err != nil {
		return writeError("insert reminder log", "reminder_logs", err)
	}
	return nil
}

func (r *PgRepository) ListReminderLogs(ctx context.Context, clinicID uuid.UUID) ([]ReminderLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminder_logs
		WHERE clinic_id = $1
		ORDER BY created_at DESC, id
	`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list reminder logs: %w", err)
	}
	return db.Collect(rows, scanReminder)
}

func (r *PgRepository) CreateMessageLog(ctx context.Context, m *MessageLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO message_logs (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.ID, m.ClinicID, m.RecipientPhone, m.TemplateName, []byte(m.Payload), m.Status, m.ProviderMessageID, m.CreatedAt)
	if err != nil {
		return writeError("insert message log", "message_logs", err)
	}
	return nil
}

func (r *PgRepository) ListMessageLogs(ctx context.Context, clinicID uuid.UUID) ([]MessageLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM message_logs
		WHERE clinic_id = $1
		ORDER BY created_at DESC, id
	`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list message logs: %w", err)
	}
	return db.Collect(rows, scanMessage)
}
