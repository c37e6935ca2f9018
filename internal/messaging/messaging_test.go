package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/validation"
)

type memRepo struct {
	reminders []ReminderLog
	messages  []MessageLog
}

func (m *memRepo) CreateReminderLog(_ context.Context, r *ReminderLog) error {
	m.reminders = append(m.reminders, *r)
	return nil
}

func (m *memRepo) ListReminderLogs(_ context.Context, clinicID uuid.UUID) ([]ReminderLog, error) {
	var out []ReminderLog
	for _, r := range m.reminders {
		if r.ClinicID == clinicID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) CreateMessageLog(_ context.Context, l *MessageLog) error {
	m.messages = append(m.messages, *l)
	return nil
}

func (m *memRepo) ListMessageLogs(_ context.Context, clinicID uuid.UUID) ([]MessageLog, error) {
	var out []MessageLog
	for _, l := range m.messages {
		if l.ClinicID == clinicID {
			out = append(out, l)
		}
	}
	return out, nil
}

func newTestService() (*Service, *memRepo) {
	repo := &memRepo{}
	return NewService(repo, zap.NewNop()), repo
}

func TestLogMessageRequiresObjectPayload(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	for _, payload := range []string{``, `[]`, `"hi"`, `42`, `null`, `{"a":`} {
		_, err := svc.LogMessage(ctx, uuid.New(), MessageInput{
			RecipientPhone: "9000000100", TemplateName: "reminder", Payload: json.RawMessage(payload),
		})
		ve, ok := validation.As(err)
		require.True(t, ok, "payload %q", payload)
		assert.Equal(t, "must_be_json_object", ve.Fields["payload"])
	}
	assert.Empty(t, repo.messages)

	m, err := svc.LogMessage(ctx, uuid.New(), MessageInput{
		RecipientPhone: "9000000100", TemplateName: "reminder", Payload: json.RawMessage(` {"pet":"Bruno"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, MessageQueued, m.Status)
}

func TestLogReminder(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	clinicID := uuid.New()

	r, err := svc.LogReminder(ctx, clinicID, ReminderInput{
		EntityType: EntityVaccination, EntityID: "abc", Status: ReminderSent, SentAt: "2026-05-01T09:30:00+05:30",
	})
	require.NoError(t, err)
	assert.Equal(t, ChannelWhatsApp, r.Channel)
	require.NotNil(t, r.SentAt)
	assert.True(t, r.SentAt.Equal(time.Date(2026, 5, 1, 4, 0, 0, 0, time.UTC)))

	r, err = svc.LogReminder(ctx, clinicID, ReminderInput{
		EntityType: EntityPayment, EntityID: "inv-1", Status: ReminderFailed, FailureReason: "blocked",
	})
	require.NoError(t, err)
	assert.Nil(t, r.SentAt)

	list, err := svc.ListReminders(ctx, clinicID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestLogReminderValidation(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.LogReminder(context.Background(), uuid.New(), ReminderInput{
		EntityType: "invoice", Channel: "sms", Status: "queued", SentAt: "yesterday",
	})
	ve, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, "invalid", ve.Fields["entity_type"])
	assert.Equal(t, "required", ve.Fields["entity_id"])
	assert.Equal(t, "invalid", ve.Fields["channel"])
	assert.Equal(t, "invalid", ve.Fields["status"])
	assert.Equal(t, "invalid", ve.Fields["sent_at"])
	assert.Empty(t, repo.reminders)
}
