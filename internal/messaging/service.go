package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) LogReminder(ctx context.Context, clinicID uuid.UUID, in ReminderInput) (*ReminderLog, error) {
	sentAt, err := in.normalize()
	if err != nil {
		return nil, err
	}

	l := &ReminderLog{
		ID:            uuid.New(),
		ClinicID:      clinicID,
		EntityType:    in.EntityType,
		EntityID:      in.EntityID,
		Channel:       in.Channel,
		Status:        in.Status,
		FailureReason: in.FailureReason,
		SentAt:        sentAt,
		CreatedAt:     s.now(),
	}
	if err := s.repo.CreateReminderLog(ctx, l); err != nil {
		return nil, err
	}

	if l.Status == ReminderFailed {
		s.logger.Warn("reminder delivery failed",
			zap.String("entity_type", string(l.EntityType)),
			zap.String("entity_id", l.EntityID),
			zap.String("reason", l.FailureReason),
		)
	}
	return l, nil
}

func (s *Service) ListReminders(ctx context.Context, clinicID uuid.UUID) ([]ReminderLog, error) {
	return s.repo.ListReminderLogs(ctx, clinicID)
}

func (s *Service) LogMessage(ctx context.Context, clinicID uuid.UUID, in MessageInput) (*MessageLog, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	m := &MessageLog{
		ID:                uuid.New(),
		ClinicID:          clinicID,
		RecipientPhone:    in.RecipientPhone,
		TemplateName:      in.TemplateName,
		Payload:           in.Payload,
		Status:            in.Status,
		ProviderMessageID: in.ProviderMessageID,
		CreatedAt:         s.now(),
	}
	if err := s.repo.CreateMessageLog(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) ListMessages(ctx context.Context, clinicID uuid.UUID) ([]MessageLog, error) {
	return s.repo.ListMessageLogs(ctx, clinicID)
}
