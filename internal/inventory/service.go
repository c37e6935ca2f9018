package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/record"
)

type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*Item, error) {
	return s.repo.GetItemByID(ctx, clinicID, id)
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID) ([]Item, error) {
	return s.repo.ListItems(ctx, clinicID)
}

func (s *Service) ListLowStock(ctx context.Context, clinicID uuid.UUID) ([]Item, error) {
	return s.repo.ListLowStock(ctx, clinicID)
}

func (s *Service) Create(ctx context.Context, clinicID uuid.UUID, in Input) (*Item, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	i := &Item{
		ID:        uuid.New(),
		ClinicID:  clinicID,
		Lifecycle: record.New(s.now()),
	}
	in.apply(i)

	if err := s.repo.CreateItem(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

func (s *Service) Update(ctx context.Context, clinicID, id uuid.UUID, in Input) (*Item, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	i, err := s.repo.GetItemByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	wasLow := i.LowStock()
	in.apply(i)
	i.Touch(s.now())

	if err := s.repo.UpdateItem(ctx, i); err != nil {
		return nil, err
	}

	if !wasLow && i.LowStock() {
		s.logger.Warn("inventory item fell to low stock",
			zap.Stringer("item_id", i.ID),
			zap.String("name", i.Name),
			zap.Int("quantity", i.Quantity),
			zap.Int("threshold", i.LowStockThreshold),
		)
	}
	return i, nil
}

func (s *Service) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	_, err := s.repo.SoftDeleteItem(ctx, clinicID, id, s.now())
	return err
}
