package medical

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

func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*Record, error) {
	return s.repo.GetRecordByID(ctx, clinicID, id)
}

// List returns the clinic's records, newest visit first. A non-nil petID
// narrows the list to one pet.
func (s *Service) List(ctx context.Context, clinicID uuid.UUID, petID *uuid.UUID) ([]Record, error) {
	return s.repo.ListRecords(ctx, clinicID, petID)
}

func (s *Service) Create(ctx context.Context, clinicID uuid.UUID, in Input) (*Record, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	r := &Record{
		ID:        uuid.New(),
		ClinicID:  clinicID,
		Lifecycle: record.New(s.now()),
	}
	in.apply(r)

	if err := s.repo.CreateRecord(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("medical record created",
		zap.Stringer("record_id", r.ID),
		zap.Stringer("pet_id", r.PetID),
	)
	return r, nil
}

func (s *Service) Update(ctx context.Context, clinicID, id uuid.UUID, in Input) (*Record, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	r, err := s.repo.GetRecordByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	in.apply(r)
	r.Touch(s.now())

	if err := s.repo.UpdateRecord(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	_, err := s.repo.SoftDeleteRecord(ctx, clinicID, id, s.now())
	return err
}
