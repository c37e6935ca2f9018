package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/clock"
	"github.com/hackgods/vet-clinic/internal/record"
	"github.com/hackgods/vet-clinic/internal/validation"
)

type Service struct {
	repo    Repository
	history VisitHistory
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(repo Repository, history VisitHistory, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// Pet parents

func (s *Service) GetParent(ctx context.Context, clinicID, id uuid.UUID) (*PetParent, error) {
	return s.repo.GetParentByID(ctx, clinicID, id)
}

func (s *Service) ListParents(ctx context.Context, clinicID uuid.UUID) ([]PetParent, error) {
	return s.repo.ListParents(ctx, clinicID)
}

func (s *Service) CreateParent(ctx context.Context, clinicID uuid.UUID, in ParentInput) (*PetParent, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	p := &PetParent{
		ID:        uuid.New(),
		ClinicID:  clinicID,
		Lifecycle: record.New(s.now()),
	}
	in.apply(p)

	if err := s.repo.CreateParent(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdateParent(ctx context.Context, clinicID, id uuid.UUID, in ParentInput) (*PetParent, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	p, err := s.repo.GetParentByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	p.Touch(s.now())

	if err := s.repo.UpdateParent(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeleteParent(ctx context.Context, clinicID, id uuid.UUID) error {
	_, err := s.repo.SoftDeleteParent(ctx, clinicID, id, s.now())
	return err
}

// Pets

func (s *Service) GetPet(ctx context.Context, clinicID, id uuid.UUID) (*Pet, error) {
	return s.repo.GetPetByID(ctx, clinicID, id)
}

// List returns one page of pets with their parent's name.
func (s *Service) List(ctx context.Context, clinicID uuid.UUID, q ListQuery) ([]ListItem, error) {
	if q.Gender != "" {
		if _, err := ParseGender(string(q.Gender)); err != nil {
			return nil, err
		}
	}
	return s.repo.ListPets(ctx, clinicID, q)
}

// Search is the quick lookup used by booking forms. A blank query matches
// nothing.
func (s *Service) Search(ctx context.Context, clinicID uuid.UUID, q string) ([]SearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []SearchResult{}, nil
	}
	return s.repo.SearchPets(ctx, clinicID, q, SearchLimit)
}

func (s *Service) CreatePet(ctx context.Context, clinicID uuid.UUID, in PetInput) (*Pet, error) {
	if err := s.validatePet(ctx, clinicID, &in); err != nil {
		return nil, err
	}

	p := &Pet{
		ID:        uuid.New(),
		ClinicID:  clinicID,
		Lifecycle: record.New(s.now()),
	}
	in.apply(p)

	if err := s.repo.CreatePet(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("pet registered",
		zap.Stringer("pet_id", p.ID),
		zap.Stringer("pet_parent_id", p.PetParentID),
	)
	return p, nil
}

func (s *Service) UpdatePet(ctx context.Context, clinicID, id uuid.UUID, in PetInput) (*Pet, error) {
	if err := s.validatePet(ctx, clinicID, &in); err != nil {
		return nil, err
	}

	p, err := s.repo.GetPetByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	p.Touch(s.now())

	if err := s.repo.UpdatePet(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePet(ctx context.Context, clinicID, id uuid.UUID) error {
	_, err := s.repo.SoftDeletePet(ctx, clinicID, id, s.now())
	return err
}

// Profile assembles the pet detail view: the pet, its parent, the most
// recent completed visit and the next scheduled appointment.
func (s *Service) Profile(ctx context.Context, clinicID, petID uuid.UUID) (*Profile, error) {
	pet, err := s.repo.GetPetByID(ctx, clinicID, petID)
	if err != nil {
		return nil, err
	}

	parent, err := s.repo.GetParentByID(ctx, clinicID, pet.PetParentID)
	if err != nil && !errors.Is(err, ErrPetParentNotFound) {
		return nil, err
	}

	last, err := s.history.LastVisitForPet(ctx, clinicID, petID)
	if err != nil {
		return nil, fmt.Errorf("last visit: %w", err)
	}
	next, err := s.history.UpcomingForPet(ctx, clinicID, petID)
	if err != nil {
		return nil, fmt.Errorf("next appointment: %w", err)
	}

	return &Profile{
		Pet:             pet,
		Parent:          parent,
		LastVisit:       last,
		NextAppointment: next,
	}, nil
}

// validatePet normalizes in and checks the parent belongs to the clinic.
func (s *Service) validatePet(ctx context.Context, clinicID uuid.UUID, in *PetInput) error {
	if err := in.normalize(clock.DateOf(s.now())); err != nil {
		return err
	}
	if _, err := s.repo.GetParentByID(ctx, clinicID, in.PetParentID); err != nil {
		if errors.Is(err, ErrPetParentNotFound) {
			return validation.New("pet_parent_id", "does_not_exist")
		}
		return err
	}
	return nil
}
