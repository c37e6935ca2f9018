package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-clinic/internal/appointment"
)

var (
	ErrPetParentNotFound = errors.New("pet parent not found")
	ErrPetNotFound       = errors.New("pet not found")
)

type Repository interface {
	GetParentByID(ctx context.Context, clinicID, id uuid.UUID) (*PetParent, error)
	ListParents(ctx context.Context, clinicID uuid.UUID) ([]PetParent, error)
	CreateParent(ctx context.Context, p *PetParent) error
	UpdateParent(ctx context.Context, p *PetParent) error
	SoftDeleteParent(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error)

	GetPetByID(ctx context.Context, clinicID, id uuid.UUID) (*Pet, error)
	ListPets(ctx context.Context, clinicID uuid.UUID, q ListQuery) ([]ListItem, error)
	SearchPets(ctx context.Context, clinicID uuid.UUID, q string, limit int) ([]SearchResult, error)
	CreatePet(ctx context.Context, p *Pet) error
	UpdatePet(ctx context.Context, p *Pet) error
	SoftDeletePet(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error)
}

// VisitHistory supplies the appointment side of a pet profile.
type VisitHistory interface {
	LastVisitForPet(ctx context.Context, clinicID, petID uuid.UUID) (*appointment.Appointment, error)
	UpcomingForPet(ctx context.Context, clinicID, petID uuid.UUID) (*appointment.Appointment, error)
}
