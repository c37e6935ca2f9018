package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrVetNotFound         = errors.New("vet not found")
	ErrPetNotFound         = errors.New("pet not found")

	ErrOverrideConfirmationRequired = errors.New("overlap override must be confirmed")
	ErrScheduleBusy                 = errors.New("vet schedule is being changed, please retry")
)

// OverlapError is returned when a booking collides with existing
// appointments and the caller did not ask to override.
type OverlapError struct {
	Conflicts []Conflict
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("appointment overlaps %d existing appointment(s)", len(e.Conflicts))
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// Live, schedule-occupying appointments for one vet on one day.
	ListVetDayCandidates(ctx context.Context, clinicID, vetID uuid.UUID, date time.Time, exclude *uuid.UUID) ([]Appointment, error)

	GetAppointmentByID(ctx context.Context, clinicID, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, clinicID uuid.UUID, f Filter) ([]Appointment, error)

	CreateAppointment(ctx context.Context, a *Appointment) error
	UpdateAppointment(ctx context.Context, a *Appointment) error
	SoftDeleteAppointment(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error)

	// Name lookups ignore soft deletion so conflicts with retired records
	// still render.
	GetVetName(ctx context.Context, vetID uuid.UUID) (string, error)
	GetPetName(ctx context.Context, petID uuid.UUID) (string, error)

	LastCompletedForPet(ctx context.Context, clinicID, petID uuid.UUID) (*Appointment, error)
	NextScheduledForPet(ctx context.Context, clinicID, petID uuid.UUID, from time.Time) (*Appointment, error)
}
