package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-clinic/internal/clock"
	"github.com/hackgods/vet-clinic/internal/record"
	"github.com/hackgods/vet-clinic/internal/validation"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// ParseStatus rejects anything outside the four known states.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, nil
	}
	return "", validation.New("status", "invalid")
}

// OccupiesSchedule reports whether an appointment in this state takes up
// the vet's time. Cancelled and no-show appointments free the slot.
func (s Status) OccupiesSchedule() bool {
	switch s {
	case StatusScheduled, StatusCompleted:
		return true
	case StatusCancelled, StatusNoShow:
		return false
	}
	return false
}

type Appointment struct {
	ID            uuid.UUID
	ClinicID      uuid.UUID
	PetID         uuid.UUID
	VetID         uuid.UUID
	Date          time.Time
	StartTime     clock.TimeOfDay
	EndTime       clock.TimeOfDay
	Status        Status
	Notes         string
	ProcedureType *string
	record.Lifecycle
}

// Conflict describes an existing appointment that blocks a booking.
type Conflict struct {
	AppointmentID uuid.UUID
	VetName       string
	PetName       string
	StartTime     clock.TimeOfDay
	EndTime       clock.TimeOfDay
}

// Filter narrows List. Nil fields are ignored.
type Filter struct {
	PetID *uuid.UUID
	VetID *uuid.UUID
	Date  *time.Time
}

// Booking is the caller's request to create or reschedule an appointment.
type Booking struct {
	PetID         uuid.UUID
	VetID         uuid.UUID
	Date          time.Time
	StartTime     clock.TimeOfDay
	EndTime       clock.TimeOfDay
	Status        Status
	Notes         string
	ProcedureType *string

	AllowOverlap    bool
	ConfirmOverride string
}

func (b *Booking) validate() error {
	v := validation.Violations{}
	if b.PetID == uuid.Nil {
		v.Add("pet_id", "required")
	}
	if b.VetID == uuid.Nil {
		v.Add("vet_id", "required")
	}
	if b.Date.IsZero() {
		v.Add("appointment_date", "required")
	}
	if !b.StartTime.Valid() {
		v.Add("start_time", "invalid")
	}
	if !b.EndTime.Valid() {
		v.Add("end_time", "invalid")
	}
	if b.EndTime <= b.StartTime {
		v.Add("end_time", "must_be_after_start_time")
	}
	if b.Status == "" {
		b.Status = StatusScheduled
	} else if _, err := ParseStatus(string(b.Status)); err != nil {
		v.Add("status", "invalid")
	}
	return v.Err()
}
