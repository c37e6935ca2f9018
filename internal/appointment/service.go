package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/clock"
	"github.com/hackgods/vet-clinic/internal/events"
	"github.com/hackgods/vet-clinic/internal/lock"
	"github.com/hackgods/vet-clinic/internal/record"
)

const (
	EventAppointmentBooked         = "APPOINTMENT_BOOKED"
	EventAppointmentOverrideBooked = "APPOINTMENT_OVERRIDE_BOOKED"
	EventAppointmentUpdated        = "APPOINTMENT_UPDATED"
	EventAppointmentDeleted        = "APPOINTMENT_DELETED"
)

const (
	fallbackVetName = "Vet"
	fallbackPetName = "Pet"
)

type Service struct {
	repo   Repository
	locker lock.Locker
	events events.Recorder
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, locker lock.Locker, recorder events.Recorder, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		events: recorder,
		logger: logger,
		now:    time.Now,
	}
}

// FindOverlaps returns the live, schedule-occupying appointments of vetID on
// date that intersect [start, end). exclude skips one appointment, which is
// how an edit avoids conflicting with itself.
func (s *Service) FindOverlaps(ctx context.Context, clinicID, vetID uuid.UUID, date time.Time, start, end clock.TimeOfDay, exclude *uuid.UUID) ([]Appointment, error) {
	candidates, err := s.repo.ListVetDayCandidates(ctx, clinicID, vetID, date, exclude)
	if err != nil {
		return nil, fmt.Errorf("list vet day appointments: %w", err)
	}
	return FilterOverlaps(candidates, start, end, exclude), nil
}

// Book creates an appointment, running the overlap check and the override
// protocol while holding the vet's schedule lock for that day.
func (s *Service) Book(ctx context.Context, clinicID uuid.UUID, b Booking) (*Appointment, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	var (
		booked   *Appointment
		override bool
	)

	err := s.withSchedule(ctx, clinicID, b, func(lockCtx context.Context) error {
		notes, overridden, err := s.resolve(lockCtx, clinicID, b, nil)
		if err != nil {
			return err
		}

		now := s.now()
		appt := &Appointment{
			ID:            uuid.New(),
			ClinicID:      clinicID,
			PetID:         b.PetID,
			VetID:         b.VetID,
			Date:          b.Date,
			StartTime:     b.StartTime,
			EndTime:       b.EndTime,
			Status:        b.Status,
			Notes:         notes,
			ProcedureType: b.ProcedureType,
			Lifecycle:     record.New(now),
		}
		if err := s.repo.CreateAppointment(lockCtx, appt); err != nil {
			return err
		}

		booked, override = appt, overridden
		return nil
	})
	if err != nil {
		return nil, err
	}

	eventType := EventAppointmentBooked
	if override {
		eventType = EventAppointmentOverrideBooked
	}
	s.events.Record(ctx, eventType, booked.ID, bookingPayload(booked))

	s.logger.Info("appointment booked",
		zap.Stringer("appointment_id", booked.ID),
		zap.Stringer("vet_id", booked.VetID),
		zap.String("date", clock.FormatDate(booked.Date)),
		zap.Bool("override", override),
	)

	return booked, nil
}

// Update replaces the editable fields of an appointment. The overlap check
// excludes the appointment itself.
func (s *Service) Update(ctx context.Context, clinicID, id uuid.UUID, b Booking) (*Appointment, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	var (
		updated  *Appointment
		override bool
	)

	err := s.withSchedule(ctx, clinicID, b, func(lockCtx context.Context) error {
		appt, err := s.repo.GetAppointmentByID(lockCtx, clinicID, id)
		if err != nil {
			return err
		}

		notes, overridden, err := s.resolve(lockCtx, clinicID, b, &appt.ID)
		if err != nil {
			return err
		}

		appt.PetID = b.PetID
		appt.VetID = b.VetID
		appt.Date = b.Date
		appt.StartTime = b.StartTime
		appt.EndTime = b.EndTime
		appt.Status = b.Status
		appt.Notes = notes
		appt.ProcedureType = b.ProcedureType
		appt.Touch(s.now())

		if err := s.repo.UpdateAppointment(lockCtx, appt); err != nil {
			return err
		}

		updated, override = appt, overridden
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload := bookingPayload(updated)
	payload["override"] = override
	s.events.Record(ctx, EventAppointmentUpdated, updated.ID, payload)

	return updated, nil
}

func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, clinicID, id)
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID, f Filter) ([]Appointment, error) {
	appts, err := s.repo.ListAppointments(ctx, clinicID, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// Delete soft-deletes an appointment. Deleting it again is a no-op.
func (s *Service) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	changed, err := s.repo.SoftDeleteAppointment(ctx, clinicID, id, s.now())
	if err != nil {
		return err
	}
	if changed {
		s.events.Record(ctx, EventAppointmentDeleted, id, map[string]any{
			"clinic_id": clinicID.String(),
		})
	}
	return nil
}

// LastVisitForPet returns the most recent completed appointment, or nil.
func (s *Service) LastVisitForPet(ctx context.Context, clinicID, petID uuid.UUID) (*Appointment, error) {
	return optional(s.repo.LastCompletedForPet(ctx, clinicID, petID))
}

// UpcomingForPet returns the next scheduled appointment from today on, or nil.
func (s *Service) UpcomingForPet(ctx context.Context, clinicID, petID uuid.UUID) (*Appointment, error) {
	return optional(s.repo.NextScheduledForPet(ctx, clinicID, petID, clock.DateOf(s.now())))
}

func optional(a *Appointment, err error) (*Appointment, error) {
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, nil
	}
	return a, err
}

func (s *Service) withSchedule(ctx context.Context, clinicID uuid.UUID, b Booking, fn func(ctx context.Context) error) error {
	err := s.locker.WithVetDayLock(ctx, clinicID, b.VetID, b.Date, fn)
	if errors.Is(err, lock.ErrLockNotAcquired) {
		return ErrScheduleBusy
	}
	return err
}

// resolve runs the overlap check for b and returns the notes to persist and
// whether an override was applied.
func (s *Service) resolve(ctx context.Context, clinicID uuid.UUID, b Booking, exclude *uuid.UUID) (string, bool, error) {
	overlaps, err := s.FindOverlaps(ctx, clinicID, b.VetID, b.Date, b.StartTime, b.EndTime, exclude)
	if err != nil {
		return "", false, err
	}

	switch Decide(len(overlaps), b.AllowOverlap, b.ConfirmOverride) {
	case DecisionBook:
		return b.Notes, false, nil
	case DecisionRejectOverlap:
		conflicts, err := s.describe(ctx, b.VetID, overlaps)
		if err != nil {
			return "", false, err
		}
		return "", false, &OverlapError{Conflicts: conflicts}
	case DecisionConfirmOverride:
		return "", false, ErrOverrideConfirmationRequired
	case DecisionBookWithOverride:
		s.logger.Warn("booking over existing appointments",
			zap.Stringer("vet_id", b.VetID),
			zap.Int("overlaps", len(overlaps)),
		)
		return OverrideNote(b.Notes, overlaps[0]), true, nil
	}
	return "", false, fmt.Errorf("unhandled booking decision")
}

func (s *Service) describe(ctx context.Context, vetID uuid.UUID, overlaps []Appointment) ([]Conflict, error) {
	vetName, err := s.repo.GetVetName(ctx, vetID)
	if errors.Is(err, ErrVetNotFound) {
		vetName = fallbackVetName
	} else if err != nil {
		return nil, fmt.Errorf("load vet name: %w", err)
	}

	petNames := make(map[uuid.UUID]string)
	conflicts := make([]Conflict, 0, len(overlaps))
	for _, a := range overlaps {
		petName, ok := petNames[a.PetID]
		if !ok {
			petName, err = s.repo.GetPetName(ctx, a.PetID)
			if errors.Is(err, ErrPetNotFound) {
				petName = fallbackPetName
			} else if err != nil {
				return nil, fmt.Errorf("load pet name: %w", err)
			}
			petNames[a.PetID] = petName
		}

		conflicts = append(conflicts, Conflict{
			AppointmentID: a.ID,
			VetName:       vetName,
			PetName:       petName,
			StartTime:     a.StartTime,
			EndTime:       a.EndTime,
		})
	}
	return conflicts, nil
}

func bookingPayload(a *Appointment) map[string]any {
	return map[string]any{
		"clinic_id":        a.ClinicID.String(),
		"pet_id":           a.PetID.String(),
		"vet_id":           a.VetID.String(),
		"appointment_date": clock.FormatDate(a.Date),
		"start_time":       a.StartTime.String(),
		"end_time":         a.EndTime.String(),
		"status":           string(a.Status),
	}
}
