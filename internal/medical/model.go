package medical

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-clinic/internal/record"
	"github.com/hackgods/vet-clinic/internal/validation"
)

type Record struct {
	ID           uuid.UUID
	ClinicID     uuid.UUID
	PetID        uuid.UUID
	VetID        uuid.UUID
	VisitDate    time.Time
	Symptoms     *string
	Diagnosis    *string
	Prescription *string
	FollowUpDate *time.Time
	record.Lifecycle
}

type Input struct {
	PetID        uuid.UUID
	VetID        uuid.UUID
	VisitDate    time.Time
	Symptoms     string
	Diagnosis    string
	Prescription string
	FollowUpDate *time.Time
}

func (in *Input) normalize() error {
	v := validation.Violations{}
	if in.PetID == uuid.Nil {
		v.Add("pet_id", "required")
	}
	if in.VetID == uuid.Nil {
		v.Add("vet_id", "required")
	}
	if in.VisitDate.IsZero() {
		v.Add("visit_date", "required")
	}
	if in.FollowUpDate != nil && !in.VisitDate.IsZero() && in.FollowUpDate.Before(in.VisitDate) {
		v.Add("follow_up_date", "must_not_be_before_visit_date")
	}
	return v.Err()
}

func (in Input) apply(r *Record) {
	r.PetID = in.PetID
	r.VetID = in.VetID
	r.VisitDate = in.VisitDate
	r.Symptoms = optional(in.Symptoms)
	r.Diagnosis = optional(in.Diagnosis)
	r.Prescription = optional(in.Prescription)
	r.FollowUpDate = in.FollowUpDate
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
