package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-clinic/internal/appointment"
	"github.com/hackgods/vet-clinic/internal/record"
	"github.com/hackgods/vet-clinic/internal/validation"
)

// PageSize is the number of pets per List page.
const PageSize = 25

// SearchLimit caps quick-search results.
const SearchLimit = 10

type PetParent struct {
	ID                    uuid.UUID
	ClinicID              uuid.UUID
	Name                  string
	Phone                 string
	Email                 *string
	Address               *string
	WhatsAppNumber        string
	EmergencyContactName  string
	EmergencyContactPhone string
	record.Lifecycle
}

type ParentInput struct {
	Name                  string
	Phone                 string
	Email                 string
	Address               string
	WhatsAppNumber        string
	WhatsAppSame          bool
	EmergencyContactName  string
	EmergencyContactPhone string
}

func (in *ParentInput) normalize() error {
	v := validation.Violations{}
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	validation.Required("name", in.Name, v)
	validation.Required("phone", in.Phone, v)
	if in.WhatsAppSame {
		in.WhatsAppNumber = in.Phone
	}
	in.WhatsAppNumber = strings.TrimSpace(in.WhatsAppNumber)
	return v.Err()
}

func (in ParentInput) apply(p *PetParent) {
	p.Name = in.Name
	p.Phone = in.Phone
	p.Email = optional(in.Email)
	p.Address = optional(in.Address)
	p.WhatsAppNumber = in.WhatsAppNumber
	p.EmergencyContactName = strings.TrimSpace(in.EmergencyContactName)
	p.EmergencyContactPhone = strings.TrimSpace(in.EmergencyContactPhone)
}

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

func ParseGender(s string) (Gender, error) {
	switch g := Gender(s); g {
	case GenderMale, GenderFemale, GenderUnknown:
		return g, nil
	}
	return "", validation.New("gender", "invalid")
}

type Pet struct {
	ID                  uuid.UUID
	ClinicID            uuid.UUID
	PetParentID         uuid.UUID
	Name                string
	Species             string
	Breed               *string
	Gender              Gender
	DateOfBirth         *time.Time
	RegistrationNumber  *string
	SterilizationStatus *string
	Alerts              *string
	record.Lifecycle
}

type PetInput struct {
	PetParentID         uuid.UUID
	Name                string
	Species             string
	Breed               string
	Gender              Gender
	DateOfBirth         *time.Time
	RegistrationNumber  string
	SterilizationStatus string
	Alerts              string
}

func (in *PetInput) normalize(today time.Time) error {
	v := validation.Violations{}
	if in.PetParentID == uuid.Nil {
		v.Add("pet_parent_id", "required")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Species = strings.TrimSpace(in.Species)
	validation.Required("name", in.Name, v)
	validation.Required("species", in.Species, v)
	if _, err := ParseGender(string(in.Gender)); err != nil {
		v.Add("gender", "invalid")
	}
	if in.DateOfBirth != nil && in.DateOfBirth.After(today) {
		v.Add("date_of_birth", "must_not_be_in_future")
	}
	return v.Err()
}

func (in PetInput) apply(p *Pet) {
	p.PetParentID = in.PetParentID
	p.Name = in.Name
	p.Species = in.Species
	p.Breed = optional(in.Breed)
	p.Gender = in.Gender
	p.DateOfBirth = in.DateOfBirth
	p.RegistrationNumber = optional(in.RegistrationNumber)
	p.SterilizationStatus = optional(in.SterilizationStatus)
	p.Alerts = optional(in.Alerts)
}

// ListQuery filters the pet list. Q matches pet name, registration number
// and parent name, case-insensitively.
type ListQuery struct {
	Q          string
	Species    string
	Gender     Gender
	SortByName bool
	Page       int
}

func (q ListQuery) offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * PageSize
}

type ListItem struct {
	Pet
	ParentName string
}

type SearchResult struct {
	ID    uuid.UUID
	Name  string
	Breed *string
	Owner string
}

// Profile is the pet detail view.
type Profile struct {
	Pet             *Pet
	Parent          *PetParent
	LastVisit       *appointment.Appointment
	NextAppointment *appointment.Appointment
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
