package clinic

import (
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/vet-clinic/internal/auth"
	"github.com/hackgods/vet-clinic/internal/record"
	"github.com/hackgods/vet-clinic/internal/validation"
)

type Clinic struct {
	ID      uuid.UUID
	Name    string
	Phone   string
	Address string
	City    string
	State   string
	Pincode string
	record.Lifecycle
}

type ClinicInput struct {
	Name    string
	Phone   string
	Address string
	City    string
	State   string
	Pincode string
}

func (in *ClinicInput) normalize(prefix string, v validation.Violations) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	validation.Required(prefix+"name", in.Name, v)
	validation.Required(prefix+"phone", in.Phone, v)
}

func (in ClinicInput) apply(c *Clinic) {
	c.Name = in.Name
	c.Phone = in.Phone
	c.Address = in.Address
	c.City = in.City
	c.State = in.State
	c.Pincode = in.Pincode
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleVet   Role = "vet"
	RoleStaff Role = "staff"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleVet, RoleStaff:
		return r, nil
	}
	return "", validation.New("role", "invalid")
}

type User struct {
	ID           uuid.UUID
	ClinicID     uuid.UUID
	Name         string
	Phone        string
	Email        *string
	Role         Role
	IsActive     bool
	PasswordHash string
	record.Lifecycle
}

func (u *User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, ClinicID: u.ClinicID, Role: string(u.Role)}
}

// UserInput is used for create and update. On update an empty Password
// keeps the current hash.
type UserInput struct {
	Name     string
	Phone    string
	Email    string
	Role     Role
	IsActive bool
	Password string
}

func (in *UserInput) normalize(prefix string, requirePassword bool, v validation.Violations) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	validation.Required(prefix+"name", in.Name, v)
	validation.Required(prefix+"phone", in.Phone, v)
	if _, err := ParseRole(string(in.Role)); err != nil {
		v.Add(prefix+"role", "invalid")
	}
	if requirePassword {
		validation.Required(prefix+"password", in.Password, v)
	}
	validation.MaxBytes(prefix+"password", in.Password, auth.MaxPasswordBytes, v)
}

func (in UserInput) email() *string {
	if in.Email == "" {
		return nil
	}
	e := in.Email
	return &e
}

// SetupInput bootstraps the first clinic and its administrator.
type SetupInput struct {
	Clinic        ClinicInput
	AdminName     string
	AdminPhone    string
	AdminEmail    string
	AdminPassword string
}

type Dashboard struct {
	PetsCount         int
	AppointmentsToday int
	PendingInvoices   int
	LowStockItems     int
}
