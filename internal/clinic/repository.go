package clinic

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClinicNotFound     = errors.New("clinic not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicatePhone     = errors.New("a user with this phone number already exists")
	ErrAlreadySetUp       = errors.New("clinic setup has already been completed")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Repository interface {
	IsSetUp(ctx context.Context) (bool, error)
	// CreateClinicWithAdmin inserts both rows in one transaction.
	CreateClinicWithAdmin(ctx context.Context, c *Clinic, admin *User) error

	GetClinicByID(ctx context.Context, id uuid.UUID) (*Clinic, error)
	ListClinics(ctx context.Context) ([]Clinic, error)
	CreateClinic(ctx context.Context, c *Clinic) error
	UpdateClinic(ctx context.Context, c *Clinic) error
	SoftDeleteClinic(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)

	GetUserByID(ctx context.Context, clinicID, id uuid.UUID) (*User, error)
	// GetLiveUser looks a user up by id alone; used to re-check a token's
	// subject on every request.
	GetLiveUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByPhone(ctx context.Context, phone string) (*User, error)
	ListUsers(ctx context.Context, clinicID uuid.UUID, role *Role) ([]User, error)
	CreateUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, u *User) error
	SoftDeleteUser(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error)

	Dashboard(ctx context.Context, clinicID uuid.UUID, today time.Time) (Dashboard, error)
}
