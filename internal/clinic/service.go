package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/auth"
	"github.com/hackgods/vet-clinic/internal/clock"
	"github.com/hackgods/vet-clinic/internal/record"
	"github.com/hackgods/vet-clinic/internal/validation"
)

type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Setup creates the first clinic and its admin. It is refused once a live
// clinic and a live user both exist.
func (s *Service) Setup(ctx context.Context, in SetupInput) (*Clinic, *User, error) {
	v := validation.Violations{}
	in.Clinic.normalize("clinic_", v)
	admin := UserInput{
		Name:     in.AdminName,
		Phone:    in.AdminPhone,
		Email:    in.AdminEmail,
		Role:     RoleAdmin,
		IsActive: true,
		Password: in.AdminPassword,
	}
	admin.normalize("admin_", true, v)
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	done, err := s.repo.IsSetUp(ctx)
	if err != nil {
		return nil, nil, err
	}
	if done {
		return nil, nil, ErrAlreadySetUp
	}

	hash, err := hashPassword("admin_password", admin.Password)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	c := &Clinic{ID: uuid.New(), Lifecycle: record.New(now)}
	in.Clinic.apply(c)
	u := &User{
		ID:           uuid.New(),
		ClinicID:     c.ID,
		Name:         admin.Name,
		Phone:        admin.Phone,
		Email:        admin.email(),
		Role:         RoleAdmin,
		IsActive:     true,
		PasswordHash: hash,
		Lifecycle:    record.New(now),
	}

	if err := s.repo.CreateClinicWithAdmin(ctx, c, u); err != nil {
		return nil, nil, err
	}

	s.logger.Info("clinic setup completed", zap.Stringer("clinic_id", c.ID), zap.Stringer("admin_id", u.ID))
	return c, u, nil
}

// Login checks a phone and password pair.
func (s *Service) Login(ctx context.Context, phone, password string) (*User, error) {
	u, err := s.repo.GetUserByPhone(ctx, strings.TrimSpace(phone))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive || !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Authenticate confirms that a token's subject is still a live, active user
// of the clinic the token names.
func (s *Service) Authenticate(ctx context.Context, p auth.Principal) (auth.Principal, error) {
	u, err := s.repo.GetLiveUser(ctx, p.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	if err != nil {
		return auth.Principal{}, err
	}
	if !u.IsActive || u.ClinicID != p.ClinicID {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	return u.Principal(), nil
}

func (s *Service) Dashboard(ctx context.Context, clinicID uuid.UUID) (Dashboard, error) {
	return s.repo.Dashboard(ctx, clinicID, clock.DateOf(s.now()))
}

// Clinics

func (s *Service) GetClinic(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return s.repo.GetClinicByID(ctx, id)
}

func (s *Service) ListClinics(ctx context.Context) ([]Clinic, error) {
	return s.repo.ListClinics(ctx)
}

func (s *Service) CreateClinic(ctx context.Context, in ClinicInput) (*Clinic, error) {
	v := validation.Violations{}
	in.normalize("", v)
	if err := v.Err(); err != nil {
		return nil, err
	}

	c := &Clinic{ID: uuid.New(), Lifecycle: record.New(s.now())}
	in.apply(c)
	if err := s.repo.CreateClinic(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) UpdateClinic(ctx context.Context, id uuid.UUID, in ClinicInput) (*Clinic, error) {
	v := validation.Violations{}
	in.normalize("", v)
	if err := v.Err(); err != nil {
		return nil, err
	}

	c, err := s.repo.GetClinicByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(c)
	c.Touch(s.now())
	if err := s.repo.UpdateClinic(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) DeleteClinic(ctx context.Context, id uuid.UUID) error {
	_, err := s.repo.SoftDeleteClinic(ctx, id, s.now())
	return err
}

// Users

func (s *Service) GetUser(ctx context.Context, clinicID, id uuid.UUID) (*User, error) {
	return s.repo.GetUserByID(ctx, clinicID, id)
}

func (s *Service) ListUsers(ctx context.Context, clinicID uuid.UUID) ([]User, error) {
	return s.repo.ListUsers(ctx, clinicID, nil)
}

func (s *Service) ListVets(ctx context.Context, clinicID uuid.UUID) ([]User, error) {
	role := RoleVet
	return s.repo.ListUsers(ctx, clinicID, &role)
}

func (s *Service) CreateUser(ctx context.Context, clinicID uuid.UUID, in UserInput) (*User, error) {
	v := validation.Violations{}
	in.normalize("", true, v)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.ensurePhoneFree(ctx, in.Phone, uuid.Nil); err != nil {
		return nil, err
	}

	hash, err := hashPassword("password", in.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.New(),
		ClinicID:     clinicID,
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.email(),
		Role:         in.Role,
		IsActive:     in.IsActive,
		PasswordHash: hash,
		Lifecycle:    record.New(s.now()),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) UpdateUser(ctx context.Context, clinicID, id uuid.UUID, in UserInput) (*User, error) {
	v := validation.Violations{}
	in.normalize("", false, v)
	if err := v.Err(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetUserByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePhoneFree(ctx, in.Phone, u.ID); err != nil {
		return nil, err
	}

	if in.Password != "" {
		hash, err := hashPassword("password", in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	u.Name = in.Name
	u.Phone = in.Phone
	u.Email = in.email()
	u.Role = in.Role
	u.IsActive = in.IsActive
	u.Touch(s.now())

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, clinicID, id uuid.UUID) error {
	_, err := s.repo.SoftDeleteUser(ctx, clinicID, id, s.now())
	return err
}

// ensurePhoneFree fails if another live user already has phone. The unique
// index still catches races between the check and the write.
func (s *Service) ensurePhoneFree(ctx context.Context, phone string, self uuid.UUID) error {
	existing, err := s.repo.GetUserByPhone(ctx, phone)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check phone: %w", err)
	case existing.ID != self:
		return ErrDuplicatePhone
	}
	return nil
}

func hashPassword(field, password string) (string, error) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", validation.New(field, fmt.Sprintf("must_be_at_most_%d_bytes", auth.MaxPasswordBytes))
	}
	return hash, err
}
