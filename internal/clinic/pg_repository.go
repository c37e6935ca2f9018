package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/vet-clinic/internal/db"
	"github.com/hackgods/vet-clinic/internal/record"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const (
	clinicColumns = `id, name, phone, address, city, state, pincode, created_at, updated_at, deleted_at`
	userColumns   = `id, clinic_id, name, phone, email, role, is_active, password_hash,
		created_at, updated_at, deleted_at`
)

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Phone,
		&c.Address,
		&c.City,
		&c.State,
		&c.Pincode,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClinicNotFound
		}
		return nil, err
	}

	return &c, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User

	err := row.Scan(
		&u.ID,
		&u.ClinicID,
		&u.Name,
		&u.Phone,
		&u.Email,
		&u.Role,
		&u.IsActive,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &u, nil
}

func userWriteError(op string, err error) error {
	if db.IsUniqueViolation(err) {
		return ErrDuplicatePhone
	}
	if refErr := db.ReferenceError(err, "users"); refErr != nil {
		return refErr
	}
	return fmt.Errorf("%s: %w", op, err)
}

func insertClinic(ctx context.Context, q db.Querier, c *Clinic) error {
	_, err := q.Exec(ctx, `
		INSERT INTO clinics (`+clinicColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)
	`, c.ID, c.Name, c.Phone, c.Address, c.City, c.State, c.Pincode, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert clinic: %w", err)
	}
	return nil
}

func insertUser(ctx context.Context, q db.Querier, u *User) error {
	_, err := q.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL)
	`, u.ID, u.ClinicID, u.Name, u.Phone, u.Email, u.Role, u.IsActive, u.PasswordHash,
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return userWriteError("insert user", err)
	}
	return nil
}

// Setup

func (r *PgRepository) IsSetUp(ctx context.Context) (bool, error) {
	var done bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM clinics WHERE `+record.ActiveOnly+`)
		   AND EXISTS (SELECT 1 FROM users WHERE `+record.ActiveOnly+`)
	`).Scan(&done)
	if err != nil {
		return false, fmt.Errorf("check setup: %w", err)
	}
	return done, nil
}

func (r *PgRepository) CreateClinicWithAdmin(ctx context.Context, c *Clinic, admin *User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin setup: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := insertClinic(ctx, tx, c); err != nil {
		return err
	}
	if err := insertUser(ctx, tx, admin); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit setup: %w", err)
	}
	return nil
}

// Clinics

func (r *PgRepository) GetClinicByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+clinicColumns+`
		FROM clinics
		WHERE id = $1 AND `+record.ActiveOnly, id)
	return scanClinic(row)
}

func (r *PgRepository) ListClinics(ctx context.Context) ([]Clinic, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+clinicColumns+`
		FROM clinics
		WHERE `+record.ActiveOnly+`
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list clinics: %w", err)
	}
	defer rows.Close()

	var out []Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *PgRepository) CreateClinic(ctx context.Context, c *Clinic) error {
	return insertClinic(ctx, r.pool, c)
}

func (r *PgRepository) UpdateClinic(ctx context.Context, c *Clinic) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE clinics
		SET name = $2, phone = $3, address = $4, city = $5, state = $6, pincode = $7, updated_at = $8
		WHERE id = $1 AND `+record.ActiveOnly,
		c.ID, c.Name, c.Phone, c.Address, c.City, c.State, c.Pincode, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update clinic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClinicNotFound
	}
	return nil
}

func (r *PgRepository) SoftDeleteClinic(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	changed, err := db.SoftDelete(ctx, r.pool, "clinics", "id", id, id, now)
	if errors.Is(err, db.ErrNotFound) {
		return false, ErrClinicNotFound
	}
	return changed, err
}

// Users

func (r *PgRepository) GetUserByID(ctx context.Context, clinicID, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND clinic_id = $2 AND `+record.ActiveOnly, id, clinicID)
	return scanUser(row)
}

func (r *PgRepository) GetLiveUser(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND `+record.ActiveOnly, id)
	return scanUser(row)
}

func (r *PgRepository) GetUserByPhone(ctx context.Context, phone string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE phone = $1 AND `+record.ActiveOnly, phone)
	return scanUser(row)
}

func (r *PgRepository) ListUsers(ctx context.Context, clinicID uuid.UUID, role *Role) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE clinic_id = $1
		  AND ($2::text IS NULL OR role = $2)
		  AND `+record.ActiveOnly+`
		ORDER BY name`, clinicID, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *PgRepository) CreateUser(ctx context.Context, u *User) error {
	return insertUser(ctx, r.pool, u)
}

func (r *PgRepository) UpdateUser(ctx context.Context, u *User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET name = $3, phone = $4, email = $5, role = $6, is_active = $7, password_hash = $8, updated_at = $9
		WHERE id = $1 AND clinic_id = $2 AND `+record.ActiveOnly,
		u.ID, u.ClinicID, u.Name, u.Phone, u.Email, u.Role, u.IsActive, u.PasswordHash, u.UpdatedAt)
	if err != nil {
		return userWriteError("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgRepository) SoftDeleteUser(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error) {
	changed, err := db.SoftDelete(ctx, r.pool, "users", "clinic_id", clinicID, id, now)
	if errors.Is(err, db.ErrNotFound) {
		return false, ErrUserNotFound
	}
	return changed, err
}

// Dashboard

func (r *PgRepository) Dashboard(ctx context.Context, clinicID uuid.UUID, today time.Time) (Dashboard, error) {
	var d Dashboard
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM pets
			  WHERE clinic_id = $1 AND `+record.ActiveOnly+`),
			(SELECT count(*) FROM appointments
			  WHERE clinic_id = $1 AND appointment_date = $2 AND `+record.ActiveOnly+`),
			(SELECT count(*) FROM invoices
			  WHERE clinic_id = $1 AND status = 'issued' AND `+record.ActiveOnly+`),
			(SELECT count(*) FROM inventory_items
			  WHERE clinic_id = $1 AND quantity <= low_stock_threshold AND `+record.ActiveOnly+`)
	`, clinicID, today).Scan(&d.PetsCount, &d.AppointmentsToday, &d.PendingInvoices, &d.LowStockItems)
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard counts: %w", err)
	}
	return d, nil
}
