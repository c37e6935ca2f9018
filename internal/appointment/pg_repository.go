package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

const appointmentColumns = `id, clinic_id, pet_id, vet_id, appointment_date, start_time, end_time,
	status, notes, procedure_type, created_at, updated_at, deleted_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.ClinicID,
		&a.PetID,
		&a.VetID,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.Notes,
		&a.ProcedureType,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func (r *PgRepository) queryAppointments(ctx context.Context, sql string, args ...any) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func writeError(op string, err error) error {
	if refErr := db.ReferenceError(err, "appointments"); refErr != nil {
		return refErr
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Interface methods

func (r *PgRepository) ListVetDayCandidates(ctx context.Context, clinicID, vetID uuid.UUID, date time.Time, exclude *uuid.UUID) ([]Appointment, error) {
	return r.queryAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE clinic_id = $1
		  AND vet_id = $2
		  AND appointment_date = $3
		  AND status NOT IN ('cancelled', 'no_show')
		  AND ($4::uuid IS NULL OR id <> $4)
		  AND `+record.ActiveOnly+`
		ORDER BY created_at, id
	`, clinicID, vetID, date, exclude)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, clinicID, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND clinic_id = $2 AND `+record.ActiveOnly, id, clinicID)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, clinicID uuid.UUID, f Filter) ([]Appointment, error) {
	conds := []string{"clinic_id = $1", record.ActiveOnly}
	args := []any{clinicID}

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.PetID != nil {
		add("pet_id = $%d", *f.PetID)
	}
	if f.VetID != nil {
		add("vet_id = $%d", *f.VetID)
	}
	if f.Date != nil {
		add("appointment_date = $%d", *f.Date)
	}

	return r.queryAppointments(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY appointment_date, start_time`, args...)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULL)
	`, a.ID, a.ClinicID, a.PetID, a.VetID, a.Date, a.StartTime, a.EndTime,
		a.Status, a.Notes, a.ProcedureType, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return writeError("insert appointment", err)
	}
	return nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET pet_id = $3,
		    vet_id = $4,
		    appointment_date = $5,
		    start_time = $6,
		    end_time = $7,
		    status = $8,
		    notes = $9,
		    procedure_type = $10,
		    updated_at = $11
		WHERE id = $1
		  AND clinic_id = $2
		  AND `+record.ActiveOnly,
		a.ID, a.ClinicID, a.PetID, a.VetID, a.Date, a.StartTime, a.EndTime,
		a.Status, a.Notes, a.ProcedureType, a.UpdatedAt)
	if err != nil {
		return writeError("update appointment", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) SoftDeleteAppointment(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error) {
	changed, err := db.SoftDelete(ctx, r.pool, "appointments", "clinic_id", clinicID, id, now)
	if errors.Is(err, db.ErrNotFound) {
		return false, ErrAppointmentNotFound
	}
	return changed, err
}

func (r *PgRepository) GetVetName(ctx context.Context, vetID uuid.UUID) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM users WHERE id = $1`, vetID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrVetNotFound
	}
	return name, err
}

func (r *PgRepository) GetPetName(ctx context.Context, petID uuid.UUID) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM pets WHERE id = $1`, petID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrPetNotFound
	}
	return name, err
}

func (r *PgRepository) LastCompletedForPet(ctx context.Context, clinicID, petID uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE clinic_id = $1
		  AND pet_id = $2
		  AND status = 'completed'
		  AND `+record.ActiveOnly+`
		ORDER BY appointment_date DESC, start_time DESC
		LIMIT 1
	`, clinicID, petID)
	return scanAppointment(row)
}

func (r *PgRepository) NextScheduledForPet(ctx context.Context, clinicID, petID uuid.UUID, from time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE clinic_id = $1
		  AND pet_id = $2
		  AND status = 'scheduled'
		  AND appointment_date >= $3
		  AND `+record.ActiveOnly+`
		ORDER BY appointment_date, start_time
		LIMIT 1
	`, clinicID, petID, from)
	return scanAppointment(row)
}
