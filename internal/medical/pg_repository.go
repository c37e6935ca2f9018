package medical

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

const recordColumns = `id, clinic_id, pet_id, vet_id, visit_date, symptoms, diagnosis, prescription,
	follow_up_date, created_at, updated_at, deleted_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record

	err := row.Scan(
		&r.ID,
		&r.ClinicID,
		&r.PetID,
		&r.VetID,
		&r.VisitDate,
		&r.Symptoms,
		&r.Diagnosis,
		&r.Prescription,
		&r.FollowUpDate,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &r, nil
}

func writeError(op string, err error) error {
	if refErr := db.ReferenceError(err, "medical_records"); refErr != nil {
		return refErr
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *PgRepository) GetRecordByID(ctx context.Context, clinicID, id uuid.UUID) (*Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM medical_records
		WHERE id = $1 AND clinic_id = $2 AND `+record.ActiveOnly, id, clinicID)
	return scanRecord(row)
}

func (r *PgRepository) ListRecords(ctx context.Context, clinicID uuid.UUID, petID *uuid.UUID) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM medical_records
		WHERE clinic_id = $1
		  AND ($2::uuid IS NULL OR pet_id = $2)
		  AND `+record.ActiveOnly+`
		ORDER BY visit_date DESC, created_at DESC
	`, clinicID, petID)
	if err != nil {
		return nil, fmt.Errorf("list medical records: %w", err)
	}
	return db.Collect(rows, scanRecord)
}

func (r *PgRepository) CreateRecord(ctx context.Context, m *Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO medical_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL)
	`, m.ID, m.ClinicID, m.PetID, m.VetID, m.VisitDate, m.Symptoms, m.Diagnosis,
		m.Prescription, m.FollowUpDate, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return writeError("insert medical record", err)
	}
	return nil
}

func (r *PgRepository) UpdateRecord(ctx context.Context, m *Record) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE medical_records
		SET pet_id = $3,
		    vet_id = $4,
		    visit_date = $5,
		    symptoms = $6,
		    diagnosis = $7,
		    prescription = $8,
		    follow_up_date = $9,
		    updated_at = $10
		WHERE id = $1
		  AND clinic_id = $2
		  AND `+record.ActiveOnly,
		m.ID, m.ClinicID, m.PetID, m.VetID, m.VisitDate, m.Symptoms, m.Diagnosis,
		m.Prescription, m.FollowUpDate, m.UpdatedAt)
	if err != nil {
		return writeError("update medical record", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *PgRepository) SoftDeleteRecord(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error) {
	changed, err := db.SoftDelete(ctx, r.pool, "medical_records", "clinic_id", clinicID, id, now)
	if errors.Is(err, db.ErrNotFound) {
		return false, ErrRecordNotFound
	}
	return changed, err
}
