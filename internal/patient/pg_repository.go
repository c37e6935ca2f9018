package patient

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

const (
	parentColumns = `id, clinic_id, name, phone, email, address, whatsapp_number,
		emergency_contact_name, emergency_contact_phone, created_at, updated_at, deleted_at`
	petColumns = `p.id, p.clinic_id, p.pet_parent_id, p.name, p.species, p.breed, p.gender,
		p.date_of_birth, p.registration_number, p.sterilization_status, p.alerts,
		p.created_at, p.updated_at, p.deleted_at`
)

// Helpers

func scanParent(row pgx.Row) (*PetParent, error) {
	var p PetParent

	err := row.Scan(
		&p.ID,
		&p.ClinicID,
		&p.Name,
		&p.Phone,
		&p.Email,
		&p.Address,
		&p.WhatsAppNumber,
		&p.EmergencyContactName,
		&p.EmergencyContactPhone,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPetParentNotFound
		}
		return nil, err
	}

	return &p, nil
}

func petTargets(p *Pet) []any {
	return []any{
		&p.ID,
		&p.ClinicID,
		&p.PetParentID,
		&p.Name,
		&p.Species,
		&p.Breed,
		&p.Gender,
		&p.DateOfBirth,
		&p.RegistrationNumber,
		&p.SterilizationStatus,
		&p.Alerts,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	}
}

func scanPet(row pgx.Row) (*Pet, error) {
	var p Pet
	if err := row.Scan(petTargets(&p)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPetNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanListItem(row pgx.Row) (*ListItem, error) {
	var item ListItem
	if err := row.Scan(append(petTargets(&item.Pet), &item.ParentName)...); err != nil {
		return nil, err
	}
	return &item, nil
}

func scanSearchResult(row pgx.Row) (*SearchResult, error) {
	var s SearchResult
	if err := row.Scan(&s.ID, &s.Name, &s.Breed, &s.Owner); err != nil {
		return nil, err
	}
	return &s, nil
}

func writeError(op, table string, err error) error {
	if refErr := db.ReferenceError(err, table); refErr != nil {
		return refErr
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Pet parents

func (r *PgRepository) GetParentByID(ctx context.Context, clinicID, id uuid.UUID) (*PetParent, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+parentColumns+`
		FROM pet_parents
		WHERE id = $1 AND clinic_id = $2 AND `+record.ActiveOnly, id, clinicID)
	return scanParent(row)
}

func (r *PgRepository) ListParents(ctx context.Context, clinicID uuid.UUID) ([]PetParent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+parentColumns+`
		FROM pet_parents
		WHERE clinic_id = $1 AND `+record.ActiveOnly+`
		ORDER BY name, id
	`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list pet parents: %w", err)
	}
	return db.Collect(rows, scanParent)
}

func (r *PgRepository) CreateParent(ctx context.Context, p *PetParent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pet_parents (`+parentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL)
	`, p.ID, p.ClinicID, p.Name, p.Phone, p.Email, p.Address, p.WhatsAppNumber,
		p.EmergencyContactName, p.EmergencyContactPhone, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return writeError("insert pet parent", "pet_parents", err)
	}
	return nil
}

func (r *PgRepository) UpdateParent(ctx context.Context, p *PetParent) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE pet_parents
		SET name = $3,
		    phone = $4,
		    email = $5,
		    address = $6,
		    whatsapp_number = $7,
		    emergency_contact_name = $8,
		    emergency_contact_phone = $9,
		    updated_at = $10
		WHERE id = $1
		  AND clinic_id = $2
		  AND `+record.ActiveOnly,
		p.ID, p.ClinicID, p.Name, p.Phone, p.Email, p.Address, p.WhatsAppNumber,
		p.EmergencyContactName, p.EmergencyContactPhone, p.UpdatedAt)
	if err != nil {
		return writeError("update pet parent", "pet_parents", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPetParentNotFound
	}
	return nil
}

func (r *PgRepository) SoftDeleteParent(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error) {
	changed, err := db.SoftDelete(ctx, r.pool, "pet_parents", "clinic_id", clinicID, id, now)
	if errors.Is(err, db.ErrNotFound) {
		return false, ErrPetParentNotFound
	}
	return changed, err
}

// Pets

func (r *PgRepository) GetPetByID(ctx context.Context, clinicID, id uuid.UUID) (*Pet, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+petColumns+`
		FROM pets p
		WHERE p.id = $1 AND p.clinic_id = $2 AND p.`+record.ActiveOnly, id, clinicID)
	return scanPet(row)
}

func (r *PgRepository) ListPets(ctx context.Context, clinicID uuid.UUID, q ListQuery) ([]ListItem, error) {
	conds := []string{"p.clinic_id = $1", "p." + record.ActiveOnly}
	args := []any{clinicID}

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "$?", fmt.Sprintf("$%d", len(args))))
	}
	if term := strings.TrimSpace(q.Q); term != "" {
		add("(p.name ILIKE $? OR p.registration_number ILIKE $? OR pp.name ILIKE $?)", db.ContainsPattern(term))
	}
	if species := strings.TrimSpace(q.Species); species != "" {
		add("p.species = $?", species)
	}
	if q.Gender != "" {
		add("p.gender = $?", q.Gender)
	}

	order := "p.created_at DESC, p.id"
	if q.SortByName {
		order = "p.name, p.id"
	}

	args = append(args, PageSize, q.offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s, pp.name
		FROM pets p
		JOIN pet_parents pp ON pp.id = p.pet_parent_id
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, petColumns, strings.Join(conds, " AND "), order, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("list pets: %w", err)
	}
	return db.Collect(rows, scanListItem)
}

func (r *PgRepository) SearchPets(ctx context.Context, clinicID uuid.UUID, q string, limit int) ([]SearchResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, p.breed, pp.name
		FROM pets p
		JOIN pet_parents pp ON pp.id = p.pet_parent_id
		WHERE p.clinic_id = $1
		  AND p.`+record.ActiveOnly+`
		  AND (p.name ILIKE $2 OR p.breed ILIKE $2 OR p.registration_number ILIKE $2 OR pp.name ILIKE $2)
		ORDER BY p.name, p.id
		LIMIT $3
	`, clinicID, db.ContainsPattern(q), limit)
	if err != nil {
		return nil, fmt.Errorf("search pets: %w", err)
	}
	return db.Collect(rows, scanSearchResult)
}

func (r *PgRepository) CreatePet(ctx context.Context, p *Pet) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pets (id, clinic_id, pet_parent_id, name, species, breed, gender, date_of_birth,
			registration_number, sterilization_status, alerts, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULL)
	`, p.ID, p.ClinicID, p.PetParentID, p.Name, p.Species, p.Breed, p.Gender, p.DateOfBirth,
		p.RegistrationNumber, p.SterilizationStatus, p.Alerts, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return writeError("insert pet", "pets", err)
	}
	return nil
}

func (r *PgRepository) UpdatePet(ctx context.Context, p *Pet) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE pets
		SET pet_parent_id = $3,
		    name = $4,
		    species = $5,
		    breed = $6,
		    gender = $7,
		    date_of_birth = $8,
		    registration_number = $9,
		    sterilization_status = $10,
		    alerts = $11,
		    updated_at = $12
		WHERE id = $1
		  AND clinic_id = $2
		  AND `+record.ActiveOnly,
		p.ID, p.ClinicID, p.PetParentID, p.Name, p.Species, p.Breed, p.Gender, p.DateOfBirth,
		p.RegistrationNumber, p.SterilizationStatus, p.Alerts, p.UpdatedAt)
	if err != nil {
		return writeError("update pet", "pets", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPetNotFound
	}
	return nil
}

func (r *PgRepository) SoftDeletePet(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error) {
	changed, err := db.SoftDelete(ctx, r.pool, "pets", "clinic_id", clinicID, id, now)
	if errors.Is(err, db.ErrNotFound) {
		return false, ErrPetNotFound
	}
	return changed, err
}
