package inventory

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

const itemColumns = `id, clinic_id, name, quantity, expiry_date, low_stock_threshold,
	created_at, updated_at, deleted_at`

func scanItem(row pgx.Row) (*Item, error) {
	var i Item

	err := row.Scan(
		&i.ID,
		&i.ClinicID,
		&i.Name,
		&i.Quantity,
		&i.ExpiryDate,
		&i.LowStockThreshold,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	return &i, nil
}

func (r *PgRepository) GetItemByID(ctx context.Context, clinicID, id uuid.UUID) (*Item, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items
		WHERE id = $1 AND clinic_id = $2 AND `+record.ActiveOnly, id, clinicID)
	return scanItem(row)
}

func (r *PgRepository) ListItems(ctx context.Context, clinicID uuid.UUID) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items
		WHERE clinic_id = $1 AND `+record.ActiveOnly+`
		ORDER BY name, id
	`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list inventory items: %w", err)
	}
	return db.Collect(rows, scanItem)
}

func (r *PgRepository) ListLowStock(ctx context.Context, clinicID uuid.UUID) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM inventory_items
		WHERE clinic_id = $1
		  AND quantity <= low_stock_threshold
		  AND `+record.ActiveOnly+`
		ORDER BY quantity, name
	`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list low stock items: %w", err)
	}
	return db.Collect(rows, scanItem)
}

func (r *PgRepository) CreateItem(ctx context.Context, i *Item) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inventory_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL)
	`, i.ID, i.ClinicID, i.Name, i.Quantity, i.ExpiryDate, i.LowStockThreshold, i.CreatedAt, i.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert inventory item: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateItem(ctx context.Context, i *Item) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE inventory_items
		SET name = $3,
		    quantity = $4,
		    expiry_date = $5,
		    low_stock_threshold = $6,
		    updated_at = $7
		WHERE id = $1
		  AND clinic_id = $2
		  AND `+record.ActiveOnly,
		i.ID, i.ClinicID, i.Name, i.Quantity, i.ExpiryDate, i.LowStockThreshold, i.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update inventory item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *PgRepository) SoftDeleteItem(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error) {
	changed, err := db.SoftDelete(ctx, r.pool, "inventory_items", "clinic_id", clinicID, id, now)
	if errors.Is(err, db.ErrNotFound) {
		return false, ErrItemNotFound
	}
	return changed, err
}
