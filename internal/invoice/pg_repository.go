package invoice

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
	invoiceColumns = `id, clinic_id, pet_id, invoice_number, total_amount, gst_amount, status,
		created_at, updated_at, deleted_at`
	paymentColumns = `id, clinic_id, invoice_id, payment_method, amount, status, reference_id,
		created_at, updated_at, deleted_at`
)

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice

	err := row.Scan(
		&inv.ID,
		&inv.ClinicID,
		&inv.PetID,
		&inv.InvoiceNumber,
		&inv.TotalAmount,
		&inv.GSTAmount,
		&inv.Status,
		&inv.CreatedAt,
		&inv.UpdatedAt,
		&inv.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}

	return &inv, nil
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment

	err := row.Scan(
		&p.ID,
		&p.ClinicID,
		&p.InvoiceID,
		&p.Method,
		&p.Amount,
		&p.Status,
		&p.ReferenceID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	return &p, nil
}

func writeError(op, table string, err error) error {
	if refErr := db.ReferenceError(err, table); refErr != nil {
		return refErr
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Invoices

func (r *PgRepository) GetInvoiceByID(ctx context.Context, clinicID, id uuid.UUID) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id = $1 AND clinic_id = $2 AND `+record.ActiveOnly, id, clinicID)
	return scanInvoice(row)
}

func (r *PgRepository) ListInvoices(ctx context.Context, clinicID uuid.UUID, petID *uuid.UUID) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE clinic_id = $1
		  AND ($2::uuid IS NULL OR pet_id = $2)
		  AND `+record.ActiveOnly+`
		ORDER BY created_at DESC
	`, clinicID, petID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return db.Collect(rows, scanInvoice)
}

func (r *PgRepository) CreateInvoice(ctx context.Context, inv *Invoice) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)
	`, inv.ID, inv.ClinicID, inv.PetID, inv.InvoiceNumber, inv.TotalAmount, inv.GSTAmount,
		inv.Status, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return writeError("insert invoice", "invoices", err)
	}
	return nil
}

func (r *PgRepository) UpdateInvoice(ctx context.Context, inv *Invoice, expected Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices
		SET pet_id = $3,
		    invoice_number = $4,
		    total_amount = $5,
		    gst_amount = $6,
		    status = $7,
		    updated_at = $8
		WHERE id = $1
		  AND clinic_id = $2
		  AND status = $9
		  AND `+record.ActiveOnly,
		inv.ID, inv.ClinicID, inv.PetID, inv.InvoiceNumber, inv.TotalAmount, inv.GSTAmount,
		inv.Status, inv.UpdatedAt, expected)
	if err != nil {
		return writeError("update invoice", "invoices", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceChanged
	}
	return nil
}

func (r *PgRepository) SoftDeleteInvoice(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error) {
	changed, err := db.SoftDelete(ctx, r.pool, "invoices", "clinic_id", clinicID, id, now)
	if errors.Is(err, db.ErrNotFound) {
		return false, ErrInvoiceNotFound
	}
	return changed, err
}

// Payments

func (r *PgRepository) GetPaymentByID(ctx context.Context, clinicID, id uuid.UUID) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE id = $1 AND clinic_id = $2 AND `+record.ActiveOnly, id, clinicID)
	return scanPayment(row)
}

func (r *PgRepository) ListPayments(ctx context.Context, clinicID uuid.UUID, invoiceID *uuid.UUID) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE clinic_id = $1
		  AND ($2::uuid IS NULL OR invoice_id = $2)
		  AND `+record.ActiveOnly+`
		ORDER BY created_at DESC
	`, clinicID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return db.Collect(rows, scanPayment)
}

func (r *PgRepository) CreatePayment(ctx context.Context, p *Payment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)
	`, p.ID, p.ClinicID, p.InvoiceID, p.Method, p.Amount, p.Status, p.ReferenceID,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return writeError("insert payment", "payments", err)
	}
	return nil
}

func (r *PgRepository) UpdatePayment(ctx context.Context, p *Payment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments
		SET invoice_id = $3,
		    payment_method = $4,
		    amount = $5,
		    status = $6,
		    reference_id = $7,
		    updated_at = $8
		WHERE id = $1
		  AND clinic_id = $2
		  AND `+record.ActiveOnly,
		p.ID, p.ClinicID, p.InvoiceID, p.Method, p.Amount, p.Status, p.ReferenceID, p.UpdatedAt)
	if err != nil {
		return writeError("update payment", "payments", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PgRepository) SoftDeletePayment(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error) {
	changed, err := db.SoftDelete(ctx, r.pool, "payments", "clinic_id", clinicID, id, now)
	if errors.Is(err, db.ErrNotFound) {
		return false, ErrPaymentNotFound
	}
	return changed, err
}
