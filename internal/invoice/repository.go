package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvoiceNotFound         = errors.New("invoice not found")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrInvalidStatusTransition = errors.New("invalid invoice status transition")
	ErrInvoiceChanged          = errors.New("invoice status changed concurrently")
)

type Repository interface {
	GetInvoiceByID(ctx context.Context, clinicID, id uuid.UUID) (*Invoice, error)
	ListInvoices(ctx context.Context, clinicID uuid.UUID, petID *uuid.UUID) ([]Invoice, error)
	CreateInvoice(ctx context.Context, inv *Invoice) error
	// UpdateInvoice persists inv only if the stored status still equals
	// expected. It returns ErrInvoiceChanged otherwise.
	UpdateInvoice(ctx context.Context, inv *Invoice, expected Status) error
	SoftDeleteInvoice(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error)

	GetPaymentByID(ctx context.Context, clinicID, id uuid.UUID) (*Payment, error)
	ListPayments(ctx context.Context, clinicID uuid.UUID, invoiceID *uuid.UUID) ([]Payment, error)
	CreatePayment(ctx context.Context, p *Payment) error
	UpdatePayment(ctx context.Context, p *Payment) error
	SoftDeletePayment(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error)
}
