package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/events"
	"github.com/hackgods/vet-clinic/internal/record"
)

const (
	EventInvoiceCreated       = "INVOICE_CREATED"
	EventInvoiceStatusChanged = "INVOICE_STATUS_CHANGED"
)

type Service struct {
	repo   Repository
	events events.Recorder
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, recorder events.Recorder, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		events: recorder,
		logger: logger,
		now:    time.Now,
	}
}

// Create stores a new invoice. Status defaults to draft.
func (s *Service) Create(ctx context.Context, clinicID uuid.UUID, in Input) (*Invoice, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	inv := &Invoice{
		ID:            uuid.New(),
		ClinicID:      clinicID,
		PetID:         in.PetID,
		InvoiceNumber: in.InvoiceNumber,
		TotalAmount:   in.TotalAmount,
		GSTAmount:     in.GSTAmount,
		Status:        in.Status,
		Lifecycle:     record.New(s.now()),
	}
	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	s.events.Record(ctx, EventInvoiceCreated, inv.ID, map[string]any{
		"clinic_id":      clinicID.String(),
		"invoice_number": inv.InvoiceNumber,
		"total_amount":   inv.TotalAmount.StringFixed(2),
		"status":         string(inv.Status),
	})

	return inv, nil
}

// Update replaces an invoice's fields. A status change must be a valid
// transition from the stored status, otherwise nothing is written.
func (s *Service) Update(ctx context.Context, clinicID, id uuid.UUID, in Input) (*Invoice, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	inv, err := s.repo.GetInvoiceByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}

	current := inv.Status
	if !IsValidTransition(current, in.Status) {
		s.logger.Info("rejected invoice status transition",
			zap.Stringer("invoice_id", id),
			zap.String("from", string(current)),
			zap.String("to", string(in.Status)),
		)
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, current, in.Status)
	}

	inv.PetID = in.PetID
	inv.InvoiceNumber = in.InvoiceNumber
	inv.TotalAmount = in.TotalAmount
	inv.GSTAmount = in.GSTAmount
	inv.Status = in.Status
	inv.Touch(s.now())

	if err := s.repo.UpdateInvoice(ctx, inv, current); err != nil {
		return nil, err
	}

	if current != inv.Status {
		s.events.Record(ctx, EventInvoiceStatusChanged, inv.ID, map[string]any{
			"clinic_id": clinicID.String(),
			"from":      string(current),
			"to":        string(inv.Status),
		})
	}

	return inv, nil
}

func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoiceByID(ctx, clinicID, id)
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID, petID *uuid.UUID) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, clinicID, petID)
}

func (s *Service) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	_, err := s.repo.SoftDeleteInvoice(ctx, clinicID, id, s.now())
	return err
}

// Payments

func (s *Service) CreatePayment(ctx context.Context, clinicID uuid.UUID, in PaymentInput) (*Payment, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	p := &Payment{
		ID:          uuid.New(),
		ClinicID:    clinicID,
		InvoiceID:   in.InvoiceID,
		Method:      in.Method,
		Amount:      in.Amount,
		Status:      in.Status,
		ReferenceID: in.ReferenceID,
		Lifecycle:   record.New(s.now()),
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdatePayment(ctx context.Context, clinicID, id uuid.UUID, in PaymentInput) (*Payment, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	p, err := s.repo.GetPaymentByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}

	p.InvoiceID = in.InvoiceID
	p.Method = in.Method
	p.Amount = in.Amount
	p.Status = in.Status
	p.ReferenceID = in.ReferenceID
	p.Touch(s.now())

	if err := s.repo.UpdatePayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPayment(ctx context.Context, clinicID, id uuid.UUID) (*Payment, error) {
	return s.repo.GetPaymentByID(ctx, clinicID, id)
}

func (s *Service) ListPayments(ctx context.Context, clinicID uuid.UUID, invoiceID *uuid.UUID) ([]Payment, error) {
	return s.repo.ListPayments(ctx, clinicID, invoiceID)
}

func (s *Service) DeletePayment(ctx context.Context, clinicID, id uuid.UUID) error {
	_, err := s.repo.SoftDeletePayment(ctx, clinicID, id, s.now())
	return err
}
