package invoice

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/vet-clinic/internal/record"
	"github.com/hackgods/vet-clinic/internal/validation"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusIssued    Status = "issued"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusDraft, StatusIssued, StatusPaid, StatusCancelled:
		return st, nil
	}
	return "", validation.New("status", "invalid")
}

// IsValidTransition reports whether an invoice in current may move to
// requested. Staying in the same state is always allowed.
func IsValidTransition(current, requested Status) bool {
	if current == requested {
		return true
	}
	switch current {
	case StatusDraft:
		return requested == StatusIssued || requested == StatusCancelled
	case StatusIssued:
		return requested == StatusPaid || requested == StatusCancelled
	case StatusPaid, StatusCancelled:
		return false
	}
	return false
}

type Invoice struct {
	ID            uuid.UUID
	ClinicID      uuid.UUID
	PetID         uuid.UUID
	InvoiceNumber string
	TotalAmount   decimal.Decimal
	GSTAmount     decimal.Decimal
	Status        Status
	record.Lifecycle
}

// Input carries the writable fields of an invoice. Updates replace every
// field.
type Input struct {
	PetID         uuid.UUID
	InvoiceNumber string
	TotalAmount   decimal.Decimal
	GSTAmount     decimal.Decimal
	Status        Status
}

// numeric(10, 2)
var maxAmount = decimal.New(1, 8)

// Money rounds to cents and checks the amount fits the column.
func Money(field string, d decimal.Decimal, v validation.Violations) decimal.Decimal {
	d = d.Round(2)
	if d.IsNegative() {
		v.Add(field, "must_not_be_negative")
	} else if d.GreaterThanOrEqual(maxAmount) {
		v.Add(field, "too_large")
	}
	return d
}

func (in *Input) normalize() error {
	v := validation.Violations{}
	if in.PetID == uuid.Nil {
		v.Add("pet_id", "required")
	}
	in.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	validation.Required("invoice_number", in.InvoiceNumber, v)
	in.TotalAmount = Money("total_amount", in.TotalAmount, v)
	in.GSTAmount = Money("gst_amount", in.GSTAmount, v)
	if in.Status == "" {
		in.Status = StatusDraft
	} else if _, err := ParseStatus(string(in.Status)); err != nil {
		v.Add("status", "invalid")
	}
	return v.Err()
}

type PaymentMethod string

const (
	MethodUPI  PaymentMethod = "upi"
	MethodCash PaymentMethod = "cash"
	MethodCard PaymentMethod = "card"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case MethodUPI, MethodCash, MethodCard:
		return m, nil
	}
	return "", validation.New("payment_method", "invalid")
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(s); st {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return st, nil
	}
	return "", validation.New("status", "invalid")
}

type Payment struct {
	ID          uuid.UUID
	ClinicID    uuid.UUID
	InvoiceID   uuid.UUID
	Method      PaymentMethod
	Amount      decimal.Decimal
	Status      PaymentStatus
	ReferenceID string
	record.Lifecycle
}

type PaymentInput struct {
	InvoiceID   uuid.UUID
	Method      PaymentMethod
	Amount      decimal.Decimal
	Status      PaymentStatus
	ReferenceID string
}

func (in *PaymentInput) normalize() error {
	v := validation.Violations{}
	if in.InvoiceID == uuid.Nil {
		v.Add("invoice_id", "required")
	}
	if _, err := ParsePaymentMethod(string(in.Method)); err != nil {
		v.Add("payment_method", "invalid")
	}
	in.Amount = Money("amount", in.Amount, v)
	if _, err := ParsePaymentStatus(string(in.Status)); err != nil {
		v.Add("status", "invalid")
	}
	in.ReferenceID = strings.TrimSpace(in.ReferenceID)
	return v.Err()
}
