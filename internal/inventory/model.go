package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-clinic/internal/record"
	"github.com/hackgods/vet-clinic/internal/validation"
)

type Item struct {
	ID                uuid.UUID
	ClinicID          uuid.UUID
	Name              string
	Quantity          int
	ExpiryDate        *time.Time
	LowStockThreshold int
	record.Lifecycle
}

// LowStock reports whether the item is at or below its reorder threshold.
func (i Item) LowStock() bool {
	return i.Quantity <= i.LowStockThreshold
}

type Input struct {
	Name              string
	Quantity          int
	ExpiryDate        *time.Time
	LowStockThreshold int
}

func (in *Input) normalize() error {
	v := validation.Violations{}
	in.Name = strings.TrimSpace(in.Name)
	validation.Required("name", in.Name, v)
	validation.NonNegative("quantity", in.Quantity, v)
	validation.NonNegative("low_stock_threshold", in.LowStockThreshold, v)
	return v.Err()
}

func (in Input) apply(i *Item) {
	i.Name = in.Name
	i.Quantity = in.Quantity
	i.ExpiryDate = in.ExpiryDate
	i.LowStockThreshold = in.LowStockThreshold
}
