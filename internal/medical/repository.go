package medical

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrRecordNotFound = errors.New("medical record not found")

type Repository interface {
	GetRecordByID(ctx context.Context, clinicID, id uuid.UUID) (*Record, error)
	ListRecords(ctx context.Context, clinicID uuid.UUID, petID *uuid.UUID) ([]Record, error)
	CreateRecord(ctx context.Context, r *Record) error
	UpdateRecord(ctx context.Context, r *Record) error
	SoftDeleteRecord(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error)
}
