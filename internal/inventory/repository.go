package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrItemNotFound = errors.New("inventory item not found")

type Repository interface {
	GetItemByID(ctx context.Context, clinicID, id uuid.UUID) (*Item, error)
	ListItems(ctx context.Context, clinicID uuid.UUID) ([]Item, error)
	ListLowStock(ctx context.Context, clinicID uuid.UUID) ([]Item, error)
	CreateItem(ctx context.Context, i *Item) error
	UpdateItem(ctx context.Context, i *Item) error
	SoftDeleteItem(ctx context.Context, clinicID, id uuid.UUID, now time.Time) (bool, error)
}
