// Package lock serializes booking decisions for one vet on one day so two
// concurrent requests cannot both observe a free schedule and both commit.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrLockNotAcquired = errors.New("vet schedule lock not acquired")

// Locker guards the critical section of a booking for one vet and day.
type Locker interface {
	WithVetDayLock(ctx context.Context, clinicID, vetID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error
}

// VetDayKey is the lock key shared by every backend.
func VetDayKey(clinicID, vetID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("lock:vet:%s:%s:%s", clinicID, vetID, day.Format("2006-01-02"))
}
