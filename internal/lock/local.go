package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalLocker is an in-process keyed mutex. It only serializes requests
// handled by the same process, so it suits single-instance deployments and tests.
// It waits for the holder until ctx is done.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*localSlot
}

type localSlot struct {
	sem  chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*localSlot)}
}

func (l *LocalLocker) WithVetDayLock(ctx context.Context, clinicID, vetID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	key := VetDayKey(clinicID, vetID, day)
	slot := l.acquireSlot(key)
	defer l.releaseSlot(key, slot)

	select {
	case slot.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-slot.sem }()

	return fn(ctx)
}

func (l *LocalLocker) acquireSlot(key string) *localSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[key]
	if !ok {
		slot = &localSlot{sem: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *LocalLocker) releaseSlot(key string, slot *localSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}
