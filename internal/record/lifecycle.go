// Package record carries the lifecycle bookkeeping shared by every mutable
// entity: creation and update timestamps plus soft deletion. Deletion itself
// is written by db.SoftDelete; this package only reads the resulting state.
package record

import "time"

type State int

const (
	Active State = iota
	Deleted
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Deleted:
		return "deleted"
	}
	return "unknown"
}

// ActiveOnly is the SQL predicate every list and lookup query uses to hide
// soft-deleted rows.
const ActiveOnly = "deleted_at IS NULL"

// Lifecycle is embedded in persisted entities.
type Lifecycle struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// New stamps a freshly created entity.
func New(now time.Time) Lifecycle {
	return Lifecycle{CreatedAt: now, UpdatedAt: now}
}

func (l Lifecycle) State() State {
	if l.DeletedAt != nil {
		return Deleted
	}
	return Active
}

// Live reports whether the entity has not been soft-deleted.
func (l Lifecycle) Live() bool { return l.State() == Active }

// Touch bumps UpdatedAt. Updates call it even when nothing else changed.
func (l *Lifecycle) Touch(now time.Time) {
	l.UpdatedAt = now
}
