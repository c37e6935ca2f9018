package appointment

import (
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/vet-clinic/internal/clock"
)

// Overlaps reports whether [start, end) intersects the appointment's
// interval. Intervals that merely touch do not overlap.
func Overlaps(start, end clock.TimeOfDay, a Appointment) bool {
	return start < a.EndTime && end > a.StartTime
}

// blocking reports whether a candidate can conflict with a booking at all.
func blocking(a Appointment, exclude *uuid.UUID) bool {
	if !a.Live() || !a.Status.OccupiesSchedule() {
		return false
	}
	return exclude == nil || a.ID != *exclude
}

// FilterOverlaps keeps the candidates that block [start, end), preserving
// their order.
func FilterOverlaps(candidates []Appointment, start, end clock.TimeOfDay, exclude *uuid.UUID) []Appointment {
	var out []Appointment
	for _, a := range candidates {
		if blocking(a, exclude) && Overlaps(start, end, a) {
			out = append(out, a)
		}
	}
	return out
}

// Decision is the outcome of the booking protocol for one request.
type Decision int

const (
	DecisionBook Decision = iota
	DecisionRejectOverlap
	DecisionConfirmOverride
	DecisionBookWithOverride
)

const overrideConfirmation = "yes"

// Decide maps the overlap count and the caller's override flags to an
// outcome.
func Decide(overlapping int, allowOverlap bool, confirmOverride string) Decision {
	switch {
	case overlapping == 0:
		return DecisionBook
	case !allowOverlap:
		return DecisionRejectOverlap
	case confirmOverride != overrideConfirmation:
		return DecisionConfirmOverride
	default:
		return DecisionBookWithOverride
	}
}

// OverrideNote appends the override marker for the first conflicting
// appointment to notes.
func OverrideNote(notes string, first Appointment) string {
	marker := "OVERLAP OVERRIDE: existing appt " + first.StartTime.Short() + "-" + first.EndTime.Short()
	return strings.TrimSpace(notes + "\n" + marker)
}
