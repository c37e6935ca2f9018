// Package clock holds the wall-clock types used for scheduling. Dates and
// times are compared within a clinic's local convention; nothing here
// converts between time zones.
package clock

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// TimeOfDay is a wall-clock time in seconds since midnight.
type TimeOfDay int

var ErrInvalidTimeOfDay = errors.New("time must be HH:MM or HH:MM:SS")

// At builds a TimeOfDay. It does not validate its inputs.
func At(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// ParseTimeOfDay accepts HH:MM and HH:MM:SS.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, ErrInvalidTimeOfDay
	}

	limits := []int{23, 59, 59}
	values := make([]int, 3)
	for i, p := range parts {
		if len(p) != 2 {
			return 0, ErrInvalidTimeOfDay
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, ErrInvalidTimeOfDay
		}
		values[i] = n
	}

	return At(values[0], values[1], values[2]), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

// Short formats as HH:MM, dropping seconds.
func (t TimeOfDay) Short() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) String() string {
	if t.Second() == 0 {
		return t.Short()
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < secondsPerDay
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidTimeOfDay
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ScanTime implements pgtype.TimeScanner for Postgres "time" columns.
func (t *TimeOfDay) ScanTime(v pgtype.Time) error {
	if !v.Valid {
		return errors.New("cannot scan NULL into TimeOfDay")
	}
	*t = TimeOfDay(v.Microseconds / int64(time.Second/time.Microsecond))
	return nil
}

// TimeValue implements pgtype.TimeValuer.
func (t TimeOfDay) TimeValue() (pgtype.Time, error) {
	return pgtype.Time{
		Microseconds: int64(t) * int64(time.Second/time.Microsecond),
		Valid:        true,
	}, nil
}

// ParseDate parses an ISO calendar date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

// DateOf truncates t to its calendar date in t's location, returned as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatDatePtr formats an optional date, returning nil for nil.
func FormatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatDate(*t)
	return &s
}
