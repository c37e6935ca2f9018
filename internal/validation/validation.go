package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Violations maps a field name to a short reason code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records a violation, keeping the first reason reported for a field.
func (v Violations) Add(field, reason string) {
	if _, ok := v[field]; !ok {
		v[field] = reason
	}
}

// Err returns nil when there are no violations.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return &Error{Fields: v}
}

// Error is returned for input the caller can fix and resubmit.
type Error struct {
	Fields Violations
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// New builds a single-field validation error.
func New(field, reason string) error {
	return &Error{Fields: Violations{field: reason}}
}

// As reports whether err is (or wraps) a validation error.
func As(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func NonNegative(field string, val int, v Violations) {
	if val < 0 {
		v.Add(field, "must_not_be_negative")
	}
}

func MaxBytes(field, value string, limit int, v Violations) {
	if len(value) > limit {
		v.Add(field, fmt.Sprintf("must_be_at_most_%d_bytes", limit))
	}
}
