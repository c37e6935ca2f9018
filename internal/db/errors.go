package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/vet-clinic/internal/validation"
)

// Postgres SQLSTATE codes the repositories translate into domain errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

func IsForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

// ConstraintName returns the violated constraint, if err came from Postgres.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// ReferenceError converts a foreign key violation on table into a
// validation error naming the offending column. It returns nil for any
// other error.
func ReferenceError(err error, table string) error {
	if !IsForeignKeyViolation(err) {
		return nil
	}
	field := strings.TrimSuffix(strings.TrimPrefix(ConstraintName(err), table+"_"), "_fkey")
	if field == "" {
		field = "reference"
	}
	return validation.New(field, "does_not_exist")
}

// ContainsPattern builds an ILIKE pattern matching q anywhere, with LIKE
// metacharacters in q taken literally.
func ContainsPattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
