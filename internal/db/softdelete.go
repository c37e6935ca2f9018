package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrNotFound is returned by helpers in this package when no row matched.
var ErrNotFound = errors.New("row not found")

// SoftDelete stamps deleted_at on the row of table with the given id whose
// scope column equals scopeID. It reports whether the row changed; a row
// that was already deleted is left untouched. table and scope are
// identifiers chosen by the caller, never user input.
func SoftDelete(ctx context.Context, q Querier, table, scope string, scopeID, id uuid.UUID, now time.Time) (bool, error) {
	var already bool
	err := q.QueryRow(ctx, fmt.Sprintf(`
		WITH target AS (
			SELECT id, deleted_at IS NOT NULL AS already
			FROM %[1]s
			WHERE id = $1 AND %[2]s = $2
		), upd AS (
			UPDATE %[1]s t
			SET deleted_at = $3, updated_at = $3
			FROM target
			WHERE t.id = target.id AND NOT target.already
		)
		SELECT already FROM target
	`, table, scope), id, scopeID, now).Scan(&already)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("soft delete %s: %w", table, err)
	}
	return !already, nil
}
