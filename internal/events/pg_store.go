package events

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, aggregate_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AggregateID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

// ClaimBatch locks up to limit unpublished events, hands them to fn, and
// marks them published if fn succeeds. Concurrent relays skip rows another
// relay already holds.
func (s *PgStore) ClaimBatch(ctx context.Context, limit int, fn func(ctx context.Context, batch []EventLog) error) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin relay tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, event_type, aggregate_id, payload, created_at, published_at
		FROM event_logs
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return 0, fmt.Errorf("select unpublished events: %w", err)
	}

	batch, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (EventLog, error) {
		var ev EventLog
		err := row.Scan(&ev.ID, &ev.EventType, &ev.AggregateID, &ev.Payload, &ev.CreatedAt, &ev.PublishedAt)
		return ev, err
	})
	if err != nil {
		return 0, fmt.Errorf("scan unpublished events: %w", err)
	}
	if len(batch) == 0 {
		return 0, tx.Commit(ctx)
	}

	if err := fn(ctx, batch); err != nil {
		return 0, err
	}

	ids := make([]int64, 0, len(batch))
	for _, ev := range batch {
		ids = append(ids, ev.ID)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE event_logs SET published_at = now() WHERE id = ANY($1)
	`, ids); err != nil {
		return 0, fmt.Errorf("mark events published: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit relay tx: %w", err)
	}
	return len(batch), nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
