package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQL writes events into the relay_events table created by storage.Migrate.
type SQL struct {
	db *sql.DB
}

func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

func (s *SQL) Record(ctx context.Context, ev Event) error {
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO relay_events (request_id, provider, model, outcome, upstream_status, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.RequestID, ev.Provider, ev.Model, ev.Outcome, ev.UpstreamStatus, ev.Latency.Milliseconds(), createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert relay event: %w", err)
	}
	return nil
}

func (s *SQL) Counts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM relay_events GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("count relay events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			outcome string
			n       int64
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

func (s *SQL) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, provider, model, outcome, upstream_status, latency_ms, created_at
		 FROM relay_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list relay events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev        Event
			latencyMs int64
		)
		if err := rows.Scan(&ev.RequestID, &ev.Provider, &ev.Model, &ev.Outcome, &ev.UpstreamStatus, &latencyMs, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Latency = time.Duration(latencyMs) * time.Millisecond
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *SQL) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM relay_events`); err != nil {
		return fmt.Errorf("reset relay events: %w", err)
	}
	return nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}
