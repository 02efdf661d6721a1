package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/scholar/internal/ir"
)

// dialect captures the per-backend differences of the SQL event log.
type dialect struct {
	name string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
}

var (
	dialectSQLite   = dialect{name: "sqlite"}
	dialectPostgres = dialect{name: "postgres", numbered: true}
)

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const eventColumns = `id, aggregate_id, type, payload, sequence, timestamp, batch`

// Store is a SQL-backed event log (SQLite or Postgres).
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Close closes the database connection.
// Should be called when the store is no longer needed.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver names the backing dialect ("sqlite" or "postgres").
func (s *Store) Driver() string {
	return s.dialect.name
}

// Append writes events in one transaction. Either every event becomes
// visible or none does.
func (s *Store) Append(ctx context.Context, events []ir.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := validateBatch(events); err != nil {
		return err
	}

	rows := make([]eventRow, len(events))
	for i, ev := range events {
		row, err := marshalEvent(ev)
		if err != nil {
			return fmt.Errorf("append: %w", err)
		}
		rows[i] = row
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for i, row := range rows {
		var count int
		err := tx.QueryRowContext(ctx, s.dialect.rebind(`
			SELECT COUNT(*) FROM events
			WHERE id = ? OR (aggregate_id = ? AND sequence = ?)
		`), row.ID, row.AggregateID, row.Sequence).Scan(&count)
		if err != nil {
			return fmt.Errorf("append: check conflict: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("append: event[%d] %s: %w", i, row.ID, ErrConflict)
		}

		_, err = tx.ExecContext(ctx, s.dialect.rebind(`
			INSERT INTO events
			(id, aggregate_id, type, payload, sequence, timestamp, batch, schema_version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`),
			row.ID,
			row.AggregateID,
			row.Type,
			row.Payload,
			row.Sequence,
			row.Timestamp,
			row.Batch,
			ir.SchemaVersion,
		)
		if err != nil {
			return fmt.Errorf("append: insert event %s: %w", row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append: commit: %w", err)
	}
	return nil
}

// ByAggregateID returns the events for id in append order.
// Returns an empty slice (not nil) if the aggregate has no events.
func (s *Store) ByAggregateID(ctx context.Context, id string) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT `+eventColumns+`
		FROM events
		WHERE aggregate_id = ?
		ORDER BY position ASC
	`), id)
	if err != nil {
		return nil, fmt.Errorf("query events for %s: %w", id, err)
	}
	return collectEvents(rows)
}

// All returns every event in append order.
func (s *Store) All(ctx context.Context) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all events: %w", err)
	}
	return collectEvents(rows)
}

// AggregateIDs returns every aggregate id in order of first append.
func (s *Store) AggregateIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT aggregate_id
		FROM events
		GROUP BY aggregate_id
		ORDER BY MIN(position) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query aggregate ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan aggregate id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate ids: %w", err)
	}
	return ids, nil
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func collectEvents(rows *sql.Rows) ([]ir.Event, error) {
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
