// Package store provides durable storage for scholar event logs.
//
// The store is an append-only log of researcher events with:
//   - Append: all-or-nothing per call, no atomicity across calls
//   - ByAggregateID: one aggregate's history in append order
//   - All / AggregateIDs: full-log reads for replay and inspection
//
// # Critical Patterns
//
// Ordering: reads use ORDER BY position ASC (append order). Replay folds
// events in that order; Metadata.Sequence is monotonic within an aggregate
// and (aggregate_id, sequence) is UNIQUE.
//
// Immutability: events are never updated or deleted.
//
// # Backends
//
//   - Memory: process-local, used by tests and the "memory" driver
//   - SQLite (mattn/go-sqlite3): WAL mode, busy_timeout=5000, single writer
//   - Postgres (jackc/pgx/v5 stdlib): same schema, $n placeholders
//
// Event ids are content-addressed via ir.EventID.
package store
