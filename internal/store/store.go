package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/scholar/internal/ir"
)

// ErrConflict is returned when an append would duplicate an event id or an
// (aggregate_id, sequence) pair already in the log.
var ErrConflict = errors.New("event conflicts with stored history")

// EventStore is the persistence boundary consumed by the ingestion engine.
// Any durable backing must implement exactly this contract.
type EventStore interface {
	// Append stores events in order. All-or-nothing per call.
	Append(ctx context.Context, events []ir.Event) error

	// ByAggregateID returns the events for id in append order.
	// Returns an empty slice (not nil) for unknown ids.
	ByAggregateID(ctx context.Context, id string) ([]ir.Event, error)
}

// Log extends EventStore with whole-log reads used by replay and the CLI.
type Log interface {
	EventStore

	// AggregateIDs returns every aggregate id in order of first append.
	AggregateIDs(ctx context.Context) ([]string, error)

	// All returns every event in append order.
	All(ctx context.Context) ([]ir.Event, error)

	Close() error
}

// validateBatch checks a batch before any of it is written.
func validateBatch(events []ir.Event) error {
	type key struct {
		agg string
		seq int64
	}
	ids := make(map[string]bool, len(events))
	seqs := make(map[key]bool, len(events))
	for i, ev := range events {
		if ev.ID == "" {
			return fmt.Errorf("append: event[%d] has empty id", i)
		}
		if ev.AggregateID == "" {
			return fmt.Errorf("append: event[%d] has empty aggregate id", i)
		}
		if ev.Payload == nil {
			return fmt.Errorf("append: event[%d] has nil payload", i)
		}
		if ev.Payload.EventType() != ev.Type {
			return fmt.Errorf("append: event[%d] payload %s does not match type %s", i, ev.Payload.EventType(), ev.Type)
		}
		if err := ir.CheckPayload(ev.Payload); err != nil {
			return fmt.Errorf("append: event[%d]: %w", i, err)
		}
		k := key{ev.AggregateID, ev.Metadata.Sequence}
		if ids[ev.ID] || seqs[k] {
			return fmt.Errorf("append: event[%d] %s: %w", i, ev.ID, ErrConflict)
		}
		ids[ev.ID] = true
		seqs[k] = true
	}
	return nil
}
