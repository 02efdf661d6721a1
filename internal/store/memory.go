package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/scholar/internal/ir"
)

// Memory is a process-local event log.
// Safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	events []ir.Event
	byAgg  map[string][]int
	order  []string
	ids    map[string]bool
	seqs   map[string]map[int64]bool
}

// NewMemory creates an empty in-memory log.
func NewMemory() *Memory {
	return &Memory{
		byAgg: make(map[string][]int),
		ids:   make(map[string]bool),
		seqs:  make(map[string]map[int64]bool),
	}
}

// Append stores events in order. The whole batch is checked before any
// event becomes visible.
func (m *Memory) Append(ctx context.Context, events []ir.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateBatch(events); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, ev := range events {
		if m.ids[ev.ID] || m.seqs[ev.AggregateID][ev.Metadata.Sequence] {
			return fmt.Errorf("append: event[%d] %s: %w", i, ev.ID, ErrConflict)
		}
	}

	for _, ev := range events {
		if _, ok := m.byAgg[ev.AggregateID]; !ok {
			m.order = append(m.order, ev.AggregateID)
			m.seqs[ev.AggregateID] = make(map[int64]bool)
		}
		m.byAgg[ev.AggregateID] = append(m.byAgg[ev.AggregateID], len(m.events))
		m.ids[ev.ID] = true
		m.seqs[ev.AggregateID][ev.Metadata.Sequence] = true
		m.events = append(m.events, ev)
	}
	return nil
}

// ByAggregateID returns the events for id in append order.
func (m *Memory) ByAggregateID(ctx context.Context, id string) ([]ir.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := m.byAgg[id]
	out := make([]ir.Event, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.events[i])
	}
	return out, nil
}

// AggregateIDs returns every aggregate id in order of first append.
func (m *Memory) AggregateIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.order...), nil
}

// All returns every event in append order.
func (m *Memory) All(ctx context.Context) ([]ir.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ir.Event{}, m.events...), nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// Len returns the number of stored events.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
