// Package bus delivers published events to in-process subscribers.
//
// Publish blocks until every handler for the event has returned. Handlers
// of one event run concurrently; the first handler error is returned to the
// publisher.
package bus

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/scholar/internal/ir"
)

// Handler reacts to one published event.
type Handler func(ctx context.Context, ev ir.Event) error

// EventBus is the notification boundary consumed by the ingestion engine.
type EventBus interface {
	Publish(ctx context.Context, ev ir.Event) error
	Subscribe(t ir.EventType, h Handler)
}

// Bus is an in-process EventBus. The zero value is not usable; call New.
type Bus struct {
	mu     sync.RWMutex
	byType map[ir.EventType][]Handler
	all    []Handler
}

// New creates a bus with no subscribers.
func New() *Bus {
	return &Bus{byType: make(map[ir.EventType][]Handler)}
}

// Subscribe registers h for every future publish of type t.
func (b *Bus) Subscribe(t ir.EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType[t] = append(b.byType[t], h)
}

// SubscribeAll registers h for every future publish regardless of type.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish delivers ev to the handlers registered for its type and to every
// SubscribeAll handler, and waits for all of them.
func (b *Bus) Publish(ctx context.Context, ev ir.Event) error {
	handlers := b.handlers(ev.Type)
	if len(handlers) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range handlers {
		g.Go(func() error {
			return h(gctx, ev)
		})
	}
	return g.Wait()
}

// handlers snapshots the subscriber list so registration during a publish
// only affects later publishes.
func (b *Bus) handlers(t ir.EventType) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, 0, len(b.byType[t])+len(b.all))
	out = append(out, b.byType[t]...)
	out = append(out, b.all...)
	return out
}
