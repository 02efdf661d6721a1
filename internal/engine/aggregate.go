package engine

import (
	"fmt"

	"github.com/roach88/scholar/internal/ir"
)

// Aggregate is the write model of one researcher: the state folded from its
// history plus the events staged since rehydration.
//
// Lifecycle phases (unborn, found, enriched) are not enforced. Create may
// be called any number of times and simply stages more Found events.
//
// Not safe for concurrent use.
type Aggregate struct {
	id      string
	state   ir.Builder
	pending []ir.Event
	version int64

	clock Clock
	batch string
}

// AggregateOption configures an Aggregate.
type AggregateOption func(*Aggregate)

// WithAggregateClock sets the clock used to stamp staged events.
func WithAggregateClock(c Clock) AggregateOption {
	return func(a *Aggregate) {
		a.clock = c
	}
}

// WithAggregateBatch sets the batch token stamped on staged events.
func WithAggregateBatch(token string) AggregateOption {
	return func(a *Aggregate) {
		a.batch = token
	}
}

// NewAggregate creates an aggregate with no history.
func NewAggregate(id string, opts ...AggregateOption) *Aggregate {
	a := &Aggregate{
		id:    id,
		state: ir.NewBuilder(),
		clock: SystemClock{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID returns the aggregate id.
func (a *Aggregate) ID() string {
	return a.id
}

// Version returns the number of events folded into state.
func (a *Aggregate) Version() int64 {
	return a.version
}

// State returns a copy of the folded state.
func (a *Aggregate) State() ir.Builder {
	return a.state.Clone()
}

// Load replays history in order. Events of other aggregate kinds are
// skipped; version ends at the number of researcher events replayed.
func (a *Aggregate) Load(events []ir.Event) {
	var n int64
	for _, ev := range events {
		if !ev.Type.IsResearcherEvent() {
			continue
		}
		a.Apply(ev)
		n++
	}
	a.version = n
}

// Apply folds one event into state and bumps version. Replaying the same
// ordered history always yields the same state. There is no deduplication
// by event id; applying an event twice folds it twice.
func (a *Aggregate) Apply(ev ir.Event) {
	if !foldInto(&a.state, ev) {
		return
	}
	a.version++
}

// foldInto applies the state change of a researcher event to b and reports
// whether it was folded. Events of other kinds and payloads rejected by
// ir.CheckPayload are not folded. Aggregate and Projection share it so
// replay equivalence holds by construction.
func foldInto(b *ir.Builder, ev ir.Event) bool {
	if ir.CheckPayload(ev.Payload) != nil {
		return false
	}
	var details []ir.Detail
	switch p := ev.Payload.(type) {
	case ir.FoundPayload:
		details = []ir.Detail{p.Identifier.AsDetail()}
	case ir.DetailAddedPayload:
		details = []ir.Detail{p.Update}
	case ir.PublicationLinkedPayload:
		details = []ir.Detail{{Type: ir.FieldPublicationDOI, Value: p.Target.Value}}
	case ir.IdentifierMergedPayload:
		for _, id := range p.MergedIdentifiers {
			details = append(details, id.AsDetail())
		}
	default:
		return false
	}
	for _, d := range details {
		if err := b.Push(d); err != nil {
			return false
		}
	}
	return true
}

// Create stages a Found event for identifier. It does not check whether the
// identifier is already known, only that its type is an identifier namespace.
func (a *Aggregate) Create(identifier ir.Identifier) error {
	payload := ir.FoundPayload{Identifier: identifier}
	if err := ir.CheckPayload(payload); err != nil {
		return err
	}
	a.stage(ir.ResearcherFound, payload)
	return nil
}

// AddDetail stages a DetailAdded event. The payload identifier is whatever
// Identifier returns, not necessarily the identifier the detail belongs to.
// Details outside the researcher field set are rejected with
// ir.ErrInvalidField.
func (a *Aggregate) AddDetail(detail ir.Detail) error {
	if !detail.Type.IsResearcherField() {
		return fmt.Errorf("add detail %q: %w", detail.Type, ir.ErrInvalidField)
	}
	id, err := a.Identifier()
	if err != nil {
		return err
	}
	a.stage(ir.ResearcherDetailAdded, ir.DetailAddedPayload{Identifier: id, Update: detail})
	return nil
}

// LinkPublication stages a PublicationLinked event from Identifier to doi.
func (a *Aggregate) LinkPublication(doi string) error {
	id, err := a.Identifier()
	if err != nil {
		return err
	}
	a.stage(ir.ResearcherPublicationLinked, ir.PublicationLinkedPayload{
		Source: id,
		Target: ir.Identifier{Type: ir.FieldDOI, Value: doi},
	})
	return nil
}

// Commit returns the staged events and clears them. State and version are
// untouched; callers fold committed events themselves if they need to.
func (a *Aggregate) Commit() []ir.Event {
	events := a.pending
	a.pending = nil
	if events == nil {
		return []ir.Event{}
	}
	return events
}

// Pending returns the number of staged events.
func (a *Aggregate) Pending() int {
	return len(a.pending)
}

// Identifier returns the first known identifier in field priority order.
// Returns ErrNoIdentifier if none is known.
func (a *Aggregate) Identifier() (ir.Identifier, error) {
	ids := a.KnownIdentifiers()
	if len(ids) == 0 {
		return ir.Identifier{}, ErrNoIdentifier
	}
	return ids[0], nil
}

// KnownIdentifiers lists every identifier in field priority order. Within a
// field, folded values come first, then values of staged Found events, so a
// freshly created aggregate can describe itself before its first commit.
func (a *Aggregate) KnownIdentifiers() []ir.Identifier {
	var ids []ir.Identifier
	for _, f := range ir.IdentifierFields {
		for _, v := range a.state.Values(f) {
			ids = append(ids, ir.Identifier{Type: f, Value: v})
		}
		for _, ev := range a.pending {
			if p, ok := ev.Payload.(ir.FoundPayload); ok && p.Identifier.Type == f {
				ids = append(ids, p.Identifier)
			}
		}
	}
	return ids
}

// stage appends a new event. Sequence continues from the replayed history
// across every staged event.
func (a *Aggregate) stage(t ir.EventType, payload ir.Payload) {
	seq := a.version + int64(len(a.pending))
	a.pending = append(a.pending, ir.Event{
		ID:          ir.MustEventID(a.id, t, seq),
		AggregateID: a.id,
		Type:        t,
		Payload:     payload,
		Metadata: ir.Metadata{
			Timestamp: a.clock.Now(),
			Sequence:  seq,
			Batch:     a.batch,
		},
	})
}
