package harness

import (
	"github.com/roach88/scholar/internal/ir"
)

// TraceEvent is one published event, reduced to the fields that are stable
// across runs.
type TraceEvent struct {
	AggregateID string `json:"aggregate_id"`
	Type        string `json:"type"`
	Sequence    int64  `json:"sequence"`
	Field       string `json:"field,omitempty"`
	Value       string `json:"value,omitempty"`
}

// newTraceEvent flattens ev's payload into a field/value pair.
func newTraceEvent(ev ir.Event) TraceEvent {
	te := TraceEvent{
		AggregateID: ev.AggregateID,
		Type:        string(ev.Type),
		Sequence:    ev.Metadata.Sequence,
	}
	switch p := ev.Payload.(type) {
	case ir.FoundPayload:
		te.Field, te.Value = string(p.Identifier.Type), p.Identifier.Value
	case ir.DetailAddedPayload:
		te.Field, te.Value = string(p.Update.Type), p.Update.Value
	case ir.PublicationLinkedPayload:
		te.Field, te.Value = string(p.Target.Type), p.Target.Value
	case ir.IdentifierMergedPayload:
		te.Value = p.TargetID
	}
	return te
}

// RunOutcome records how one ingestion run ended.
type RunOutcome struct {
	Index       int    `json:"index"`
	Researchers int    `json:"researchers"`
	ErrorCode   string `json:"error_code,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Trace contains every published event in publish order.
	Trace []TraceEvent `json:"trace"`

	// Runs records each ingestion run.
	Runs []RunOutcome `json:"runs"`

	// Researchers is the state replayed from the whole log, in creation order.
	Researchers []ir.Researcher `json:"researchers"`

	// Events is the whole log in append order.
	Events []ir.Event `json:"-"`

	// Errors contains failed expectations and assertions.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Trace:       []TraceEvent{},
		Runs:        []RunOutcome{},
		Researchers: []ir.Researcher{},
		Errors:      []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Researcher returns the final state of id.
func (r *Result) Researcher(id string) (ir.Researcher, bool) {
	for _, res := range r.Researchers {
		if res.ID == id {
			return res, true
		}
	}
	return ir.Researcher{}, false
}

// EventsFor returns the stored events of id in append order.
func (r *Result) EventsFor(id string) []ir.Event {
	var out []ir.Event
	for _, ev := range r.Events {
		if ev.AggregateID == id {
			out = append(out, ev)
		}
	}
	return out
}
