package engine

import (
	"github.com/roach88/scholar/internal/ir"
)

// Projection is the read model: one Builder per researcher id.
//
// Not safe for concurrent use. The ingestor owns one per call.
type Projection struct {
	researchers map[string]*ir.Builder
	order       []string
}

// NewProjection creates an empty projection.
func NewProjection() *Projection {
	return &Projection{researchers: make(map[string]*ir.Builder)}
}

// Apply folds one event.
//
//   - Found creates the entry if missing, then folds the identifier
//   - DetailAdded and PublicationLinked fold into an existing entry and are
//     ignored for unknown ids
//   - IdentifierMerged folds into the entry named by the payload's TargetID,
//     not the event's aggregate id
//
// Payloads rejected by ir.CheckPayload are ignored.
func (p *Projection) Apply(ev ir.Event) {
	if ir.CheckPayload(ev.Payload) != nil {
		return
	}
	switch payload := ev.Payload.(type) {
	case ir.FoundPayload:
		b := p.entry(ev.AggregateID)
		foldInto(b, ev)
	case ir.DetailAddedPayload, ir.PublicationLinkedPayload:
		if b, ok := p.researchers[ev.AggregateID]; ok {
			foldInto(b, ev)
		}
	case ir.IdentifierMergedPayload:
		if b, ok := p.researchers[payload.TargetID]; ok {
			foldInto(b, ev)
		}
	}
}

func (p *Projection) entry(id string) *ir.Builder {
	if b, ok := p.researchers[id]; ok {
		return b
	}
	b := ir.NewBuilder()
	p.researchers[id] = &b
	p.order = append(p.order, id)
	return &b
}

// Has reports whether id has an entry.
func (p *Projection) Has(id string) bool {
	_, ok := p.researchers[id]
	return ok
}

// Len returns the number of researchers.
func (p *Projection) Len() int {
	return len(p.order)
}

// State returns a deep copy of every entry. Later Apply calls do not show
// through the returned map.
func (p *Projection) State() map[string]ir.Builder {
	out := make(map[string]ir.Builder, len(p.researchers))
	for id, b := range p.researchers {
		out[id] = b.Clone()
	}
	return out
}

// Researchers returns copies of every entry in order of creation.
func (p *Projection) Researchers() []ir.Researcher {
	out := make([]ir.Researcher, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, ir.Researcher{ID: id, State: p.researchers[id].Clone()})
	}
	return out
}

// Resolve finds the researcher already holding one of identifiers.
//
// Fields are checked in priority order; within a field, researchers are
// scanned in creation order and the first one holding any of the profile's
// values for that field wins. A match on a higher-priority field beats any
// match on a lower one.
func (p *Projection) Resolve(identifiers []ir.Identifier) (string, bool) {
	for _, f := range ir.IdentifierFields {
		var values []string
		for _, id := range identifiers {
			if id.Type == f {
				values = append(values, id.Value)
			}
		}
		if len(values) == 0 {
			continue
		}
		for _, rid := range p.order {
			if p.researchers[rid].Contains(f, values) {
				return rid, true
			}
		}
	}
	return "", false
}
