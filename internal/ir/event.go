package ir

import (
	"errors"
	"fmt"
	"time"
)

// EventType identifies the kind of fact an event records.
type EventType string

const (
	ResearcherFound             EventType = "RESEARCHER_FOUND"
	ResearcherDetailAdded       EventType = "RESEARCHER_DETAIL_ADDED"
	ResearcherIdentifierMerged  EventType = "RESEARCHER_IDENTIFIER_MERGED"
	ResearcherPublicationLinked EventType = "RESEARCHER_PUBLICATION_LINKED"
)

// ResearcherEventTypes lists the event types folded by the researcher aggregate.
var ResearcherEventTypes = []EventType{
	ResearcherFound,
	ResearcherDetailAdded,
	ResearcherIdentifierMerged,
	ResearcherPublicationLinked,
}

// IsResearcherEvent reports whether t belongs to the researcher aggregate.
func (t EventType) IsResearcherEvent() bool {
	for _, rt := range ResearcherEventTypes {
		if t == rt {
			return true
		}
	}
	return false
}

// Metadata carries ordering and provenance for an event.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	// Sequence is the replay ordering key within one aggregate.
	Sequence int64 `json:"sequence"`
	// Batch is the token of the ingestion run that staged the event.
	Batch string `json:"batch,omitempty"`
}

// Event is an immutable fact about one aggregate.
// Payload's concrete type always matches Type.
type Event struct {
	ID          string    `json:"id"`
	AggregateID string    `json:"aggregateId"`
	Type        EventType `json:"type"`
	Payload     Payload   `json:"payload"`
	Metadata    Metadata  `json:"metadata"`
}

// Payload is implemented by the typed event payloads in this package.
type Payload interface {
	EventType() EventType
}

// FoundPayload records the discovery of an identifier.
type FoundPayload struct {
	Identifier Identifier `json:"identifier"`
}

// DetailAddedPayload records one fact about a researcher.
// Identifier is whichever identifier the aggregate knew first, not
// necessarily the one the update belongs to.
type DetailAddedPayload struct {
	Identifier Identifier `json:"identifier"`
	Update     Detail     `json:"update"`
}

// IdentifierMergedPayload folds the identifiers of one aggregate into another.
// No ingestion command produces it yet.
type IdentifierMergedPayload struct {
	SourceID          string       `json:"sourceId"`
	TargetID          string       `json:"targetId"`
	MergedIdentifiers []Identifier `json:"mergedIdentifiers"`
}

// PublicationLinkedPayload links a researcher to a publication DOI.
type PublicationLinkedPayload struct {
	Source Identifier `json:"source"`
	Target Identifier `json:"target"`
}

func (FoundPayload) EventType() EventType             { return ResearcherFound }
func (DetailAddedPayload) EventType() EventType       { return ResearcherDetailAdded }
func (IdentifierMergedPayload) EventType() EventType  { return ResearcherIdentifierMerged }
func (PublicationLinkedPayload) EventType() EventType { return ResearcherPublicationLinked }

// ErrInvalidField is returned when a payload carries a field its event type
// cannot hold.
var ErrInvalidField = errors.New("invalid payload field")

// CheckPayload reports whether every field p folds into a Builder is one
// the Builder accumulates: identifiers for Found and IdentifierMerged,
// researcher fields for DetailAdded and a DOI target for PublicationLinked.
func CheckPayload(p Payload) error {
	switch t := p.(type) {
	case FoundPayload:
		if !t.Identifier.Type.IsIdentifier() {
			return fmt.Errorf("%s identifier %q: %w", ResearcherFound, t.Identifier.Type, ErrInvalidField)
		}
	case DetailAddedPayload:
		if !t.Update.Type.IsResearcherField() {
			return fmt.Errorf("%s update %q: %w", ResearcherDetailAdded, t.Update.Type, ErrInvalidField)
		}
	case IdentifierMergedPayload:
		for _, id := range t.MergedIdentifiers {
			if !id.Type.IsIdentifier() {
				return fmt.Errorf("%s identifier %q: %w", ResearcherIdentifierMerged, id.Type, ErrInvalidField)
			}
		}
	case PublicationLinkedPayload:
		if t.Target.Type != FieldDOI {
			return fmt.Errorf("%s target %q: %w", ResearcherPublicationLinked, t.Target.Type, ErrInvalidField)
		}
	case nil:
		return fmt.Errorf("nil payload: %w", ErrInvalidField)
	}
	return nil
}
