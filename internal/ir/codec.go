package ir

import (
	"encoding/json"
	"fmt"
)

// eventJSON is the wire shape of an Event with the payload left raw.
type eventJSON struct {
	ID          string          `json:"id"`
	AggregateID string          `json:"aggregateId"`
	Type        EventType       `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Metadata    Metadata        `json:"metadata"`
}

// MarshalJSON encodes the event and checks payload/type agreement.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("marshal event %s: nil payload", e.ID)
	}
	if e.Payload.EventType() != e.Type {
		return nil, fmt.Errorf("marshal event %s: payload %s does not match type %s", e.ID, e.Payload.EventType(), e.Type)
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s payload: %w", e.ID, err)
	}
	return json.Marshal(eventJSON{
		ID:          e.ID,
		AggregateID: e.AggregateID,
		Type:        e.Type,
		Payload:     payload,
		Metadata:    e.Metadata,
	})
}

// UnmarshalJSON decodes the payload according to the type discriminator.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	payload, err := DecodePayload(raw.Type, raw.Payload)
	if err != nil {
		return fmt.Errorf("unmarshal event %s: %w", raw.ID, err)
	}
	*e = Event{
		ID:          raw.ID,
		AggregateID: raw.AggregateID,
		Type:        raw.Type,
		Payload:     payload,
		Metadata:    raw.Metadata,
	}
	return nil
}

// DecodePayload parses a raw payload for the given event type and rejects
// payloads that fail CheckPayload.
func DecodePayload(t EventType, data []byte) (Payload, error) {
	var p Payload
	var err error
	switch t {
	case ResearcherFound:
		p, err = decodeAs[FoundPayload](data)
	case ResearcherDetailAdded:
		p, err = decodeAs[DetailAddedPayload](data)
	case ResearcherIdentifierMerged:
		p, err = decodeAs[IdentifierMergedPayload](data)
	case ResearcherPublicationLinked:
		p, err = decodeAs[PublicationLinkedPayload](data)
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	if err := CheckPayload(p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}

func decodeAs[T Payload](data []byte) (Payload, error) {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// EncodePayload renders a payload as JSON text for storage.
func EncodePayload(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", p.EventType(), err)
	}
	return string(data), nil
}
