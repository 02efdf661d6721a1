package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainEvent = "scholar/event/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed id of an event.
// Stable across runs for the same aggregate, type and sequence.
func EventID(aggregateID string, t EventType, sequence int64) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"aggregate_id": aggregateID,
		"type":         t,
		"sequence":     sequence,
	})
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// MustEventID is like EventID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEventID(aggregateID string, t EventType, sequence int64) string {
	id, err := EventID(aggregateID, t, sequence)
	if err != nil {
		panic(err)
	}
	return id
}
