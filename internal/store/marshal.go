package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/scholar/internal/ir"
)

// timestampLayout keeps timestamps sortable as TEXT in both dialects.
const timestampLayout = time.RFC3339Nano

// eventRow is the column image of one stored event.
type eventRow struct {
	ID          string
	AggregateID string
	Type        string
	Payload     string
	Sequence    int64
	Timestamp   string
	Batch       string
}

// marshalEvent converts an event to its column image.
func marshalEvent(ev ir.Event) (eventRow, error) {
	payload, err := ir.EncodePayload(ev.Payload)
	if err != nil {
		return eventRow{}, fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}
	return eventRow{
		ID:          ev.ID,
		AggregateID: ev.AggregateID,
		Type:        string(ev.Type),
		Payload:     payload,
		Sequence:    ev.Metadata.Sequence,
		Timestamp:   ev.Metadata.Timestamp.UTC().Format(timestampLayout),
		Batch:       ev.Metadata.Batch,
	}, nil
}

// unmarshalEvent restores an event from its column image.
func unmarshalEvent(row eventRow) (ir.Event, error) {
	t := ir.EventType(row.Type)
	payload, err := ir.DecodePayload(t, []byte(row.Payload))
	if err != nil {
		return ir.Event{}, fmt.Errorf("unmarshal event %s: %w", row.ID, err)
	}
	ts, err := time.Parse(timestampLayout, row.Timestamp)
	if err != nil {
		return ir.Event{}, fmt.Errorf("unmarshal event %s timestamp: %w", row.ID, err)
	}
	return ir.Event{
		ID:          row.ID,
		AggregateID: row.AggregateID,
		Type:        t,
		Payload:     payload,
		Metadata: ir.Metadata{
			Timestamp: ts,
			Sequence:  row.Sequence,
			Batch:     row.Batch,
		},
	}, nil
}

// scanEvent scans one row selected with eventColumns.
func scanEvent(rows *sql.Rows) (ir.Event, error) {
	var row eventRow
	if err := rows.Scan(
		&row.ID, &row.AggregateID, &row.Type, &row.Payload,
		&row.Sequence, &row.Timestamp, &row.Batch,
	); err != nil {
		return ir.Event{}, fmt.Errorf("scan event: %w", err)
	}
	return unmarshalEvent(row)
}
