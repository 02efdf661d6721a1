package metrics

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scholar/internal/ir"
)

func found(agg string, seq int64) ir.Event {
	return ir.Event{
		AggregateID: agg,
		Type:        ir.ResearcherFound,
		Payload:     ir.FoundPayload{Identifier: ir.Identifier{Type: ir.FieldGithub, Value: agg}},
		Metadata:    ir.Metadata{Sequence: seq},
	}
}

func detail(agg string, seq int64, f ir.Field) ir.Event {
	return ir.Event{
		AggregateID: agg,
		Type:        ir.ResearcherDetailAdded,
		Payload:     ir.DetailAddedPayload{Update: ir.Detail{Type: f, Value: "x"}},
		Metadata:    ir.Metadata{Sequence: seq},
	}
}

func TestHandleCountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	ctx := context.Background()
	for _, ev := range []ir.Event{
		found("alice", 0),
		detail("alice", 1, ir.FieldName),
		found("alice", 2),
		detail("alice", 3, ir.FieldName),
		detail("alice", 4, ir.FieldWebsite),
		found("bob", 0),
		detail("bob", 1, ir.FieldName),
	} {
		require.NoError(t, m.Handle(ctx, ev))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(string(ir.ResearcherFound))))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(string(ir.ResearcherDetailAdded))))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ProfilesIngested))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResearchersFound))
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilMetricsHandle(t *testing.T) {
	var m *Metrics
	assert.NoError(t, m.Handle(context.Background(), found("alice", 0)))
}

func TestWriteFile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	require.NoError(t, m.Handle(context.Background(), found("alice", 0)))

	path := filepath.Join(t.TempDir(), "scholar.prom")
	require.NoError(t, WriteFile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `scholar_events_published_total{type="RESEARCHER_FOUND"} 1`)
	assert.Contains(t, string(data), "scholar_researchers_found_total 1")
}

func TestLogSummary(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	require.NoError(t, m.Handle(context.Background(), found("alice", 0)))
	require.NoError(t, m.Handle(context.Background(), detail("alice", 1, ir.FieldName)))

	buf := &bytes.Buffer{}
	require.NoError(t, LogSummary(slog.New(slog.NewTextHandler(buf, nil)), reg))

	out := buf.String()
	assert.Contains(t, out, "metric=scholar_events_published_total value=1 type=RESEARCHER_FOUND")
	assert.Contains(t, out, "metric=scholar_profiles_ingested_total value=1")
	assert.Contains(t, out, "metric=scholar_researchers_found_total value=1")
}
