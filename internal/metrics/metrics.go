// Package metrics counts ingestion activity for Prometheus.
package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/scholar/internal/ir"
)

// Metrics provides observability for ingestion runs.
type Metrics struct {
	// Published events by type
	EventsPublished *prometheus.CounterVec

	// Profiles that produced a committed batch of events
	ProfilesIngested prometheus.Counter

	// Researchers newly created (first Found of an aggregate)
	ResearchersFound prometheus.Counter
}

// New creates the ingestion metrics and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scholar_events_published_total",
			Help: "Total events published on the bus by event type",
		}, []string{"type"}),

		ProfilesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scholar_profiles_ingested_total",
			Help: "Total profiles whose events were committed",
		}),

		ResearchersFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scholar_researchers_found_total",
			Help: "Total researchers created by ingestion",
		}),
	}

	for _, c := range []prometheus.Collector{m.EventsPublished, m.ProfilesIngested, m.ResearchersFound} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// Handle is a bus handler that counts every published event.
//
// Each profile carries exactly one name DetailAdded event, so those are
// counted as ingested profiles. A Found at sequence 0 marks a new researcher.
func (m *Metrics) Handle(ctx context.Context, ev ir.Event) error {
	if m == nil {
		return nil
	}
	m.EventsPublished.WithLabelValues(string(ev.Type)).Inc()

	switch p := ev.Payload.(type) {
	case ir.FoundPayload:
		if ev.Metadata.Sequence == 0 {
			m.ResearchersFound.Inc()
		}
	case ir.DetailAddedPayload:
		if p.Update.Type == ir.FieldName {
			m.ProfilesIngested.Inc()
		}
	}
	return nil
}

// WriteFile gathers g and writes the text exposition to path.
func WriteFile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}

// LogSummary gathers g and logs one Info record per counter sample, for runs
// that enable metrics without an exposition file.
func LogSummary(logger *slog.Logger, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, sample := range mf.GetMetric() {
			attrs := []any{"metric", mf.GetName(), "value", sample.GetCounter().GetValue()}
			for _, lp := range sample.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			logger.Info("metric", attrs...)
		}
	}
	return nil
}
