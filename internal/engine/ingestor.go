package engine

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/scholar/internal/bus"
	"github.com/roach88/scholar/internal/ir"
	"github.com/roach88/scholar/internal/profile"
	"github.com/roach88/scholar/internal/store"
)

const tracerName = "github.com/roach88/scholar/internal/engine"

// Ingestor turns validated profiles into researcher events.
//
// The store and bus are shared; everything else about a run (projection,
// batch token) is private to one IngestProfiles call.
type Ingestor struct {
	store   store.EventStore
	bus     bus.EventBus
	clock   Clock
	batches BatchGenerator
	logger  *slog.Logger
	tracer  trace.Tracer
	enrich  bool
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithClock sets the clock used to stamp events.
func WithClock(c Clock) IngestorOption {
	return func(i *Ingestor) {
		i.clock = c
	}
}

// WithBatchGenerator sets the source of per-run batch tokens.
func WithBatchGenerator(g BatchGenerator) IngestorOption {
	return func(i *Ingestor) {
		i.batches = g
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) IngestorOption {
	return func(i *Ingestor) {
		i.logger = l
	}
}

// WithTracer sets the tracer for batch and profile spans.
func WithTracer(t trace.Tracer) IngestorOption {
	return func(i *Ingestor) {
		i.tracer = t
	}
}

// WithEnrichment also stages image, website and publication facts for each
// profile. Off by default.
func WithEnrichment(enabled bool) IngestorOption {
	return func(i *Ingestor) {
		i.enrich = enabled
	}
}

// NewIngestor creates an ingestor over a shared store and bus.
func NewIngestor(s store.EventStore, b bus.EventBus, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{
		store:   s,
		bus:     b,
		clock:   SystemClock{},
		batches: UUIDv7Generator{},
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IngestProfiles resolves and records every profile in order and returns
// the researchers touched by the batch, in order of first appearance.
//
// Profiles are processed one at a time; later profiles see researchers
// created by earlier ones. The first failure aborts the batch: events of
// earlier profiles stay appended, and nothing is appended for the failing
// profile. A profile without identifiers fails with an IngestError coded
// NO_IDENTIFIER. Store and bus errors are returned unmodified.
func (i *Ingestor) IngestProfiles(ctx context.Context, profiles []profile.Profile) ([]ir.Researcher, error) {
	batch := i.batches.Generate()

	ctx, span := i.tracer.Start(ctx, "engine.IngestProfiles", trace.WithAttributes(
		attribute.String("scholar.batch", batch),
		attribute.Int("scholar.profiles", len(profiles)),
	))
	defer span.End()

	i.logger.Info("ingestion starting",
		"batch", batch,
		"profiles", len(profiles),
	)

	projection := NewProjection()
	for idx, p := range profiles {
		if err := i.ingestProfile(ctx, projection, batch, p); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			i.logger.Error("ingestion aborted",
				"batch", batch,
				"index", idx,
				"profile", p.MetaName,
				"error", err,
			)
			return nil, err
		}
	}

	researchers := projection.Researchers()
	i.logger.Info("ingestion complete",
		"batch", batch,
		"profiles", len(profiles),
		"researchers", len(researchers),
	)
	return researchers, nil
}

func (i *Ingestor) ingestProfile(ctx context.Context, projection *Projection, batch string, p profile.Profile) error {
	ctx, span := i.tracer.Start(ctx, "engine.ingestProfile", trace.WithAttributes(
		attribute.String("scholar.profile", p.MetaName),
	))
	defer span.End()

	identifiers := p.Identifiers()
	if len(identifiers) == 0 {
		return &IngestError{
			Code:    ErrCodeNoIdentifier,
			Message: fmt.Sprintf("no valid identifiers found on profile: %s", p.MetaName),
			Profile: p.MetaName,
		}
	}

	id, matched := projection.Resolve(identifiers)
	if !matched {
		id = GenerateID(p.MetaName, p.Cohort)
	}
	span.SetAttributes(
		attribute.String("scholar.researcher", id),
		attribute.Bool("scholar.matched", matched),
	)

	history, err := i.store.ByAggregateID(ctx, id)
	if err != nil {
		return err
	}

	agg := NewAggregate(id, WithAggregateClock(i.clock), WithAggregateBatch(batch))
	agg.Load(history)

	// First touch of a researcher with prior history: seed the batch
	// projection so the returned state matches a full replay.
	if !projection.Has(id) {
		for _, ev := range history {
			projection.Apply(ev)
		}
	}

	for _, identifier := range identifiers {
		if err := agg.Create(identifier); err != nil {
			return err
		}
	}
	if err := agg.AddDetail(ir.Detail{Type: ir.FieldName, Value: p.MetaName}); err != nil {
		return err
	}
	if i.enrich {
		if err := enrichAggregate(agg, p); err != nil {
			return err
		}
	}

	events := agg.Commit()
	if err := i.store.Append(ctx, events); err != nil {
		return err
	}

	for _, ev := range events {
		if err := i.bus.Publish(ctx, ev); err != nil {
			return err
		}
		projection.Apply(ev)
		i.logger.Debug("event recorded",
			"batch", batch,
			"aggregate", ev.AggregateID,
			"type", ev.Type,
			"sequence", ev.Metadata.Sequence,
		)
	}

	i.logger.Info("profile ingested",
		"batch", batch,
		"researcher", id,
		"matched", matched,
		"events", len(events),
	)
	return nil
}

// enrichAggregate stages the optional facts of a profile.
func enrichAggregate(agg *Aggregate, p profile.Profile) error {
	for _, v := range p.MetaImageURL {
		if err := agg.AddDetail(ir.Detail{Type: ir.FieldImageURL, Value: v}); err != nil {
			return err
		}
	}
	for _, v := range p.MetaWebsite {
		if err := agg.AddDetail(ir.Detail{Type: ir.FieldWebsite, Value: v}); err != nil {
			return err
		}
	}
	for _, doi := range p.RefPublicationDOI {
		if err := agg.LinkPublication(doi); err != nil {
			return err
		}
	}
	return nil
}
