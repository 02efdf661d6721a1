package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/scholar/internal/bus"
	"github.com/roach88/scholar/internal/engine"
	"github.com/roach88/scholar/internal/ir"
	"github.com/roach88/scholar/internal/profile"
	"github.com/roach88/scholar/internal/store"
	"github.com/roach88/scholar/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and batch token.
type Harness struct {
	store   *store.Memory
	service *engine.Service
	logger  *slog.Logger

	mu    sync.Mutex
	trace []TraceEvent
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store for isolation.
//
// Execution flow:
// 1. Create a fresh store, bus and deterministic ingestor
// 2. Ingest each run through load, parse, validate and ingest
// 3. Check each run's expected error
// 4. Replay the whole log into the final researcher state
// 5. Evaluate assertions
//
// The returned error is reserved for harness failures such as a store
// error; rejected input and failed assertions are reported in Result.
func Run(scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := NewResult()

	for i, run := range scenario.Runs {
		if err := h.executeRun(ctx, i, run, result); err != nil {
			return nil, fmt.Errorf("run %d: %w", i, err)
		}
	}

	events, err := h.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	projection := engine.NewProjection()
	for _, ev := range events {
		projection.Apply(ev)
	}

	h.mu.Lock()
	result.Trace = append(result.Trace, h.trace...)
	h.mu.Unlock()
	result.Events = events
	result.Researchers = projection.Researchers()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

func newHarness(scenario *Scenario) (*Harness, error) {
	h := &Harness{
		store:  store.NewMemory(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	b := bus.New()
	b.SubscribeAll(h.record)

	validator, err := profile.NewValidator()
	if err != nil {
		return nil, err
	}

	ingestor := engine.NewIngestor(h.store, b,
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithBatchGenerator(testutil.NewFixedBatchGenerator(scenario.BatchToken)),
		engine.WithLogger(h.logger),
		engine.WithEnrichment(scenario.Enrich),
	)
	h.service = engine.NewService(profile.StringLoader{}, profile.JSONParser{}, validator, ingestor)
	return h, nil
}

// record is the bus subscriber that builds the trace.
func (h *Harness) record(ctx context.Context, ev ir.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trace = append(h.trace, newTraceEvent(ev))
	return nil
}

// executeRun ingests one run. Rejected input is compared against the
// run's expect_error; any other failure aborts the scenario.
func (h *Harness) executeRun(ctx context.Context, index int, run IngestRun, result *Result) error {
	source := run.Source
	if source == "" {
		data, err := json.Marshal(run.Profiles)
		if err != nil {
			return fmt.Errorf("encode profiles: %w", err)
		}
		source = string(data)
	}

	researchers, err := h.service.Ingest(ctx, source, run.Fellows)

	outcome := RunOutcome{Index: index, Researchers: len(researchers)}
	var ie *engine.IngestError
	switch {
	case err == nil:
	case errors.As(err, &ie):
		outcome.ErrorCode = string(ie.Code)
	default:
		return err
	}
	result.Runs = append(result.Runs, outcome)

	switch {
	case run.ExpectError == "" && outcome.ErrorCode != "":
		result.AddError(fmt.Sprintf("runs[%d]: unexpected error: %v", index, err))
	case run.ExpectError != "" && outcome.ErrorCode == "":
		result.AddError(fmt.Sprintf("runs[%d]: expected error %s, got none", index, run.ExpectError))
	case run.ExpectError != outcome.ErrorCode:
		result.AddError(fmt.Sprintf("runs[%d]: expected error %s, got %s", index, run.ExpectError, outcome.ErrorCode))
	}

	h.logger.Info("run completed",
		"run", index,
		"researchers", outcome.Researchers,
		"error_code", outcome.ErrorCode,
	)
	return nil
}
