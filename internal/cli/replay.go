package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/scholar/internal/engine"
	"github.com/roach88/scholar/internal/ir"
	"github.com/roach88/scholar/internal/store"
)

var errAggregateNotFound = errors.New("aggregate not found")

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	storeFlags
	AggregateID string // optional - specific researcher only
}

// ReplayAggregateResult holds the replay result for a single researcher.
type ReplayAggregateResult struct {
	AggregateID string `json:"aggregate_id"`
	Events      int    `json:"events"`
	Version     int64  `json:"version"`
	Monotonic   bool   `json:"monotonic"`
	Equivalent  bool   `json:"equivalent"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Aggregates      []ReplayAggregateResult `json:"aggregates"`
	TotalAggregates int                     `json:"total_aggregates"`
	TotalEvents     int                     `json:"total_events"`
	AllEquivalent   bool                    `json:"all_equivalent"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the event log and verify rebuilt state",
		Long: `Replay the event log and verify that every researcher rebuilds to the
same state whether replayed alone or as part of the whole log.

Each aggregate is loaded from its own history and compared against a
projection built from every event in append order. Sequences within each
aggregate must be strictly increasing.

Exit codes:
  0 - Every researcher replays to the same state
  1 - Divergence detected
  2 - Command error (database not found, etc.)

Examples:
  scholar replay --db ./scholar.db
  scholar replay --db ./scholar.db --aggregate 2-alice-smith
  scholar replay --db ./scholar.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	opts.storeFlags.register(cmd.Flags())
	cmd.Flags().StringVar(&opts.AggregateID, "aggregate", "", "replay specific researcher only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := resolveConfig(opts.RootOptions, cmd, &opts.storeFlags)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err, nil)
	}

	eventLog, err := openLog(ctx, cfg.Store)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreOpen, err, storeDetails(cfg.Store))
	}
	defer eventLog.Close()

	result, err := replayLog(ctx, eventLog, opts.AggregateID)
	if errors.Is(err, errAggregateNotFound) {
		return formatter.Fail(ExitFailure, ErrCodeNotFound, err, nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err, nil)
	}

	if formatter.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// replayLog rebuilds every aggregate (or only id) and checks it against a
// projection over the whole log.
func replayLog(ctx context.Context, eventLog store.Log, id string) (ReplayResult, error) {
	all, err := eventLog.All(ctx)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("read log: %w", err)
	}
	projection := engine.NewProjection()
	for _, ev := range all {
		projection.Apply(ev)
	}
	projected := projection.State()

	var ids []string
	if id != "" {
		ids = []string{id}
	} else {
		ids, err = eventLog.AggregateIDs(ctx)
		if err != nil {
			return ReplayResult{}, fmt.Errorf("list aggregates: %w", err)
		}
	}

	result := ReplayResult{
		Aggregates:    make([]ReplayAggregateResult, 0, len(ids)),
		AllEquivalent: true,
	}
	for _, aggID := range ids {
		events, err := eventLog.ByAggregateID(ctx, aggID)
		if err != nil {
			return ReplayResult{}, fmt.Errorf("read %s: %w", aggID, err)
		}
		if id != "" && len(events) == 0 {
			return ReplayResult{}, fmt.Errorf("%w: %s", errAggregateNotFound, id)
		}

		agg := engine.NewAggregate(aggID)
		agg.Load(events)

		want, ok := projected[aggID]
		r := ReplayAggregateResult{
			AggregateID: aggID,
			Events:      len(events),
			Version:     agg.Version(),
			Monotonic:   sequencesIncrease(events),
			Equivalent:  ok && sameState(agg.State(), want),
		}
		if !r.Monotonic || !r.Equivalent {
			result.AllEquivalent = false
		}
		result.TotalEvents += r.Events
		result.Aggregates = append(result.Aggregates, r)
	}
	result.TotalAggregates = len(result.Aggregates)
	return result, nil
}

func sequencesIncrease(events []ir.Event) bool {
	for i := 1; i < len(events); i++ {
		if events[i].Metadata.Sequence <= events[i-1].Metadata.Sequence {
			return false
		}
	}
	return true
}

// sameState compares builders by their canonical encoding.
func sameState(a, b ir.Builder) bool {
	ca, err := ir.MarshalCanonical(a.CanonicalMap())
	if err != nil {
		return false
	}
	cb, err := ir.MarshalCanonical(b.CanonicalMap())
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllEquivalent {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDivergence,
			Message: "replay verification failed",
		}
	}

	if err := formatter.encode(response); err != nil {
		return err
	}

	if !result.AllEquivalent {
		return NewExitError(ExitFailure, "replay verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	if result.TotalAggregates == 0 {
		fmt.Fprintln(w, "No researchers found in event log.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d researcher(s), %d event(s)\n", result.TotalAggregates, result.TotalEvents)
	fmt.Fprintln(w)

	for _, agg := range result.Aggregates {
		status := "✓"
		if !agg.Equivalent || !agg.Monotonic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s %s\n", status, agg.AggregateID)
		if formatter.Verbose {
			fmt.Fprintf(w, "  Events: %d\n", agg.Events)
			fmt.Fprintf(w, "  Version: %d\n", agg.Version)
		}
		if !agg.Monotonic {
			fmt.Fprintln(w, "  Warning: sequences are not strictly increasing!")
		}
		if !agg.Equivalent {
			fmt.Fprintln(w, "  Warning: aggregate state differs from projection!")
		}
	}
	fmt.Fprintln(w)

	if result.AllEquivalent {
		fmt.Fprintln(w, "✓ All researchers replay to the same state")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay verification failed")
	return NewExitError(ExitFailure, "replay verification failed")
}
