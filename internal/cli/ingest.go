package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/scholar/internal/config"
	"github.com/roach88/scholar/internal/engine"
	"github.com/roach88/scholar/internal/ir"
	"github.com/roach88/scholar/internal/metrics"
	"github.com/roach88/scholar/internal/profile"
	"github.com/roach88/scholar/internal/telemetry"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	storeFlags
	Fellows    bool
	Enrich     bool
	MetricsOut string

	// BatchGenerator overrides the batch token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	BatchGenerator engine.BatchGenerator

	// Clock overrides event timestamps (for testing).
	Clock engine.Clock
}

// IngestResult is the payload of a successful ingest.
type IngestResult struct {
	Profiles    int             `json:"profiles"`
	Researchers []ir.Researcher `json:"researchers"`
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <source>",
		Short: "Ingest a batch of researcher profiles",
		Long: `Ingest a JSON array of researcher profiles into the event log.

Each profile is matched against known researchers by GitHub handle,
Semantic Scholar id and ORCID. Unmatched profiles become new researchers
with an id derived from cohort and name. The source is a local file or an
s3://bucket/key URL.

Exit codes:
  0 - Batch ingested
  1 - A profile was rejected (not an array, invalid, no identifiers)
  2 - Command error (bad config, store unavailable, etc.)

Examples:
  scholar ingest --db ./scholar.db ./researchers.json
  scholar ingest --fellows --enrich ./fellows.json
  scholar ingest --driver postgres --dsn postgres://localhost/scholar s3://bucket/fellows.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args[0], cmd)
		},
	}

	opts.storeFlags.register(cmd.Flags())
	cmd.Flags().BoolVar(&opts.Fellows, "fellows", false, "mark every profile as a fellow (requires cohort)")
	cmd.Flags().BoolVar(&opts.Enrich, "enrich", false, "also record image, website and publication links")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics to this file after the run")

	return cmd
}

func runIngest(opts *IngestOptions, source string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := resolveConfig(opts.RootOptions, cmd, &opts.storeFlags)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err, nil)
	}
	flags := cmd.Flags()
	if flags.Changed("fellows") {
		cfg.Ingest.Fellows = opts.Fellows
	}
	if flags.Changed("enrich") {
		cfg.Ingest.Enrich = opts.Enrich
	}
	if flags.Changed("metrics-out") {
		cfg.Metrics.Out = opts.MetricsOut
	}

	logger := cfg.Log.NewLogger(cmd.ErrOrStderr())

	shutdown, err := telemetry.Setup(ctx, cfg.Trace.Endpoint)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, fmt.Errorf("configure tracing: %w", err), nil)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()

	eventLog, err := openLog(ctx, cfg.Store)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreOpen, err, storeDetails(cfg.Store))
	}
	defer eventLog.Close()

	pipe, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRelay, err, nil)
	}
	defer pipe.Close()

	loader, err := newLoader(ctx, cfg.S3, source)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSourceLoad, err, nil)
	}
	validator, err := profile.NewValidator()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err, nil)
	}

	ingestOpts := []engine.IngestorOption{
		engine.WithLogger(logger),
		engine.WithEnrichment(cfg.Ingest.Enrich),
	}
	if opts.BatchGenerator != nil {
		ingestOpts = append(ingestOpts, engine.WithBatchGenerator(opts.BatchGenerator))
	}
	if opts.Clock != nil {
		ingestOpts = append(ingestOpts, engine.WithClock(opts.Clock))
	}
	ingestor := engine.NewIngestor(eventLog, pipe.bus, ingestOpts...)
	svc := engine.NewService(loader, profile.JSONParser{}, validator, ingestor)

	profiles, err := svc.Profiles(ctx, source, cfg.Ingest.Fellows)
	if err != nil {
		return profileFailure(formatter, ErrCodeSourceLoad, err)
	}
	formatter.VerboseLog("Loaded %d profile(s) from %s", len(profiles), source)

	researchers, err := ingestor.IngestProfiles(ctx, profiles)
	if err != nil {
		return profileFailure(formatter, ErrCodeIngest, err)
	}

	if cfg.Metrics.Out != "" {
		if err := metrics.WriteFile(cfg.Metrics.Out, pipe.registry); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err, nil)
		}
		formatter.VerboseLog("Wrote metrics to %s", cfg.Metrics.Out)
	} else if cfg.Metrics.Enabled {
		if err := metrics.LogSummary(logger, pipe.registry); err != nil {
			logger.Warn("metrics summary failed", "error", err)
		}
	}

	result := IngestResult{Profiles: len(profiles), Researchers: researchers}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Ingested %d profile(s) into %d researcher(s)\n", result.Profiles, len(result.Researchers))
	for _, r := range researchers {
		fmt.Fprintln(formatter.Writer)
		writeResearcher(formatter.Writer, r)
	}
	return nil
}

// profileFailure maps rejected input to E1xx codes. Any other error is a
// command error reported under fallback.
func profileFailure(formatter *OutputFormatter, fallback string, err error) error {
	var ie *engine.IngestError
	if !errors.As(err, &ie) {
		return formatter.Fail(ExitCommandError, fallback, err, nil)
	}

	switch ie.Code {
	case engine.ErrCodeConfigNotArray:
		return formatter.Fail(ExitFailure, ErrCodeNotArray, err, nil)
	case engine.ErrCodeNoIdentifier:
		return formatter.Fail(ExitFailure, ErrCodeNoIdentifier, err, map[string]string{"profile": ie.Profile})
	default:
		var violations profile.ValidationErrors
		var details []string
		if errors.As(err, &violations) {
			for _, v := range violations {
				details = append(details, v.Error())
			}
		}
		return formatter.Fail(ExitFailure, ErrCodeInvalid, err, details)
	}
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

func storeDetails(cfg config.StoreConfig) map[string]string {
	d := map[string]string{"driver": cfg.Driver}
	if cfg.Driver == config.DriverSQLite {
		d["path"] = cfg.Path
	}
	return d
}

// writeResearcher prints one researcher with its non-empty fields.
func writeResearcher(w io.Writer, r ir.Researcher) {
	fmt.Fprintf(w, "%s\n", r.ID)
	for _, f := range ir.ResearcherFields {
		for _, v := range r.State.Values(f) {
			fmt.Fprintf(w, "  %s: %s\n", f, v)
		}
	}
}
