package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/scholar/internal/config"
	"github.com/roach88/scholar/internal/engine"
	"github.com/roach88/scholar/internal/profile"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Fellows bool
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Profiles []profile.Profile `json:"profiles"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <source>",
		Short: "Validate profiles without ingesting",
		Long: `Load, parse and validate a profile source without touching the event log.

Reports every schema violation in the batch. Faster than ingest for
checking a hand-edited file.

Examples:
  scholar validate ./researchers.json
  scholar validate --fellows s3://bucket/fellows.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Fellows, "fellows", false, "require every profile to be a fellow with a cohort")

	return cmd
}

func runValidate(opts *ValidateOptions, source string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := resolveConfig(opts.RootOptions, cmd, nil)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err, nil)
	}
	if cmd.Flags().Changed("fellows") {
		cfg.Ingest.Fellows = opts.Fellows
	}

	profiles, err := validateSource(cmd, cfg, source)
	if err != nil {
		return profileFailure(formatter, ErrCodeSourceLoad, err)
	}
	formatter.VerboseLog("Validated %d profile(s) from %s", len(profiles), source)

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Profiles: profiles})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d profile(s) valid\n", len(profiles))
	return nil
}

// validateSource runs load, parse and validate only. The service gets no
// ingestor because Profiles never reaches it.
func validateSource(cmd *cobra.Command, cfg config.Config, source string) ([]profile.Profile, error) {
	ctx := cmd.Context()
	loader, err := newLoader(ctx, cfg.S3, source)
	if err != nil {
		return nil, err
	}
	validator, err := profile.NewValidator()
	if err != nil {
		return nil, err
	}
	svc := engine.NewService(loader, profile.JSONParser{}, validator, nil)
	return svc.Profiles(ctx, source, cfg.Ingest.Fellows)
}
