package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/scholar/internal/ir"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	storeFlags
}

// EventsResult lists the stored history of one researcher.
type EventsResult struct {
	AggregateID string     `json:"aggregate_id"`
	Events      []ir.Event `json:"events"`
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events <aggregate-id>",
		Short: "List the stored events of a researcher",
		Long: `List every event stored for one researcher, in append order.

Examples:
  scholar events --db ./scholar.db 2-alice-smith
  scholar events --db ./scholar.db 2-alice-smith --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, args[0], cmd)
		},
	}

	opts.storeFlags.register(cmd.Flags())

	return cmd
}

func runEvents(opts *EventsOptions, id string, cmd *cobra.Command) error {
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

	events, err := eventLog.ByAggregateID(ctx, id)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err, nil)
	}
	if len(events) == 0 {
		return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Errorf("no events for aggregate %q", id), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(EventsResult{AggregateID: id, Events: events})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s: %d event(s)\n", id, len(events))
	for _, ev := range events {
		fmt.Fprintf(w, "  #%d %s %s\n", ev.Metadata.Sequence, ev.Type, describePayload(ev.Payload))
		if opts.Verbose {
			fmt.Fprintf(w, "     id=%s batch=%s at=%s\n", ev.ID, ev.Metadata.Batch, ev.Metadata.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
		}
	}
	return nil
}

// describePayload renders a payload as one short line.
func describePayload(p ir.Payload) string {
	switch v := p.(type) {
	case ir.FoundPayload:
		return v.Identifier.String()
	case ir.DetailAddedPayload:
		return fmt.Sprintf("%s=%s", v.Update.Type, v.Update.Value)
	case ir.PublicationLinkedPayload:
		return v.Target.String()
	case ir.IdentifierMergedPayload:
		return fmt.Sprintf("into %s (%d identifier(s))", v.TargetID, len(v.MergedIdentifiers))
	default:
		return ""
	}
}
