package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/scholar/internal/engine"
	"github.com/roach88/scholar/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s #%d %s %s=%s\n", i+1, event.AggregateID, event.Sequence, event.Type, event.Field, event.Value)
		}
	}

	return buf.String()
}

func assertResearcherCount(result *Result, a Assertion) error {
	if got := len(result.Researchers); got != a.Count {
		return &AssertionError{
			Type:     AssertResearcherCount,
			Expected: fmt.Sprintf("%d researcher(s)", a.Count),
			Actual:   fmt.Sprintf("%d researcher(s): %v", got, researcherIDs(result)),
		}
	}
	return nil
}

func assertResearcherIDs(result *Result, a Assertion) error {
	got := researcherIDs(result)
	if !slices.Equal(got, a.IDs) {
		return &AssertionError{
			Type:     AssertResearcherIDs,
			Expected: fmt.Sprintf("%v", a.IDs),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

func assertFieldValues(result *Result, a Assertion) error {
	r, ok := result.Researcher(a.Researcher)
	if !ok {
		return &AssertionError{
			Type:     AssertFieldValues,
			Expected: fmt.Sprintf("researcher %s", a.Researcher),
			Actual:   fmt.Sprintf("not found; researchers: %v", researcherIDs(result)),
		}
	}
	got := r.State.Values(ir.Field(a.Field))
	if len(got) == 0 && len(a.Values) == 0 {
		return nil
	}
	if !slices.Equal(got, a.Values) {
		return &AssertionError{
			Type:     AssertFieldValues,
			Expected: fmt.Sprintf("%s.%s = %v", a.Researcher, a.Field, a.Values),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertEventCount(result *Result, a Assertion) error {
	got := len(result.Events)
	scope := "log"
	if a.Researcher != "" {
		got = len(result.EventsFor(a.Researcher))
		scope = a.Researcher
	}
	if got != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d event(s) in %s", a.Count, scope),
			Actual:   fmt.Sprintf("%d event(s)", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertEventOrder(result *Result, a Assertion) error {
	events := result.EventsFor(a.Researcher)
	got := make([]string, len(events))
	for i, ev := range events {
		got[i] = string(ev.Type)
	}
	if !slices.Equal(got, a.Events) {
		return &AssertionError{
			Type:     AssertEventOrder,
			Expected: fmt.Sprintf("%s: %v", a.Researcher, a.Events),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertReplayEquivalent loads every aggregate from its own history and
// compares it with the projection over the whole log.
func assertReplayEquivalent(result *Result) error {
	for _, r := range result.Researchers {
		agg := engine.NewAggregate(r.ID)
		agg.Load(result.EventsFor(r.ID))

		got, err := ir.MarshalCanonical(agg.State().CanonicalMap())
		if err != nil {
			return err
		}
		want, err := ir.MarshalCanonical(r.State.CanonicalMap())
		if err != nil {
			return err
		}
		if string(got) != string(want) {
			return &AssertionError{
				Type:     AssertReplayEquivalent,
				Expected: fmt.Sprintf("%s replays to %s", r.ID, want),
				Actual:   string(got),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

func researcherIDs(result *Result) []string {
	ids := make([]string, len(result.Researchers))
	for i, r := range result.Researchers {
		ids[i] = r.ID
	}
	return ids
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertResearcherCount:
			err = assertResearcherCount(result, assertion)
		case AssertResearcherIDs:
			err = assertResearcherIDs(result, assertion)
		case AssertFieldValues:
			err = assertFieldValues(result, assertion)
		case AssertEventCount:
			err = assertEventCount(result, assertion)
		case AssertEventOrder:
			err = assertEventOrder(result, assertion)
		case AssertReplayEquivalent:
			err = assertReplayEquivalent(result)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
