package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scholar/internal/ir"
)

// Scenario defines an ingestion scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// BatchToken is stamped on every event. Defaults to the testutil
	// default token.
	BatchToken string `yaml:"batch_token,omitempty"`

	// Enrich records image, website and publication links.
	Enrich bool `yaml:"enrich,omitempty"`

	// Runs are ingested in order against the same store.
	Runs []IngestRun `yaml:"runs"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// IngestRun is one ingestion batch.
type IngestRun struct {
	// Profiles are encoded as a JSON array and ingested.
	Profiles []map[string]any `yaml:"profiles,omitempty"`

	// Source is raw JSON text, used instead of Profiles to exercise
	// malformed input.
	Source string `yaml:"source,omitempty"`

	// Fellows marks every profile of the run as a fellow.
	Fellows bool `yaml:"fellows,omitempty"`

	// ExpectError is the ingestion error code the run must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Researcher is the aggregate id (field_values, event_count, event_order).
	// event_count counts the whole log when empty.
	Researcher string `yaml:"researcher,omitempty"`

	// Field is the researcher field (field_values).
	Field string `yaml:"field,omitempty"`

	// Values are the expected field values in order (field_values).
	Values []string `yaml:"values,omitempty"`

	// IDs are the expected researcher ids in creation order (researcher_ids).
	IDs []string `yaml:"ids,omitempty"`

	// Events are the expected event types in order (event_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected count (researcher_count, event_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertResearcherCount  = "researcher_count"
	AssertResearcherIDs    = "researcher_ids"
	AssertFieldValues      = "field_values"
	AssertEventCount       = "event_count"
	AssertEventOrder       = "event_order"
	AssertReplayEquivalent = "replay_equivalent"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, run := range s.Runs {
		if run.Profiles != nil && run.Source != "" {
			return fmt.Errorf("runs[%d]: profiles and source are mutually exclusive", i)
		}
		if run.Profiles == nil && run.Source == "" {
			return fmt.Errorf("runs[%d]: profiles or source is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertResearcherCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for researcher_count", index)
		}
	case AssertResearcherIDs:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids list is required for researcher_ids", index)
		}
	case AssertFieldValues:
		if a.Researcher == "" {
			return fmt.Errorf("assertions[%d]: researcher is required for field_values", index)
		}
		if _, err := ir.ParseField(a.Field); err != nil || !ir.Field(a.Field).IsResearcherField() {
			return fmt.Errorf("assertions[%d]: unknown researcher field %q", index, a.Field)
		}
	case AssertEventCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertEventOrder:
		if a.Researcher == "" {
			return fmt.Errorf("assertions[%d]: researcher is required for event_order", index)
		}
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertReplayEquivalent:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
