// Package harness runs researcher ingestion scenarios as executable
// regression tests.
//
// A scenario ingests one or more batches of profiles through the full
// load, parse, validate and ingest path against a fresh in-memory event
// store, then asserts on the published events and the replayed researcher
// state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	batch_token: batch-1          # optional, fixed for golden comparison
//	enrich: false                 # optional, record image/website/DOIs
//	runs:
//	  - profiles:
//	      - metaName: Alice Smith
//	        cohort: "2"
//	        idGithub: [alicedev]
//	  - source: '{"not": "an array"}'
//	    expect_error: CONFIG_NOT_ARRAY
//	assertions:
//	  - type: researcher_ids
//	    ids: [2-alice-smith]
//	  - type: field_values
//	    researcher: 2-alice-smith
//	    field: metaName
//	    values: [Alice Smith]
//
// Each run is one ingestion batch. A run gives either structured profiles
// or a raw JSON source; expect_error names the ingestion error code the
// run must fail with.
//
// # Assertion Types
//
//   - researcher_count: number of researchers after every run
//   - researcher_ids: researcher ids in creation order
//   - field_values: every value of one field of one researcher, in order
//   - event_count: events for one researcher, or the whole log
//   - event_order: event types for one researcher, in sequence order
//   - replay_equivalent: each aggregate replayed alone equals the projection
//
// # Deterministic Testing
//
// Every scenario runs with testutil.DeterministicClock and a fixed batch
// token, and event ids are content-addressed, so identical scenarios yield
// identical logs. RunWithGolden compares the trace and final state against
// testdata/golden/{name}.golden.
package harness
