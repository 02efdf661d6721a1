package testutil

// FixedBatchGenerator generates the same batch token every time.
//
// Unlike engine.FixedGenerator which returns tokens in sequence, this
// generator never runs out, so a test can ingest any number of batches.
//
// Thread-safety: FixedBatchGenerator is stateless and safe for concurrent use.
type FixedBatchGenerator struct {
	token string
}

// NewFixedBatchGenerator creates a new fixed batch token generator.
//
// The token is typically set in the scenario YAML:
//
//	batch_token: "test-batch-0001"
//
// If token is empty, Generate() returns "test-batch-default".
func NewFixedBatchGenerator(token string) *FixedBatchGenerator {
	if token == "" {
		token = "test-batch-default"
	}
	return &FixedBatchGenerator{token: token}
}

// Generate returns the fixed batch token.
//
// Implements engine.BatchGenerator.
func (g *FixedBatchGenerator) Generate() string {
	return g.token
}
