package ir

// Version constants for the event schema and engine.
const (
	// SchemaVersion is the event envelope schema version.
	SchemaVersion = "1"

	// EngineVersion is the scholar engine version.
	EngineVersion = "0.1.0"
)
