package ir

// Version constants for the rule document format and engine.
const (
	// DocumentVersion is the rule document schema version.
	DocumentVersion = "1"

	// EngineVersion is the blocktrigger engine version.
	EngineVersion = "0.1.0"
)
