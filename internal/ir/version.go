package ir

// Version constants for the program model and engine.
const (
	// IRVersion is the version of the term/formula model.
	IRVersion = "1"

	// EngineVersion is the litelog engine version. Recorded in the run log.
	EngineVersion = "0.1.0"
)
