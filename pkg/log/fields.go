package log

// Field keys shared across packages so that log lines stay greppable.
const (
	FieldKeyRun      = "run"
	FieldKeyArtifact = "artifact"
	FieldKeySource   = "source"
	FieldKeyAttempt  = "attempt"
)
