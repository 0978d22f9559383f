package cosmos

import "fmt"

// ValidationError marks a schema violation in model output: valid JSON
// that fails the structural checks. It is never retried — retrying an
// ill-specified prompt is unlikely to self-correct.
type ValidationError struct {
	Stage  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Stage, e.Reason)
}

func validationErrf(stage, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}
