package domain

import "fmt"

// ValidationError reports a caller-fixable rule violation. The operation that
// produced it committed nothing.
type ValidationError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Value any    `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: field %s violates rule %s", e.Field, e.Rule)
}

// ValidationErrorFromResult converts the first blocking violation of a rule
// result into a ValidationError. The second return is false when the result
// has no blocking violations.
func ValidationErrorFromResult(res Result) (ValidationError, bool) {
	v, ok := res.FirstBlocking()
	if !ok {
		return ValidationError{}, false
	}
	return ValidationError{Field: v.Field, Rule: v.Rule, Value: v.Value}, true
}

// ConflictError reports an illegal state-machine transition or an optimistic
// concurrency version mismatch. Callers should re-fetch and retry.
type ConflictError struct {
	CurrentStatus SimulationStatus `json:"current_status,omitempty"`
	Attempted     string           `json:"attempted_operation"`
	VersionStale  bool             `json:"version_stale,omitempty"`
}

func (e ConflictError) Error() string {
	if e.VersionStale {
		return fmt.Sprintf("conflict: stale version on %s", e.Attempted)
	}
	return fmt.Sprintf("conflict: %s not allowed while %s", e.Attempted, e.CurrentStatus)
}

// NotFoundError reports an unknown (or unauthorized) simulation id.
type NotFoundError struct {
	ID string `json:"id"`
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("simulation %s not found", e.ID)
}

// InternalError wraps persistence failures and unexpected invariant breaches.
// It is surfaced opaquely and never exposes internals to the caller.
type InternalError struct {
	Op  string
	Err error
}

func (e InternalError) Error() string {
	return fmt.Sprintf("internal error during %s", e.Op)
}

// Unwrap exposes the wrapped cause for logging layers only.
func (e InternalError) Unwrap() error { return e.Err }
