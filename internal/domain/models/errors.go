package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrInsufficientData = errors.New("insufficient data")
	ErrConvergence      = errors.New("convergence error")
	ErrTimeout          = errors.New("timeout")
)

// ValidationError reports malformed or inconsistent input. Index and Date point
// at the offending record when there is one (Index is -1 otherwise).
type ValidationError struct {
	Index  int
	Date   time.Time
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 && !e.Date.IsZero() {
		return fmt.Sprintf("validation error: record %d (%s) %s: %s", e.Index, e.Date.Format(DateLayout), e.Field, e.Reason)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
	}
	return "validation error: " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError that is not tied to a record.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Index: -1, Field: field, Reason: reason}
}

// InsufficientDataError means the series is too short for the computation.
// Required is the minimum number of records the caller must supply.
type InsufficientDataError struct {
	Operation string
	Required  int
	Actual    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need at least %d records, got %d", e.Operation, e.Required, e.Actual)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// ConvergenceError means a numerical fit could not produce a stable solution.
type ConvergenceError struct {
	Stage           string
	ConditionNumber float64
	Detail          string
}

func (e *ConvergenceError) Error() string {
	if e.ConditionNumber > 0 {
		return fmt.Sprintf("convergence error in %s: %s (condition number %.3g)", e.Stage, e.Detail, e.ConditionNumber)
	}
	return fmt.Sprintf("convergence error in %s: %s", e.Stage, e.Detail)
}

func (e *ConvergenceError) Is(target error) bool { return target == ErrConvergence }

// TimeoutError means an operation exceeded its time budget. No partial result
// accompanies it.
type TimeoutError struct {
	Operation string
	Elapsed   time.Duration
	Err       error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Elapsed.Round(time.Millisecond))
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.Err }
