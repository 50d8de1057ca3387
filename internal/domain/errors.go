// Package domain defines the entities, enums, and error taxonomy shared by
// the cutting-stock optimization core.
package domain

import "errors"

// Code classifies an error into one of the taxonomy groups from the
// service's error handling design. Callers switch on Code rather than
// inspecting message text.
type Code string

const (
	// Validation
	CodeValidationError   Code = "VALIDATION_ERROR"
	CodeInvalidAlgorithm  Code = "INVALID_ALGORITHM"
	CodeAlgorithmMismatch Code = "ALGORITHM_MISMATCH"
	CodeInvalidRange      Code = "INVALID_RANGE"

	// Domain absence
	CodeNotFound         Code = "NOT_FOUND"
	CodeScenarioNotFound Code = "SCENARIO_NOT_FOUND"
	CodePlanNotFound     Code = "PLAN_NOT_FOUND"
	CodeJobNotFound      Code = "JOB_NOT_FOUND"
	CodeNoStock          Code = "NO_STOCK"

	// State
	CodeInvalidStatusTransition Code = "INVALID_STATUS_TRANSITION"
	CodeInvalidStatus           Code = "INVALID_STATUS"

	// Execution
	CodeOptimizationFailed Code = "OPTIMIZATION_FAILED"
	CodeCancelled          Code = "CANCELLED"
	CodeTimeout            Code = "TIMEOUT"
	CodeAlgorithmNotFound  Code = "ALGORITHM_NOT_FOUND"

	// Resilience
	CodeCircuitOpen         Code = "CIRCUIT_OPEN"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"

	// Persistence
	CodeConflict      Code = "CONFLICT"
	CodeInternalError Code = "INTERNAL_ERROR"
)

// Error is the machine-readable, human-readable error every operation
// boundary in the core returns instead of letting exceptions escape.
//
// Grounded on the teacher's typed-error pattern in
// runtime/agent/runtime/await_errors.go: a concrete struct carrying a
// stable classification plus Is/As/Unwrap support so callers can use the
// standard errors package instead of string matching.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// New builds an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error with the given code and message, preserving cause
// for errors.Unwrap/errors.Is chains.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error with the same Code, enabling
// errors.Is(err, domain.New(domain.CodeNotFound, "")) style classification.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// CodeOf extracts the Code from err, defaulting to CodeInternalError when
// err is not (or does not wrap) a *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternalError
}
