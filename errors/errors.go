// Package errors provides the error taxonomy shared by the ledger packages.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode represents the type of error that occurred
type ErrorCode string

const (
	ErrCodeValidation        ErrorCode = "VALIDATION"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeVersionConflict   ErrorCode = "VERSION_CONFLICT"
	ErrCodeCorruptStream     ErrorCode = "CORRUPT_STREAM"
	ErrCodeStorageIO         ErrorCode = "STORAGE_IO"
	ErrCodeProjection        ErrorCode = "PROJECTION"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
)

// Kind classifies an error by who is expected to act on it.
type Kind string

const (
	KindUser     Kind = "user"     // bad input or state, caller can fix and retry
	KindConflict Kind = "conflict" // concurrent writer, retry from a fresh read
	KindInternal Kind = "internal" // storage or data corruption
)

// Operation names the ledger operation that failed.
type Operation string

const (
	OpAppend    Operation = "append"
	OpRead      Operation = "read"
	OpRehydrate Operation = "rehydrate"
	OpDecide    Operation = "decide"
	OpPublish   Operation = "publish"
	OpProject   Operation = "project"
	OpRebuild   Operation = "rebuild"
	OpQuery     Operation = "query"
	OpClose     Operation = "close"
)

// LedgerError is the structured error carried through every layer.
type LedgerError struct {
	// Operation during which the error occurred
	Op Operation

	// Component that generated the error (e.g., "storage/sqlite", "bus")
	Component string

	// Underlying error
	Err error

	// Whether the operation can be retried
	Retryable bool

	// Error code for the error type
	Code ErrorCode

	// Kind groups codes by remediation
	Kind Kind

	// Metadata for additional context
	Metadata map[string]interface{}
}

func (e *LedgerError) Error() string {
	var msg string
	switch {
	case e.Op != "" && e.Component != "":
		msg = fmt.Sprintf("%s operation failed in %s component", e.Op, e.Component)
	case e.Op != "":
		msg = fmt.Sprintf("%s operation failed", e.Op)
	case e.Component != "":
		msg = fmt.Sprintf("%s failed", e.Component)
	default:
		msg = "ledger error"
	}

	if e.Code != "" {
		msg += fmt.Sprintf(" [%s]", e.Code)
	}

	if e.Err == nil {
		return msg
	}
	return msg + fmt.Sprintf(": %v", e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// Is matches another *LedgerError by code so errors.Is(err, &LedgerError{Code: c}) works.
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	if !ok {
		return false
	}
	return t.Code != "" && e.Code == t.Code
}

// VersionConflictError describes a failed optimistic concurrency check.
type VersionConflictError struct {
	Stream   string
	Expected int
	Actual   int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("stream %s: expected version %d but head is %d", e.Stream, e.Expected, e.Actual)
}

// NewValidationError creates a new validation-related LedgerError
func NewValidationError(op Operation, cause error) *LedgerError {
	return &LedgerError{
		Code: ErrCodeValidation,
		Kind: KindUser,
		Op:   op,
		Err:  cause,
	}
}

// NewInvalidTransition reports a command the aggregate rejects in its current status.
func NewInvalidTransition(op Operation, cause error) *LedgerError {
	return &LedgerError{
		Code: ErrCodeInvalidTransition,
		Kind: KindUser,
		Op:   op,
		Err:  cause,
	}
}

// NewVersionConflict creates a conflict error for stream carrying both versions.
func NewVersionConflict(op Operation, component, stream string, expected, actual int) *LedgerError {
	return &LedgerError{
		Code:      ErrCodeVersionConflict,
		Kind:      KindConflict,
		Op:        op,
		Component: component,
		Err:       &VersionConflictError{Stream: stream, Expected: expected, Actual: actual},
		Retryable: true,
		Metadata: map[string]interface{}{
			"stream":   stream,
			"expected": expected,
			"actual":   actual,
		},
	}
}

// NewCorruptStream reports a stream that cannot be folded into state.
func NewCorruptStream(op Operation, stream string, cause error) *LedgerError {
	return &LedgerError{
		Code:      ErrCodeCorruptStream,
		Kind:      KindInternal,
		Op:        op,
		Component: "aggregate",
		Err:       cause,
		Metadata:  map[string]interface{}{"stream": stream},
	}
}

// NewStorageError creates a new storage-related LedgerError
func NewStorageError(op Operation, component string, cause error) *LedgerError {
	return &LedgerError{
		Code:      ErrCodeStorageIO,
		Kind:      KindInternal,
		Op:        op,
		Component: component,
		Err:       cause,
	}
}

// NewProjectionError wraps a projector failure.
func NewProjectionError(projector string, cause error) *LedgerError {
	return &LedgerError{
		Code:      ErrCodeProjection,
		Kind:      KindInternal,
		Op:        OpProject,
		Component: projector,
		Err:       cause,
	}
}

// NewNotFound reports a missing aggregate or row.
func NewNotFound(op Operation, what string) *LedgerError {
	return &LedgerError{
		Code: ErrCodeNotFound,
		Kind: KindUser,
		Op:   op,
		Err:  fmt.Errorf("%s not found", what),
	}
}

// CodeOf returns the code of the outermost LedgerError in err's chain.
func CodeOf(err error) ErrorCode {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	for err != nil {
		var le *LedgerError
		if !errors.As(err, &le) {
			return false
		}
		if le.Code == code {
			return true
		}
		err = le.Err
	}
	return false
}

// IsRetryable checks if an error is a retryable LedgerError
func IsRetryable(err error) bool {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Retryable
	}
	return false
}

func IsValidation(err error) bool        { return hasCode(err, ErrCodeValidation) }
func IsInvalidTransition(err error) bool { return hasCode(err, ErrCodeInvalidTransition) }
func IsVersionConflict(err error) bool   { return hasCode(err, ErrCodeVersionConflict) }
func IsCorruptStream(err error) bool     { return hasCode(err, ErrCodeCorruptStream) }
func IsStorageIO(err error) bool         { return hasCode(err, ErrCodeStorageIO) }
func IsProjection(err error) bool        { return hasCode(err, ErrCodeProjection) }
func IsNotFound(err error) bool          { return hasCode(err, ErrCodeNotFound) }

// Conflict extracts the version details of a conflict error.
func Conflict(err error) (*VersionConflictError, bool) {
	var vc *VersionConflictError
	if errors.As(err, &vc) {
		return vc, true
	}
	return nil, false
}

// UserMessage renders err for a terminal user, including what to do next.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case IsVersionConflict(err):
		if vc, ok := Conflict(err); ok {
			return fmt.Sprintf("conflict: %s was modified concurrently (expected version %d, now %d); retry the command", vc.Stream, vc.Expected, vc.Actual)
		}
		return "conflict: the record was modified concurrently; retry the command"
	case IsValidation(err):
		return "invalid input: " + rootCause(err).Error()
	case IsInvalidTransition(err):
		return "not allowed: " + rootCause(err).Error()
	case IsNotFound(err):
		return rootCause(err).Error()
	case IsCorruptStream(err):
		return "event log is corrupt: " + rootCause(err).Error() + " (not retriable; inspect the log, then run `ledger rebuild`)"
	case IsStorageIO(err):
		return "storage failure: " + rootCause(err).Error() + " (not retriable; check the data directory, then run `ledger rebuild`)"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out: the operation did not finish in time; retry the command or raise the timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled: the operation was interrupted before it finished"
	default:
		return err.Error()
	}
}

func rootCause(err error) error {
	for {
		var le *LedgerError
		if !errors.As(err, &le) || le.Err == nil {
			return err
		}
		err = le.Err
	}
}
