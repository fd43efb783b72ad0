package alias

import (
	"errors"
	"fmt"
)

// FailureError is a failure confined to a single run or index.
//
// Failures include:
//   - Protocol violation: the oracle emitted a query the codec cannot map
//   - Oracle failure: the oracle printed its failure marker
//   - Oracle exited: stdout closed before the module header
//   - Timeout: no line arrived within the read timeout
//   - Compile failure: the backend produced no artifact
//   - Measurement failure: the size tool reported diagnostics
//
// None of these stop a batch. The prober turns them into report records.
type FailureError struct {
	// Code identifies the failure category.
	Code FailureCode

	// Message is a human-readable description.
	Message string

	// Index is the substitution index, or -1 for baseline work.
	Index int

	// Line is the offending oracle line, when there is one.
	Line string

	// Err is the underlying cause, if any.
	Err error
}

// FailureCode categorizes failures.
type FailureCode string

const (
	// ErrCodeProtocolViolation indicates an unrecognized or malformed query.
	ErrCodeProtocolViolation FailureCode = "PROTOCOL_VIOLATION"

	// ErrCodeOracleFailure indicates the oracle printed its failure marker.
	ErrCodeOracleFailure FailureCode = "ORACLE_FAILURE"

	// ErrCodeOracleExited indicates output ended before the module header.
	ErrCodeOracleExited FailureCode = "ORACLE_EXITED"

	// ErrCodeTimeout indicates a read or tool invocation exceeded its limit.
	ErrCodeTimeout FailureCode = "TIMEOUT"

	// ErrCodeCompileFailure indicates the backend did not produce an artifact.
	ErrCodeCompileFailure FailureCode = "COMPILE_FAILURE"

	// ErrCodeMeasurementFailure indicates the size tool could not be read.
	ErrCodeMeasurementFailure FailureCode = "MEASUREMENT_FAILURE"
)

// Error implements the error interface.
func (e *FailureError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s (index=%d)", msg, e.Index)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

// WithIndex returns a copy of e attributed to index.
func (e *FailureError) WithIndex(index int) *FailureError {
	c := *e
	c.Index = index
	return &c
}

// NewProtocolViolation creates a PROTOCOL_VIOLATION failure.
func NewProtocolViolation(message string) *FailureError {
	return &FailureError{Code: ErrCodeProtocolViolation, Message: message, Index: -1}
}

// NewOracleFailure creates an ORACLE_FAILURE for the given marker line.
func NewOracleFailure(line string) *FailureError {
	return &FailureError{
		Code:    ErrCodeOracleFailure,
		Message: "oracle reported failure",
		Index:   -1,
		Line:    line,
	}
}

// NewTimeout creates a TIMEOUT failure.
func NewTimeout(message string) *FailureError {
	return &FailureError{Code: ErrCodeTimeout, Message: message, Index: -1}
}

// NewFailure creates a failure with an underlying cause.
func NewFailure(code FailureCode, index int, message string, err error) *FailureError {
	return &FailureError{Code: code, Message: message, Index: index, Err: err}
}

// CodeOf returns the failure code of err, or "" if err is not a FailureError.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) FailureCode {
	var fe *FailureError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsProtocolViolation returns true if err is a protocol violation.
func IsProtocolViolation(err error) bool {
	return CodeOf(err) == ErrCodeProtocolViolation
}

// IsOracleFailure returns true if the oracle signalled failure.
func IsOracleFailure(err error) bool {
	return CodeOf(err) == ErrCodeOracleFailure
}

// IsTimeout returns true if err is a timeout failure.
func IsTimeout(err error) bool {
	return CodeOf(err) == ErrCodeTimeout
}
