package cli

import "errors"

// Process exit statuses.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // baseline failed, an index failed, or a divergence under --fail-on-divergence
	ExitCommandError = 2 // bad flags, unreadable config, missing input
)

// ExitError carries the status main should exit with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError whose cause stays reachable through
// errors.As, so failure codes survive to the output formatter.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process status. Every command wraps its own
// errors in an ExitError, so anything else was raised by cobra while
// parsing flags or arguments and is a command error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}
