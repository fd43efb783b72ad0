package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/aliasprobe/internal/alias"
)

// OutputFormatter writes command results either as a JSON envelope or as
// human-readable text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failed command. Code is a failure code such as
// PROTOCOL_VIOLATION, or ERROR when the cause carries none.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (f *OutputFormatter) isJSON() bool { return f.Format == "json" }

func (f *OutputFormatter) encode(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}

// Success writes data. Text mode prints it with %v.
func (f *OutputFormatter) Success(data any) error {
	if f.isJSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintf(f.Writer, "%v\n", data)
	return err
}

// Emit writes data as JSON, or lets text render it.
func (f *OutputFormatter) Emit(data any, text func(w io.Writer) error) error {
	if f.isJSON() {
		return f.Success(data)
	}
	return text(f.Writer)
}

// Error writes a coded error. Details are shown in text mode only with
// --verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.isJSON() {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	if _, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message); err != nil {
		return err
	}
	if f.Verbose && details != nil {
		_, err := fmt.Fprintf(f.Writer, "Details: %v\n", details)
		return err
	}
	return nil
}

// Failure writes err under its failure code. The offending oracle line, if
// recorded, goes into the details.
func (f *OutputFormatter) Failure(err error) error {
	code := string(alias.CodeOf(err))
	if code == "" {
		code = "ERROR"
	}
	var details any
	var fe *alias.FailureError
	if errors.As(err, &fe) && fe.Line != "" {
		details = map[string]string{"line": fe.Line}
	}
	return f.Error(code, err.Error(), details)
}

// VerboseLog prints a diagnostic line when --verbose is set. It never
// touches Writer, so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

// GetErrWriter returns ErrWriter, or Writer when unset.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
