package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aliasprobe/internal/alias"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]int{"may_alias_count": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_Emit(t *testing.T) {
	text := func(w io.Writer) error {
		_, err := fmt.Fprintln(w, "Count is 3")
		return err
	}

	buf := &bytes.Buffer{}
	require.NoError(t, (&OutputFormatter{Format: "text", Writer: buf}).Emit(3, text))
	assert.Equal(t, "Count is 3\n", buf.String())

	buf.Reset()
	require.NoError(t, (&OutputFormatter{Format: "json", Writer: buf}).Emit(3, text))
	assert.JSONEq(t, `{"status":"ok","data":3}`, buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("TIMEOUT", "oracle went silent", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TIMEOUT", resp.Error.Code)
	assert.Equal(t, "oracle went silent", resp.Error.Message)
}

func TestOutputFormatter_FailureUsesCode(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	pv := alias.NewProtocolViolation(`unknown alias result "Maybe"`)
	pv.Line = "AA q3 Maybe: %a, %b"
	require.NoError(t, formatter.Failure(fmt.Errorf("baseline replay: %w", pv)))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PROTOCOL_VIOLATION", resp.Error.Code)
	assert.Equal(t, map[string]interface{}{"line": "AA q3 Maybe: %a, %b"}, resp.Error.Details)
}

func TestOutputFormatter_FailureWithoutCode(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Failure(errors.New("disk full")))
	assert.Equal(t, "Error [ERROR]: disk full\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error("COMPILE_FAILURE", "backend failed", map[string]string{"index": "4"}))
	assert.Contains(t, buf.String(), "Error [COMPILE_FAILURE]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    buf,
				ErrWriter: errBuf,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("probing %s", "input.ll")

			assert.Empty(t, buf.String())
			if tt.wantLog {
				assert.Contains(t, errBuf.String(), "probing input.ll")
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New(`unknown flag: --bogus`)))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "bad flag"))))

	wrapped := WrapExitError(ExitFailure, "baseline failed", alias.NewTimeout("no output"))
	assert.Equal(t, "baseline failed: TIMEOUT: no output", wrapped.Error())
	assert.True(t, alias.IsTimeout(wrapped))
}
