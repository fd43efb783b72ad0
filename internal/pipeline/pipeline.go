// Package pipeline wraps the external tools around the oracle: the front-end
// that emits the input module, the backend that compiles a module to a
// native artifact, and the size tool that measures it.
//
// Every invocation is bounded by the configured tool timeout. Failures come
// back as *alias.FailureError values tagged with the index being built, so a
// broken index never stops the rest of a batch.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/roach88/aliasprobe/internal/alias"
	"github.com/roach88/aliasprobe/internal/config"
)

// Pipeline runs the front-end, backend, and size tool.
type Pipeline struct {
	cfg     *config.Config
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a pipeline over cfg. A nil logger discards output.
func New(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	timeout, err := cfg.ToolTimeoutDuration()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{cfg: cfg, timeout: timeout, logger: logger}, nil
}

// toolResult captures one finished tool invocation.
type toolResult struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
	Killed   bool
}

// run executes tool with vars expanded and waits for it.
// A cancelled ctx is returned as ctx's error, unclassified, so callers can
// tell an interrupted tool from a failed one.
func (p *Pipeline) run(ctx context.Context, tool config.Tool, vars map[string]string) (*toolResult, error) {
	tctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := tool.Command(vars)
	cmd := exec.CommandContext(tctx, tool.Path, args...)
	cmd.WaitDelay = 2 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := &toolResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	p.logger.Debug("tool finished",
		"path", tool.Path,
		"args", args,
		"duration", res.Duration,
		"error", err,
	)

	if err != nil && ctx.Err() != nil {
		res.Killed = true
		return res, fmt.Errorf("%s: %w", tool.Path, ctx.Err())
	}
	if err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		res.Killed = true
		return res, alias.NewTimeout(fmt.Sprintf("%s killed after %s", tool.Path, p.timeout))
	}
	if err != nil {
		if msg := strings.TrimSpace(res.Stderr); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return res, err
	}
	return res, nil
}

// EmitModule runs the front-end on a C source file, writing the textual
// module to out.
func (p *Pipeline) EmitModule(ctx context.Context, source, out string) error {
	_, err := p.run(ctx, p.cfg.Frontend, map[string]string{
		config.PlaceholderInput:   source,
		config.PlaceholderOutput:  out,
		config.PlaceholderInclude: p.cfg.IncludeDir,
	})
	if err != nil {
		return fmt.Errorf("emit module from %s: %w", source, err)
	}
	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("emit module from %s: front-end wrote no output: %w", source, err)
	}
	return nil
}

// Compile builds module into a native artifact at out. index tags any
// failure; use -1 for the baseline.
func (p *Pipeline) Compile(ctx context.Context, module, out string, index int) (alias.CompiledArtifact, error) {
	art := alias.CompiledArtifact{Index: index, Path: out}

	// A stale artifact from an earlier run must not pass for a fresh one.
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return art, alias.NewFailure(alias.ErrCodeCompileFailure, index, "remove stale artifact", err)
	}

	_, err := p.run(ctx, p.cfg.Backend, map[string]string{
		config.PlaceholderInput:  module,
		config.PlaceholderOutput: out,
	})
	if err != nil {
		if ctx.Err() != nil {
			return art, err
		}
		if alias.IsTimeout(err) {
			var fe *alias.FailureError
			errors.As(err, &fe)
			return art, fe.WithIndex(index)
		}
		return art, alias.NewFailure(alias.ErrCodeCompileFailure, index, "backend failed", err)
	}
	if _, err := os.Stat(out); err != nil {
		return art, alias.NewFailure(alias.ErrCodeCompileFailure, index, "backend produced no artifact", err)
	}

	art.OK = true
	return art, nil
}

// MeasureSize runs the size tool on artifact and returns its code size.
// Any diagnostic output counts as failure, whatever the report says.
func (p *Pipeline) MeasureSize(ctx context.Context, artifact string, index int) (int64, error) {
	res, err := p.run(ctx, p.cfg.SizeTool, map[string]string{
		config.PlaceholderInput: artifact,
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, err
		}
		if alias.IsTimeout(err) {
			var fe *alias.FailureError
			errors.As(err, &fe)
			return 0, fe.WithIndex(index)
		}
		return 0, alias.NewFailure(alias.ErrCodeMeasurementFailure, index, "size tool failed", err)
	}
	if diag := strings.TrimSpace(res.Stderr); diag != "" {
		return 0, alias.NewFailure(alias.ErrCodeMeasurementFailure, index, "size tool reported diagnostics", errors.New(diag))
	}

	size, err := ParseSizeReport(res.Stdout)
	if err != nil {
		return 0, alias.NewFailure(alias.ErrCodeMeasurementFailure, index, "unreadable size report", err)
	}
	return size, nil
}
