package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/roach88/aliasprobe/internal/alias"
	"github.com/roach88/aliasprobe/internal/config"
)

// Oracle is the optimizer whose alias queries are answered by the harness.
//
// The oracle has no seek or rewind primitive: it cannot resume a query
// stream from a checkpoint or restart it in place. Every Replay therefore
// runs the whole stream from the first query in a fresh process, and
// substituting M decisions costs M full replays.
type Oracle interface {
	// Replay runs the oracle once under plan, writing the resulting module to
	// sink, and returns the queries it answered.
	Replay(ctx context.Context, plan alias.SubstitutionPlan, sink io.Writer) (*alias.DecisionStream, error)
}

// ProcessOracle runs the configured oracle command against one module.
type ProcessOracle struct {
	tool         config.Tool
	module       string
	markers      Markers
	queryTimeout time.Duration
	logger       *slog.Logger
}

// NewProcessOracle creates an oracle over module using cfg's oracle command,
// markers, and query timeout.
func NewProcessOracle(cfg *config.Config, module string, logger *slog.Logger) (*ProcessOracle, error) {
	timeout, err := cfg.QueryTimeoutDuration()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ProcessOracle{
		tool:         cfg.Oracle,
		module:       module,
		markers:      Markers{ModuleHeader: cfg.ModuleHeader, Failure: cfg.FailureMarker},
		queryTimeout: timeout,
		logger:       logger,
	}, nil
}

// Replay starts a fresh oracle process and drives it to completion.
// The process and its pipes never outlive the call.
func (o *ProcessOracle) Replay(ctx context.Context, plan alias.SubstitutionPlan, sink io.Writer) (*alias.DecisionStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := o.tool.Command(map[string]string{config.PlaceholderInput: o.module})
	cmd := exec.CommandContext(ctx, o.tool.Path, args...)
	cmd.WaitDelay = 2 * time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("oracle stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("oracle stdout: %w", err)
	}
	stderr := &tailBuffer{max: 16 * 1024}
	cmd.Stderr = stderr

	o.logger.Debug("starting oracle", "path", o.tool.Path, "args", args, "target", plan.Target)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start oracle: %w", err)
	}

	tr := NewLineTransport(stdout, stdin, o.queryTimeout)
	ch := New(tr, o.markers, plan, o.logger)
	stream, runErr := ch.Run(ctx, sink)

	_ = stdin.Close()
	if runErr != nil {
		_ = cmd.Process.Kill()
	}
	waitErr := cmd.Wait()
	_ = tr.Close()

	if runErr != nil {
		return stream, withStderr(runErr, stderr.String())
	}
	if waitErr != nil {
		return stream, &alias.FailureError{
			Code:    alias.ErrCodeOracleFailure,
			Message: "oracle exited abnormally after streaming module",
			Index:   -1,
			Err:     withStderr(waitErr, stderr.String()),
		}
	}
	return stream, nil
}

func withStderr(err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return err
	}
	return fmt.Errorf("%w (stderr: %s)", err, stderr)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
