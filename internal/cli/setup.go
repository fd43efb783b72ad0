package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/aliasprobe/internal/alias"
	"github.com/roach88/aliasprobe/internal/channel"
	"github.com/roach88/aliasprobe/internal/config"
	"github.com/roach88/aliasprobe/internal/engine"
	"github.com/roach88/aliasprobe/internal/pipeline"
)

// configFlags are per-command overrides of config file values.
// Only flags the user actually set are applied.
type configFlags struct {
	WorkDir      string
	Workers      int
	Override     string
	QueryTimeout string
	ToolTimeout  string
	Database     string
}

func (f *configFlags) register(cmd *cobra.Command, workers, database bool) {
	cmd.Flags().StringVar(&f.WorkDir, "workdir", "", "directory for per-index modules and artifacts")
	cmd.Flags().StringVar(&f.Override, "override", "", "answer for the substituted query (0-3 or kind name)")
	cmd.Flags().StringVar(&f.QueryTimeout, "query-timeout", "", "limit on waiting for one oracle line (e.g. 60s)")
	cmd.Flags().StringVar(&f.ToolTimeout, "tool-timeout", "", "limit on one compile or size invocation (e.g. 5m)")
	if workers {
		cmd.Flags().IntVarP(&f.Workers, "workers", "j", 0, "concurrent substitutions")
	}
	if database {
		cmd.Flags().StringVar(&f.Database, "db", "", "path to SQLite run history")
	}
}

func (f *configFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("workdir") {
		cfg.WorkDir = f.WorkDir
	}
	if changed("workers") {
		cfg.Workers = f.Workers
	}
	if changed("override") {
		code, err := alias.ParseCode(f.Override)
		if err != nil {
			return fmt.Errorf("--override: %w", err)
		}
		cfg.Override = int(code)
	}
	if changed("query-timeout") {
		cfg.QueryTimeout = f.QueryTimeout
	}
	if changed("tool-timeout") {
		cfg.ToolTimeout = f.ToolTimeout
	}
	if changed("db") {
		cfg.Database = f.Database
	}
	return cfg.Validate()
}

// loadConfig reads the config file, if any, and applies flag overrides.
func (o *RootOptions) loadConfig(cmd *cobra.Command, flags *configFlags) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if flags != nil {
		if err := flags.apply(cmd, cfg); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
		}
	}
	return cfg, nil
}

// setupLogging installs a text slog handler on the command's stderr.
// --verbose switches the level to Debug.
func (o *RootOptions) setupLogging(cmd *cobra.Command) *slog.Logger {
	logLevel := slog.LevelInfo
	if o.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// fail reports err in JSON mode and returns it with an exit code. Text mode
// leaves printing to main.
func (o *RootOptions) fail(cmd *cobra.Command, code int, message string, err error) error {
	if o.Format == "json" {
		_ = o.formatter(cmd).Failure(fmt.Errorf("%s: %w", message, err))
	}
	return WrapExitError(code, message, err)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}

// prepareModule returns the module to probe. A C source is first turned
// into <workdir>/input.ll by the front-end.
func prepareModule(ctx context.Context, cfg *config.Config, pipe *pipeline.Pipeline, target string) (string, error) {
	if _, err := os.Stat(target); err != nil {
		return "", WrapExitError(ExitCommandError, "input not found", err)
	}
	if !strings.EqualFold(filepath.Ext(target), ".c") {
		return target, nil
	}

	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		return "", WrapExitError(ExitCommandError, "failed to create workdir", err)
	}
	module := filepath.Join(cfg.WorkDir, "input.ll")
	slog.Info("emitting module", "source", target, "module", module)
	if err := pipe.EmitModule(ctx, target, module); err != nil {
		return "", WrapExitError(ExitFailure, "front-end failed", err)
	}
	return module, nil
}

// newProber assembles the pipeline, oracle, and prober for target.
func (o *RootOptions) newProber(ctx context.Context, cfg *config.Config, target string, opts engine.Options) (*engine.Prober, *pipeline.Pipeline, error) {
	pipe, err := pipeline.New(cfg, opts.Logger)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	module, err := prepareModule(ctx, cfg, pipe, target)
	if err != nil {
		return nil, nil, err
	}
	oracle, err := channel.NewProcessOracle(cfg, module, opts.Logger)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	opts.WorkDir = cfg.WorkDir
	if opts.Workers == 0 {
		opts.Workers = cfg.Workers
	}
	if opts.IDs == nil {
		opts.IDs = o.IDs
	}
	opts.Policy.Override = alias.Code(cfg.Override)
	return engine.New(module, oracle, pipe, opts), pipe, nil
}
