package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/aliasprobe/internal/engine"
	"github.com/roach88/aliasprobe/internal/metrics"
	"github.com/roach88/aliasprobe/internal/report"
	"github.com/roach88/aliasprobe/internal/store"
)

// ProbeOptions holds flags for the probe command.
type ProbeOptions struct {
	*RootOptions
	config configFlags

	Indices          []int
	Limit            int
	MetricsFile      string
	FailOnDivergence bool
}

// NewProbeCommand creates the probe command.
func NewProbeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProbeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "probe <module.ll|source.c>",
		Short: "Substitute every MayAlias answer and report size changes",
		Long: `Run a full sensitivity probe.

The oracle is run once with every query answered as computed to count the
MayAlias queries (M). The input module is compiled and measured for the
baseline size. Then, for each of the M queries, the oracle is replayed
from scratch with only that answer overridden, and the result is compiled
and measured. Every index that does not match the baseline is reported.

A C source is first turned into a module by the configured front-end.

Exit codes:
  0 - Every selected index was measured
  1 - Baseline failed, an index failed, or a divergence with --fail-on-divergence
  2 - Command error (bad flags, config, or input path)

Examples:
  aliasprobe probe input.ll
  aliasprobe probe test.c --workers 8 --override MustAlias
  aliasprobe probe input.ll --index 3,7 --db runs.db --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(opts, args[0], cmd)
		},
	}

	opts.config.register(cmd, true, true)
	cmd.Flags().IntSliceVar(&opts.Indices, "index", nil, "probe only these MayAlias indices")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "probe at most this many indices")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	cmd.Flags().BoolVar(&opts.FailOnDivergence, "fail-on-divergence", false, "exit 1 when any index diverges")

	return cmd
}

func runProbe(opts *ProbeOptions, target string, cmd *cobra.Command) error {
	logger := opts.setupLogging(cmd)
	out := opts.formatter(cmd)

	cfg, err := opts.loadConfig(cmd, &opts.config)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	rec := metrics.New()
	p, _, err := opts.newProber(ctx, cfg, target, engine.Options{
		Policy: engine.Policy{
			Selection: engine.Selection{Indices: opts.Indices, Limit: opts.Limit},
		},
		Logger:  logger,
		Metrics: rec,
	})
	if err != nil {
		return err
	}

	rep, runErr := p.Run(ctx)
	if rep == nil {
		return opts.fail(cmd, ExitFailure, "probe failed", runErr)
	}

	if err := out.Emit(rep.View(), rep.WriteText); err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}

	if cfg.Database != "" {
		// Persist even an interrupted run; the stored status says so.
		if err := saveRun(cfg.Database, rep, logger); err != nil {
			return err
		}
	}
	if opts.MetricsFile != "" {
		if err := rec.WriteTextfile(opts.MetricsFile); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
		out.VerboseLog("metrics written to %s", opts.MetricsFile)
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "probe interrupted", runErr)
	}
	if rep.Failed() {
		s := rep.Summary()
		failed := rep.Selected - s.Counts[report.OutcomeMatch] - s.Counts[report.OutcomeDivergence]
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d indices failed", failed, rep.Selected))
	}
	if opts.FailOnDivergence {
		if n := len(rep.Divergences()); n > 0 {
			return NewExitError(ExitFailure, fmt.Sprintf("%d of %d indices diverged", n, rep.Selected))
		}
	}
	return nil
}

func saveRun(path string, rep *report.Report, logger *slog.Logger) error {
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	seq, err := st.WriteRun(context.Background(), rep)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to save run", err)
	}
	logger.Info("run saved", "run_id", rep.RunID, "seq", seq, "db", path)
	return nil
}
