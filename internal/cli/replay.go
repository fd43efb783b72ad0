package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/aliasprobe/internal/alias"
	"github.com/roach88/aliasprobe/internal/engine"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	config configFlags

	Index  int
	Output string
}

// ReplayResult describes one substitution replay.
type ReplayResult struct {
	Index       int                `json:"index"`
	Override    alias.Code         `json:"override"`
	Module      string             `json:"module"`
	Queries     int                `json:"queries"`
	Substituted []alias.QueryEvent `json:"substituted"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <module.ll|source.c> --index k",
		Short: "Replay the oracle with one MayAlias answer overridden",
		Long: `Replay the oracle from the first query with only the k-th MayAlias
query answered with the override code, and keep the resulting module.

The module is written to <workdir>/file<k>.ll, and also copied to the
--output path when one is given.

Exit codes:
  0 - Module written
  1 - Replay failed or the oracle asked fewer than k+1 MayAlias queries
  2 - Command error

Examples:
  aliasprobe replay input.ll --index 3
  aliasprobe replay input.ll --index 3 --override NoAlias -o variant.ll`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	opts.config.register(cmd, false, false)
	cmd.Flags().IntVar(&opts.Index, "index", -1, "MayAlias index to override (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "copy the resulting module here")
	_ = cmd.MarkFlagRequired("index")

	return cmd
}

func runReplay(opts *ReplayOptions, target string, cmd *cobra.Command) error {
	logger := opts.setupLogging(cmd)

	if opts.Index < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--index must not be negative, got %d", opts.Index))
	}
	cfg, err := opts.loadConfig(cmd, &opts.config)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	p, _, err := opts.newProber(ctx, cfg, target, engine.Options{Logger: logger})
	if err != nil {
		return err
	}

	plan := alias.Plan(opts.Index, alias.Code(cfg.Override))
	path, stream, err := p.Substitute(ctx, plan)
	if err != nil {
		return opts.fail(cmd, ExitFailure, "replay failed", err)
	}
	if m := stream.MayAliasCount(); opts.Index >= m {
		return opts.fail(cmd, ExitFailure, "index out of range",
			fmt.Errorf("index %d not reached: oracle asked %d MayAlias queries", opts.Index, m))
	}

	if opts.Output != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read module", err)
		}
		if err := os.WriteFile(opts.Output, data, 0644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		path = opts.Output
	}

	result := ReplayResult{
		Index:       opts.Index,
		Override:    plan.Override,
		Module:      path,
		Queries:     stream.Len(),
		Substituted: stream.Substituted(),
	}
	if result.Substituted == nil {
		result.Substituted = []alias.QueryEvent{}
	}
	return opts.formatter(cmd).Emit(result, func(w io.Writer) error {
		fmt.Fprintf(w, "Module: %s\n", result.Module)
		fmt.Fprintf(w, "Queries: %d\n", result.Queries)
		if len(result.Substituted) == 0 {
			_, err := fmt.Fprintf(w, "MayAlias #%d answered %s (%s), same as computed\n",
				result.Index, result.Override.Wire(), result.Override)
			return err
		}
		for _, ev := range result.Substituted {
			fmt.Fprintf(w, "MayAlias #%d at query %d answered %s (%s)\n",
				ev.MayOrdinal, ev.Ordinal, ev.Response.Wire(), ev.Response)
		}
		return nil
	})
}
