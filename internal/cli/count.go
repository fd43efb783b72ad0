package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/aliasprobe/internal/engine"
)

// CountOptions holds flags for the count command.
type CountOptions struct {
	*RootOptions
	config configFlags
}

// CountResult is the outcome of a baseline pass.
type CountResult struct {
	MayAliasCount int    `json:"may_alias_count"`
	Queries       int    `json:"queries"`
	Module        string `json:"module"`
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <module.ll|source.c>",
		Short: "Run the baseline pass and count MayAlias queries",
		Long: `Run the oracle once with every query answered as computed.

Prints the number of MayAlias queries (the substitution count M) and the
total number of queries. The resulting module is written to
<workdir>/module.base.ll.

Examples:
  aliasprobe count input.ll
  aliasprobe count input.ll --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, args[0], cmd)
		},
	}

	opts.config.register(cmd, false, false)
	return cmd
}

func runCount(opts *CountOptions, target string, cmd *cobra.Command) error {
	logger := opts.setupLogging(cmd)

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

	base, err := p.Count(ctx)
	if err != nil {
		return opts.fail(cmd, ExitFailure, "baseline pass failed", err)
	}

	result := CountResult{
		MayAliasCount: base.MayAliasCount,
		Queries:       base.Queries,
		Module:        base.ModulePath,
	}
	return opts.formatter(cmd).Emit(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Count is %d\nQueries: %d\nModule: %s\n",
			result.MayAliasCount, result.Queries, result.Module)
		return err
	})
}
