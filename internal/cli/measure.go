package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/aliasprobe/internal/pipeline"
)

// MeasureOptions holds flags for the measure command.
type MeasureOptions struct {
	*RootOptions
	config configFlags

	Compile bool
}

// MeasureResult is the measured size of one artifact.
type MeasureResult struct {
	Artifact string `json:"artifact"`
	Size     int64  `json:"size"`
}

// NewMeasureCommand creates the measure command.
func NewMeasureCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MeasureOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "measure <artifact>",
		Short: "Run the size tool on an artifact",
		Long: `Run the configured size tool and print the code size it reports.

With --compile the argument is a module, which is first compiled by the
backend into <workdir>/measure.out.

Examples:
  aliasprobe measure files/file3.out
  aliasprobe measure --compile files/file3.ll`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeasure(opts, args[0], cmd)
		},
	}

	opts.config.register(cmd, false, false)
	cmd.Flags().BoolVar(&opts.Compile, "compile", false, "compile the module argument before measuring")

	return cmd
}

func runMeasure(opts *MeasureOptions, target string, cmd *cobra.Command) error {
	logger := opts.setupLogging(cmd)

	cfg, err := opts.loadConfig(cmd, &opts.config)
	if err != nil {
		return err
	}
	if _, err := os.Stat(target); err != nil {
		return WrapExitError(ExitCommandError, "input not found", err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	pipe, err := pipeline.New(cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	artifact := target
	if opts.Compile {
		if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
			return WrapExitError(ExitCommandError, "failed to create workdir", err)
		}
		art, err := pipe.Compile(ctx, target, filepath.Join(cfg.WorkDir, "measure.out"), -1)
		if err != nil {
			return opts.fail(cmd, ExitFailure, "compile failed", err)
		}
		artifact = art.Path
	}

	size, err := pipe.MeasureSize(ctx, artifact, -1)
	if err != nil {
		return opts.fail(cmd, ExitFailure, "measurement failed", err)
	}

	result := MeasureResult{Artifact: artifact, Size: size}
	return opts.formatter(cmd).Emit(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s: %d\n", result.Artifact, result.Size)
		return err
	})
}
