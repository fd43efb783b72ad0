package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/aliasprobe/internal/tally"
)

// TallyOptions holds flags for the tally command.
type TallyOptions struct {
	*RootOptions
	ByLabel bool
}

// NewTallyCommand creates the tally command.
func NewTallyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TallyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tally <stats-file>",
		Short: "Count alias results per function in a stats file",
		Long: `Count how often each function appears in a stats file.

Each line holds a function name and an alias result label separated by
whitespace. Blank lines are skipped. Malformed lines are reported with
their line numbers and make the command exit 1 after printing the counts
of the good lines.

Examples:
  aliasprobe tally func_stats.txt
  aliasprobe tally func_stats.txt --by-label --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTally(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.ByLabel, "by-label", false, "break counts down per result label")

	return cmd
}

func runTally(opts *TallyOptions, path string, cmd *cobra.Command) error {
	f, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open stats file", err)
	}
	defer f.Close()

	t, countErr := tally.Count(f)
	if !opts.ByLabel {
		t.ByLabel = nil
	}

	out := opts.formatter(cmd)
	err = out.Emit(t, func(w io.Writer) error {
		return t.WriteText(w, opts.ByLabel)
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to write tally", err)
	}

	if countErr != nil {
		return WrapExitError(ExitFailure, "malformed stats lines", countErr)
	}
	return nil
}
