package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/aliasprobe/internal/report"
	"github.com/roach88/aliasprobe/internal/store"
)

// HistoryOptions holds flags for the history and show commands.
type HistoryOptions struct {
	*RootOptions
	Database string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored probe runs",
		Long: `List every probe run stored in the history database, oldest first.

The database comes from --db, or from the config file's database entry.

Examples:
  aliasprobe history --db runs.db
  aliasprobe history --db runs.db --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run history")
	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a stored probe run",
		Long: `Print the report of one stored probe run.

Examples:
  aliasprobe show 01927f3c-8a4e-7c1a-9d2b-3e4f5a6b7c8d --db runs.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run history")
	return cmd
}

// openHistory opens the database named by --db or the config file.
func (o *HistoryOptions) openHistory(cmd *cobra.Command) (*store.Store, error) {
	path := o.Database
	if path == "" {
		cfg, err := o.loadConfig(cmd, nil)
		if err != nil {
			return nil, err
		}
		path = cfg.Database
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no database: pass --db or set database in the config file")
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	st, err := opts.openHistory(cmd)
	if err != nil {
		return err
	}
	defer closeStore(st)

	runs, err := st.ListRuns(context.Background())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list runs", err)
	}

	return opts.formatter(cmd).Emit(runs, func(w io.Writer) error {
		if len(runs) == 0 {
			_, err := fmt.Fprintln(w, "No runs found")
			return err
		}
		fmt.Fprintf(w, "%-4s %-36s %-11s %5s %8s %11s %10s  %s\n",
			"SEQ", "RUN ID", "STATUS", "M", "SELECTED", "DIVERGENCES", "BASELINE", "MODULE")
		for _, r := range runs {
			fmt.Fprintf(w, "%-4d %-36s %-11s %5d %8d %11d %10d  %s\n",
				r.Seq, r.ID, r.Status, r.MayAliasCount, r.Selected, r.Divergences, r.BaselineSize, r.Module)
		}
		return nil
	})
}

// ShowResult is a stored run with its status.
type ShowResult struct {
	report.JSONView
	Status store.Status `json:"status"`
}

func runShow(opts *HistoryOptions, id string, cmd *cobra.Command) error {
	st, err := opts.openHistory(cmd)
	if err != nil {
		return err
	}
	defer closeStore(st)

	rep, status, err := st.ReadRun(context.Background(), id)
	if err != nil {
		return opts.fail(cmd, ExitCommandError, "failed to read run", err)
	}

	result := ShowResult{JSONView: rep.View(), Status: status}
	return opts.formatter(cmd).Emit(result, func(w io.Writer) error {
		if err := rep.WriteText(w); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "  %-19s %s\n", "status:", status)
		return err
	})
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
