package store

import (
	"context"
	"fmt"

	"github.com/roach88/aliasprobe/internal/report"
)

// Status summarizes how a run ended.
type Status string

const (
	// StatusComplete means every selected index was measured.
	StatusComplete Status = "complete"

	// StatusFailed means every selected index has a record but at least
	// one failed to compile, measure, or replay.
	StatusFailed Status = "failed"

	// StatusInterrupted means the run stopped before every selected index
	// had a record.
	StatusInterrupted Status = "interrupted"
)

// StatusOf derives the status of rep.
func StatusOf(rep *report.Report) Status {
	switch {
	case len(rep.Records) < rep.Selected:
		return StatusInterrupted
	case rep.Failed():
		return StatusFailed
	}
	return StatusComplete
}

// WriteRun stores rep and all its records in one transaction and returns
// the logical seq assigned to the run. Writing a run ID twice is an error.
func (s *Store) WriteRun(ctx context.Context, rep *report.Report) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, module, override, may_alias_count, queries, selected_count, baseline_size, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rep.RunID,
		seq,
		rep.Module,
		int(rep.Override),
		rep.MayAliasCount,
		rep.Queries,
		rep.Selected,
		rep.BaselineSize,
		string(StatusOf(rep)),
	)
	if err != nil {
		return 0, fmt.Errorf("write run %s: %w", rep.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records
		(run_id, idx, outcome, size, delta, detail, queries)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("write run: prepare records: %w", err)
	}
	defer stmt.Close()

	for _, rec := range rep.Records {
		_, err := stmt.ExecContext(ctx,
			rep.RunID,
			rec.Index,
			string(rec.Outcome),
			rec.Size,
			rec.Delta(),
			rec.Detail,
			rec.Queries,
		)
		if err != nil {
			return 0, fmt.Errorf("write record %d of run %s: %w", rec.Index, rep.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}
