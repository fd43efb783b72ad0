package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/aliasprobe/internal/alias"
	"github.com/roach88/aliasprobe/internal/report"
)

// ErrRunNotFound is returned by ReadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the run history.
type RunSummary struct {
	ID            string     `json:"id"`
	Seq           int64      `json:"seq"`
	Module        string     `json:"module"`
	Override      alias.Code `json:"override"`
	MayAliasCount int        `json:"may_alias_count"`
	Selected      int        `json:"selected"`
	BaselineSize  int64      `json:"baseline_size"`
	Status        Status     `json:"status"`
	Divergences   int        `json:"divergences"`
}

// ListRuns returns every stored run, oldest first.
// Returns an empty slice (not nil) when the history is empty.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.seq, r.module, r.override, r.may_alias_count,
		       r.selected_count, r.baseline_size, r.status,
		       (SELECT COUNT(*) FROM records d
		        WHERE d.run_id = r.id AND d.outcome = ?)
		FROM runs r
		ORDER BY r.seq ASC
	`, string(report.OutcomeDivergence))
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			rs       RunSummary
			override int
			status   string
		)
		if err := rows.Scan(&rs.ID, &rs.Seq, &rs.Module, &override, &rs.MayAliasCount,
			&rs.Selected, &rs.BaselineSize, &status, &rs.Divergences); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rs.Override = alias.Code(override)
		rs.Status = Status(status)
		runs = append(runs, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun rebuilds the report stored under id, records in index order.
// Returns ErrRunNotFound if no such run exists.
func (s *Store) ReadRun(ctx context.Context, id string) (*report.Report, Status, error) {
	var (
		rep      report.Report
		override int
		status   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, module, override, may_alias_count, queries, selected_count, baseline_size, status
		FROM runs
		WHERE id = ?
	`, id).Scan(&rep.RunID, &rep.Module, &override, &rep.MayAliasCount, &rep.Queries,
		&rep.Selected, &rep.BaselineSize, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read run %s: %w", id, err)
	}
	rep.Override = alias.Code(override)

	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, outcome, size, detail, queries
		FROM records
		WHERE run_id = ?
		ORDER BY idx ASC
	`, id)
	if err != nil {
		return nil, "", fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	rep.Records = []report.Record{}
	for rows.Next() {
		var (
			rec     report.Record
			outcome string
		)
		if err := rows.Scan(&rec.Index, &outcome, &rec.Size, &rec.Detail, &rec.Queries); err != nil {
			return nil, "", fmt.Errorf("scan record: %w", err)
		}
		rec.Outcome = report.Outcome(outcome)
		rec.BaselineSize = rep.BaselineSize
		rep.Records = append(rep.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate records: %w", err)
	}
	return &rep, Status(status), nil
}
