package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/aliasprobe/internal/alias"
	"github.com/roach88/aliasprobe/internal/report"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestReport builds a report with one record per outcome.
func createTestReport(id string) *report.Report {
	rep := report.New(id, "input.ll", alias.CodeMustAlias)
	rep.MayAliasCount = 6
	rep.Queries = 14
	rep.Selected = 5
	rep.BaselineSize = 1000
	rep.Add(report.Record{Index: 0, BaselineSize: 1000, Size: 1000, Outcome: report.OutcomeMatch, Queries: 14})
	rep.Add(report.Record{Index: 3, BaselineSize: 1000, Size: 1064, Outcome: report.OutcomeDivergence, Queries: 14})
	rep.Add(report.Record{Index: 1, BaselineSize: 1000, Outcome: report.OutcomeCompileFailed, Detail: "COMPILE_FAILURE: backend failed (index=1)", Queries: 14})
	rep.Add(report.Record{Index: 2, BaselineSize: 1000, Outcome: report.OutcomeMeasurementFailed, Detail: "MEASUREMENT_FAILURE: size tool reported diagnostics (index=2)", Queries: 14})
	rep.Add(report.Record{Index: 4, BaselineSize: 1000, Outcome: report.OutcomeReplayFailed, Detail: "ORACLE_FAILURE: oracle reported failure (index=4)", Queries: 9})
	return rep
}
