package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"runs", "records"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name, want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		if err := s.verifyPragma(tt.name, tt.want); err != nil {
			t.Error(err)
		}
	}
}

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	want := map[string][]string{
		"runs": {
			"id", "seq", "module", "override", "may_alias_count",
			"queries", "selected_count", "baseline_size", "status",
		},
		"records": {"run_id", "idx", "outcome", "size", "delta", "detail", "queries"},
	}
	for table, cols := range want {
		got := queryNames(t, s.db, "SELECT name FROM pragma_table_info(?)", table)
		for _, col := range cols {
			if !slices.Contains(got, col) {
				t.Errorf("%s table missing column %q", table, col)
			}
		}
	}
}

func TestConstraint_RecordNeedsRun(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO records (run_id, idx, outcome, size, delta) VALUES ('ghost', 0, 'match', 1, 0)`)
	if err == nil {
		t.Error("expected foreign key violation for record without run")
	}
}

func TestConstraint_OverrideRange(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO runs (id, seq, module, override, may_alias_count, selected_count, baseline_size, status)
		VALUES ('r', 1, 'm', 4, 0, 0, 0, 'complete')
	`)
	if err == nil {
		t.Error("expected check violation for override 4")
	}
}

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	if got := userVersion(t, s.db); got != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", got, currentSchemaVersion)
	}
}

func TestMigrations_Ordered(t *testing.T) {
	for i, m := range migrations {
		if m.version != i+1 {
			t.Errorf("migration %q has version %d at position %d", m.name, m.version, i)
		}
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// Base tables without any migration applied.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("base schema: %v", err)
	}
	if got := userVersion(t, db); got != 0 {
		t.Fatalf("fresh database at user_version %d", got)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if got := userVersion(t, s.db); got != currentSchemaVersion {
		t.Errorf("user_version = %d after upgrade, want %d", got, currentSchemaVersion)
	}
	indexes := queryNames(t, s.db, "SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", "records")
	if !slices.Contains(indexes, "idx_records_outcome") {
		t.Errorf("records indexes after upgrade = %v, want idx_records_outcome", indexes)
	}
}

func userVersion(t *testing.T, db *sql.DB) int {
	t.Helper()
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	return v
}

// queryNames runs a query whose single column is a name.
func queryNames(t *testing.T, db *sql.DB, query string, args ...any) []string {
	t.Helper()
	rows, err := db.Query(query, args...)
	if err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	return names
}
