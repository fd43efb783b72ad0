// Package store keeps a SQLite history of probe runs.
//
// Two tables:
//   - runs: one row per probe, with M, the selected count, the baseline
//     size, and a status
//   - records: one row per substitution index of a run
//
// A run and its records are written in a single transaction, so a reader
// never sees a run without its records.
//
// # Ordering
//
// Runs are numbered by a logical seq assigned at write time. Listings use
// ORDER BY seq and records use ORDER BY idx; no query depends on wall time.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
