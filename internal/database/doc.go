// Package database provides SQLite-based storage for pwasmoke run history.
//
// This package implements the RunDB, which stores one row per check run:
// the project root, when it ran, its outcome and finding counts, and the
// complete report as JSON (findings and artifact digests included). The
// history command reads it back to list and compare runs.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode lets a history query read while a watch loop writes
package database
