// Package storage provides persistence for clinical notes and guideline
// references.
//
// Two backends exist:
//   - SQLiteStorage: the default. Opens a MIMIC-III demo database (or creates
//     an empty one) and is the target of all imports.
//   - PostgresStore: read-only access to a full MIMIC-III PostgreSQL build.
//
// # Database Schema
//
// Tables:
//   - schema_version: Applied migration versions
//   - NOTEEVENTS: Free-text clinical notes, MIMIC-III column layout
//   - guidelines: Guideline references searchable by topic
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.clinical-mcp/mimiciii_demo.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	note, err := db.GetLatestNote(ctx, "109", types.DischargeSummaryCategory)
//	if errors.Is(err, storage.ErrNotFound) {
//	    // no discharge summary for this subject
//	}
//
// # Transactions
//
// Imports write through a transaction:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	inserted, _ := tx.InsertNote(ctx, note)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Build Modes
//
// The pure Go driver (modernc.org/sqlite) is used by default. Build with
// -tags sqlite_cgo to use github.com/mattn/go-sqlite3 instead.
package storage
