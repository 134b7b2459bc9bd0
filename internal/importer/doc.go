// Package importer bulk-loads MIMIC-III NOTEEVENTS exports and guideline
// lists into the local SQLite store.
//
// Notes are committed in batches, one transaction per batch. Re-importing
// the same file is safe: rows whose ROW_ID already exists are counted as
// duplicates and left untouched. Only one import runs at a time per
// Importer.
package importer
