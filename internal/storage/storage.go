package storage

import (
	"context"

	"github.com/dshills/clinical-mcp/pkg/types"
)

// NoteReader is the read path used while handling tool calls.
// Implementations are shared by all in-flight requests and must be safe for
// concurrent use.
type NoteReader interface {
	// GetLatestNote returns the most recent note of the given category for a
	// subject, or ErrNotFound when there is none
	GetLatestNote(ctx context.Context, subjectID, category string) (*types.ClinicalNote, error)

	// Ping verifies the backing database is reachable
	Ping(ctx context.Context) error

	// Close releases the underlying connection(s)
	Close() error
}

// GuidelineStore persists clinical guideline references
type GuidelineStore interface {
	UpsertGuideline(ctx context.Context, guideline *types.Guideline) error
	SearchGuidelines(ctx context.Context, topic string) ([]*types.Guideline, error)
	ListGuidelines(ctx context.Context) ([]*types.Guideline, error)
}

// Storage is the full SQLite-backed store: the request-time read path plus
// the write operations used by the importer
type Storage interface {
	NoteReader
	GuidelineStore

	// Note operations
	InsertNote(ctx context.Context, note *types.ClinicalNote) (inserted bool, err error)
	InsertNotes(ctx context.Context, notes []*types.ClinicalNote) (inserted int, err error)
	CountNotes(ctx context.Context) (int, error)

	// Status operations
	GetStatus(ctx context.Context) (*StoreStatus, error)

	// Database operations
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error

	InsertNote(ctx context.Context, note *types.ClinicalNote) (inserted bool, err error)
	UpsertGuideline(ctx context.Context, guideline *types.Guideline) error
}

// StoreStatus contains statistics about the local store
type StoreStatus struct {
	SchemaVersion       string
	NotesCount          int
	DischargeNotesCount int
	GuidelinesCount     int
	Health              HealthStatus
}

// HealthStatus represents the health of the store
type HealthStatus struct {
	DatabaseAccessible bool
	SchemaCurrent      bool
}
