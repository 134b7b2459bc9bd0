package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/clinical-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = fmt.Errorf("record %w", types.ErrNotFound)
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// DB exposes the underlying handle for migration commands
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) InsertNote(ctx context.Context, note *types.ClinicalNote) (bool, error) {
	return t.storage.insertNoteWithQuerier(ctx, t.tx, note)
}

func (t *sqliteTx) UpsertGuideline(ctx context.Context, guideline *types.Guideline) error {
	return t.storage.upsertGuidelineWithQuerier(ctx, t.tx, guideline)
}

// Note operations

// GetLatestNote returns the most recent note of a category for a subject.
// SUBJECT_ID has integer affinity, so a numeric string identifier compares
// equal to the stored integer.
func (s *SQLiteStorage) GetLatestNote(ctx context.Context, subjectID, category string) (*types.ClinicalNote, error) {
	query := `
		SELECT ROW_ID, SUBJECT_ID, HADM_ID, CHARTDATE, CATEGORY, DESCRIPTION, TEXT
		FROM NOTEEVENTS
		WHERE SUBJECT_ID = ? AND CATEGORY = ?
		ORDER BY CHARTDATE DESC, ROW_ID DESC
		LIMIT 1
	`
	var note types.ClinicalNote
	var hadmID sql.NullInt64
	var chartDate, description sql.NullString
	err := s.db.QueryRowContext(ctx, query, subjectID, category).Scan(
		&note.RowID, &note.SubjectID, &hadmID, &chartDate,
		&note.Category, &description, &note.Text,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	if hadmID.Valid {
		note.HadmID = &hadmID.Int64
	}
	note.ChartDate = chartDate.String
	note.Description = description.String
	return &note, nil
}

// insertNoteWithQuerier is the internal implementation that uses a querier.
// Rows whose ROW_ID already exists are left untouched.
func (s *SQLiteStorage) insertNoteWithQuerier(ctx context.Context, q querier, note *types.ClinicalNote) (bool, error) {
	if err := note.Validate(); err != nil {
		return false, err
	}

	query := `
		INSERT OR IGNORE INTO NOTEEVENTS (ROW_ID, SUBJECT_ID, HADM_ID, CHARTDATE, CATEGORY, DESCRIPTION, TEXT)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	var rowID interface{}
	if note.RowID > 0 {
		rowID = note.RowID
	}
	result, err := q.ExecContext(ctx, query,
		rowID, strings.TrimSpace(note.SubjectID), note.HadmID, nullString(note.ChartDate),
		note.Category, nullString(note.Description), note.Text)
	if err != nil {
		return false, fmt.Errorf("failed to insert note: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if note.RowID == 0 {
		if id, err := result.LastInsertId(); err == nil {
			note.RowID = id
		}
	}
	return true, nil
}

func (s *SQLiteStorage) InsertNote(ctx context.Context, note *types.ClinicalNote) (bool, error) {
	return s.insertNoteWithQuerier(ctx, s.db, note)
}

// InsertNotes inserts a batch of notes in a single transaction and returns
// how many were new
func (s *SQLiteStorage) InsertNotes(ctx context.Context, notes []*types.ClinicalNote) (int, error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for i, note := range notes {
		ok, err := tx.InsertNote(ctx, note)
		if err != nil {
			return 0, fmt.Errorf("note %d: %w", i, err)
		}
		if ok {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit notes: %w", err)
	}
	return inserted, nil
}

func (s *SQLiteStorage) CountNotes(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM NOTEEVENTS").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return count, nil
}

// Guideline operations

// upsertGuidelineWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertGuidelineWithQuerier(ctx context.Context, q querier, g *types.Guideline) error {
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("guideline ID is required")
	}
	if strings.TrimSpace(g.Topic) == "" {
		return types.ErrEmptyTopic
	}

	query := `
		INSERT INTO guidelines (guideline_id, topic, title, source, url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guideline_id) DO UPDATE SET
			topic = excluded.topic,
			title = excluded.title,
			source = excluded.source,
			url = excluded.url,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query,
		g.ID, g.Topic, g.Title, nullString(g.Source), nullString(g.URL), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert guideline: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertGuideline(ctx context.Context, guideline *types.Guideline) error {
	return s.upsertGuidelineWithQuerier(ctx, s.db, guideline)
}

// SearchGuidelines returns guidelines whose topic contains topic, ignoring
// case. Folding happens in Go since SQLite's lower() only folds ASCII.
func (s *SQLiteStorage) SearchGuidelines(ctx context.Context, topic string) ([]*types.Guideline, error) {
	all, err := s.ListGuidelines(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]*types.Guideline, 0, len(all))
	for _, g := range all {
		if g.MatchesTopic(topic) {
			matches = append(matches, g)
		}
	}
	return matches, nil
}

func (s *SQLiteStorage) ListGuidelines(ctx context.Context) ([]*types.Guideline, error) {
	query := `
		SELECT guideline_id, topic, title, source, url
		FROM guidelines
		ORDER BY guideline_id
	`
	return s.queryGuidelines(ctx, query)
}

func (s *SQLiteStorage) queryGuidelines(ctx context.Context, query string, args ...interface{}) ([]*types.Guideline, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query guidelines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	guidelines := make([]*types.Guideline, 0)
	for rows.Next() {
		var g types.Guideline
		var source, url sql.NullString
		if err := rows.Scan(&g.ID, &g.Topic, &g.Title, &source, &url); err != nil {
			return nil, err
		}
		g.Source = source.String
		g.URL = url.String
		guidelines = append(guidelines, &g)
	}
	return guidelines, rows.Err()
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*StoreStatus, error) {
	status := &StoreStatus{}

	if err := s.db.PingContext(ctx); err != nil {
		return status, nil
	}
	status.Health.DatabaseAccessible = true

	version, err := CurrentVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()
	status.Health.SchemaCurrent = status.SchemaVersion == CurrentSchemaVersion

	if status.NotesCount, err = s.CountNotes(ctx); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM NOTEEVENTS WHERE CATEGORY = ?", types.DischargeSummaryCategory,
	).Scan(&status.DischargeNotesCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count discharge notes: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM guidelines").Scan(&status.GuidelinesCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count guidelines: %w", err)
	}

	return status, nil
}

// nullString maps "" to SQL NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
