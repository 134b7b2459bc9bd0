package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dshills/clinical-mcp/pkg/types"
)

// PostgresStore reads notes from a MIMIC-III PostgreSQL build, where the
// note table is the lowercase noteevents in the schema named by search_path.
// It is read-only: imports always go to SQLite.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and verifies the connection
func NewPostgresStore(ctx context.Context, databaseURL string, maxConns, minConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// GetLatestNote returns the most recent note of a category for a subject.
// subject_id is an integer column; comparing its text form keeps non-numeric
// identifiers a plain miss instead of a cast error.
func (p *PostgresStore) GetLatestNote(ctx context.Context, subjectID, category string) (*types.ClinicalNote, error) {
	query := `
		SELECT row_id, subject_id::text, hadm_id, chartdate::text, category,
		       coalesce(description, ''), coalesce(text, '')
		FROM noteevents
		WHERE subject_id::text = $1 AND category = $2
		ORDER BY chartdate DESC NULLS LAST, row_id DESC
		LIMIT 1
	`
	var note types.ClinicalNote
	var hadmID *int64
	var chartDate *string
	err := p.pool.QueryRow(ctx, query, subjectID, category).Scan(
		&note.RowID, &note.SubjectID, &hadmID, &chartDate,
		&note.Category, &note.Description, &note.Text,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	note.HadmID = hadmID
	if chartDate != nil {
		note.ChartDate = *chartDate
	}
	return &note, nil
}

// Ping verifies the database is reachable
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the connection pool
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
