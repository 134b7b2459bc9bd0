package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/clinical-mcp/internal/guidelines"
	"github.com/dshills/clinical-mcp/internal/storage"
	"github.com/dshills/clinical-mcp/pkg/types"
)

const (
	// DefaultBatchSize is the number of notes committed per transaction
	DefaultBatchSize = 500

	// maxErrorMessages caps the row errors kept in Statistics
	maxErrorMessages = 5
)

// ErrImportInProgress is returned when another import holds the lock
var ErrImportInProgress = errors.New("import already in progress")

// NOTEEVENTS.csv column names
const (
	colRowID       = "ROW_ID"
	colSubjectID   = "SUBJECT_ID"
	colHadmID      = "HADM_ID"
	colChartDate   = "CHARTDATE"
	colCategory    = "CATEGORY"
	colDescription = "DESCRIPTION"
	colIsError     = "ISERROR"
	colText        = "TEXT"
)

var requiredColumns = []string{colSubjectID, colCategory, colText}

// Importer loads notes and guidelines into the local store
type Importer struct {
	store  storage.Storage
	lock   ImportLock
	logger zerolog.Logger
}

// Config contains configuration for a note import
type Config struct {
	BatchSize int    // Notes per transaction (default: 500)
	Category  string // Only import this category; empty imports all
}

// Statistics contains statistics about an import
type Statistics struct {
	Rows          int // Data rows read
	Inserted      int // New records written
	Duplicates    int // Rows whose ROW_ID already existed
	Skipped       int // Rows rejected or filtered out
	Duration      time.Duration
	ErrorMessages []string // First few row errors
}

func (s *Statistics) rowError(msg string) {
	s.Skipped++
	if len(s.ErrorMessages) < maxErrorMessages {
		s.ErrorMessages = append(s.ErrorMessages, msg)
	}
}

// New creates a new Importer instance
func New(store storage.Storage, logger zerolog.Logger) *Importer {
	return &Importer{
		store:  store,
		logger: logger.With().Str("component", "importer").Logger(),
	}
}

// ImportNotes reads a MIMIC-III NOTEEVENTS CSV export. Columns are located
// by header name, case-insensitively. Malformed rows are skipped and
// reported in the statistics; storage errors abort the import, leaving
// earlier batches committed.
func (im *Importer) ImportNotes(ctx context.Context, r io.Reader, config *Config) (*Statistics, error) {
	if !im.lock.TryAcquire() {
		return nil, ErrImportInProgress
	}
	defer im.lock.Release()

	if config == nil {
		config = &Config{}
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	startTime := time.Now()
	stats := &Statistics{
		ErrorMessages: make([]string, 0),
	}

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	batch := make([]*types.ClinicalNote, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		inserted, err := im.store.InsertNotes(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to store batch ending at row %d: %w", stats.Rows, err)
		}
		stats.Inserted += inserted
		stats.Duplicates += len(batch) - inserted
		im.logger.Debug().Int("rows", stats.Rows).Int("inserted", stats.Inserted).Msg("batch committed")
		batch = batch[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
				stats.Rows++
				stats.rowError(fmt.Sprintf("line %d: %v", parseErr.Line, parseErr.Err))
				continue
			}
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		stats.Rows++

		line, _ := reader.FieldPos(0)
		note, skip, err := columns.note(record)
		if err != nil {
			stats.rowError(fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if skip || (config.Category != "" && !strings.EqualFold(note.Category, config.Category)) {
			stats.Skipped++
			continue
		}

		batch = append(batch, note)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(startTime)
	im.logger.Info().
		Int("rows", stats.Rows).
		Int("inserted", stats.Inserted).
		Int("duplicates", stats.Duplicates).
		Int("skipped", stats.Skipped).
		Dur("duration", stats.Duration).
		Msg("notes imported")
	return stats, nil
}

// ImportGuidelines reads a JSON array of guidelines and upserts them in a
// single transaction
func (im *Importer) ImportGuidelines(ctx context.Context, r io.Reader) (*Statistics, error) {
	if !im.lock.TryAcquire() {
		return nil, ErrImportInProgress
	}
	defer im.lock.Release()

	startTime := time.Now()
	records, err := guidelines.Decode(r)
	if err != nil {
		return nil, err
	}

	tx, err := im.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range records {
		if err := tx.UpsertGuideline(ctx, &records[i]); err != nil {
			return nil, fmt.Errorf("guideline %s: %w", records[i].ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit guidelines: %w", err)
	}

	stats := &Statistics{
		Rows:          len(records),
		Inserted:      len(records),
		Duration:      time.Since(startTime),
		ErrorMessages: make([]string, 0),
	}
	im.logger.Info().Int("guidelines", stats.Inserted).Msg("guidelines imported")
	return stats, nil
}

// columnIndex maps column names to record positions; -1 when absent
type columnIndex map[string]int

func indexColumns(header []string) (columnIndex, error) {
	columns := columnIndex{}
	for i, name := range header {
		name = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		columns[name] = i
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required column %s", required)
		}
	}
	return columns, nil
}

func (c columnIndex) get(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// note converts a CSV record. skip is true for rows MIMIC flags as erroneous.
func (c columnIndex) note(record []string) (note *types.ClinicalNote, skip bool, err error) {
	if c.get(record, colIsError) == "1" {
		return nil, true, nil
	}

	note = &types.ClinicalNote{
		SubjectID:   c.get(record, colSubjectID),
		ChartDate:   c.get(record, colChartDate),
		Category:    c.get(record, colCategory),
		Description: c.get(record, colDescription),
	}
	if i, ok := c[colText]; ok && i < len(record) {
		note.Text = record[i]
	}

	if v := c.get(record, colRowID); v != "" {
		if note.RowID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, false, fmt.Errorf("invalid ROW_ID %q", v)
		}
	}
	if v := c.get(record, colHadmID); v != "" {
		hadmID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("invalid HADM_ID %q", v)
		}
		note.HadmID = &hadmID
	}
	if note.Category == "" {
		return nil, false, errors.New("missing CATEGORY")
	}
	if err := note.Validate(); err != nil {
		return nil, false, err
	}
	return note, false, nil
}
