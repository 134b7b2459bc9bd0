package importer

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/clinical-mcp/internal/storage"
	"github.com/dshills/clinical-mcp/pkg/types"
)

const noteEventsCSV = `ROW_ID,SUBJECT_ID,HADM_ID,CHARTDATE,CHARTTIME,STORETIME,CATEGORY,DESCRIPTION,CGID,ISERROR,TEXT
174,109,172335,2141-09-24,,,Discharge summary,Report,,,"Admission Date:  [**2141-9-18**]
Patient recovering well..."
175,109,,2141-09-20,,,Nursing/other,Report,,,"Nursing note"
176,42,100001,2150-01-01,,,Discharge summary,Report,,1,"Flagged as error"
177,43,not-a-number,2150-01-01,,,Discharge summary,Report,,,"Bad admission id"
178,44,100002,2150-01-01,,,Discharge summary,Report,,,""
`

func setupTest(t *testing.T) (*Importer, *storage.SQLiteStorage) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, zerolog.Nop()), store
}

func TestImportNotes(t *testing.T) {
	im, store := setupTest(t)
	ctx := context.Background()

	stats, err := im.ImportNotes(ctx, strings.NewReader(noteEventsCSV), &Config{BatchSize: 1})
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Rows)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 0, stats.Duplicates)
	assert.Equal(t, 3, stats.Skipped)
	assert.Len(t, stats.ErrorMessages, 2)
	assert.Contains(t, stats.ErrorMessages[0], "HADM_ID")
	assert.Greater(t, stats.Duration.Nanoseconds(), int64(0))

	note, err := store.GetLatestNote(ctx, "109", types.DischargeSummaryCategory)
	require.NoError(t, err)
	assert.Equal(t, int64(174), note.RowID)
	assert.Equal(t, "Admission Date:  [**2141-9-18**]\nPatient recovering well...", note.Text)
	require.NotNil(t, note.HadmID)
	assert.Equal(t, int64(172335), *note.HadmID)
	assert.Equal(t, "Report", note.Description)
}

func TestImportNotes_Reimport(t *testing.T) {
	im, store := setupTest(t)
	ctx := context.Background()

	_, err := im.ImportNotes(ctx, strings.NewReader(noteEventsCSV), nil)
	require.NoError(t, err)

	stats, err := im.ImportNotes(ctx, strings.NewReader(noteEventsCSV), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Inserted)
	assert.Equal(t, 2, stats.Duplicates)

	count, err := store.CountNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestImportNotes_CategoryFilter(t *testing.T) {
	im, store := setupTest(t)
	ctx := context.Background()

	stats, err := im.ImportNotes(ctx, strings.NewReader(noteEventsCSV), &Config{Category: "discharge SUMMARY"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)

	_, err = store.GetLatestNote(ctx, "109", "Nursing/other")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestImportNotes_HeaderVariants(t *testing.T) {
	im, store := setupTest(t)
	ctx := context.Background()

	input := "\ufeffsubject_id,category,text\n7,Discharge summary,Minimal columns\n"
	stats, err := im.ImportNotes(ctx, strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)

	note, err := store.GetLatestNote(ctx, "7", types.DischargeSummaryCategory)
	require.NoError(t, err)
	assert.Equal(t, "Minimal columns", note.Text)
	assert.Nil(t, note.HadmID)
}

func TestImportNotes_MissingColumn(t *testing.T) {
	im, _ := setupTest(t)

	_, err := im.ImportNotes(context.Background(), strings.NewReader("ROW_ID,SUBJECT_ID,TEXT\n1,2,x\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATEGORY")
}

func TestImportNotes_FieldCountMismatch(t *testing.T) {
	im, _ := setupTest(t)

	input := "SUBJECT_ID,CATEGORY,TEXT\n1,Discharge summary,ok\n2,Discharge summary\n3,Discharge summary,also ok\n"
	stats, err := im.ImportNotes(context.Background(), strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], "line 3")
}

func TestImportNotes_ErrorMessagesCapped(t *testing.T) {
	im, _ := setupTest(t)

	var b strings.Builder
	b.WriteString("SUBJECT_ID,CATEGORY,TEXT\n")
	for i := 0; i < 10; i++ {
		b.WriteString("1,,text\n")
	}
	stats, err := im.ImportNotes(context.Background(), strings.NewReader(b.String()), nil)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Skipped)
	assert.Len(t, stats.ErrorMessages, maxErrorMessages)
}

func TestImportNotes_ContextCancelled(t *testing.T) {
	im, _ := setupTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := im.ImportNotes(ctx, strings.NewReader(noteEventsCSV), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImportNotes_EmptyInput(t *testing.T) {
	im, _ := setupTest(t)
	_, err := im.ImportNotes(context.Background(), strings.NewReader(""), nil)
	assert.Error(t, err)
}

func TestImportGuidelines(t *testing.T) {
	im, store := setupTest(t)
	ctx := context.Background()

	input := `[
		{"guidelineId": "GUID-HTN-01", "topic": "hypertension", "title": "HTN"},
		{"guidelineId": "GUID-CKD-01", "topic": "chronic kidney disease", "title": "KDIGO 2024", "source": "KDIGO"}
	]`
	stats, err := im.ImportGuidelines(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Inserted)

	found, err := store.SearchGuidelines(ctx, "Kidney")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "KDIGO", found[0].Source)

	_, err = im.ImportGuidelines(ctx, strings.NewReader(`[{"guidelineId": "X", "topic": "", "title": "t"}]`))
	assert.ErrorIs(t, err, types.ErrEmptyTopic)

	all, err := store.ListGuidelines(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestImportLock(t *testing.T) {
	im, _ := setupTest(t)

	require.True(t, im.lock.TryAcquire())
	_, err := im.ImportNotes(context.Background(), strings.NewReader(noteEventsCSV), nil)
	assert.ErrorIs(t, err, ErrImportInProgress)
	_, err = im.ImportGuidelines(context.Background(), strings.NewReader(`[]`))
	assert.ErrorIs(t, err, ErrImportInProgress)
	im.lock.Release()

	_, err = im.ImportGuidelines(context.Background(), strings.NewReader(`[]`))
	assert.NoError(t, err)
}

func TestImportLock_Concurrent(t *testing.T) {
	var lock ImportLock
	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lock.TryAcquire() {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, acquired)
}
