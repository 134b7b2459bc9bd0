package clinical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackMessages(t *testing.T) {
	tests := []struct {
		kind FallbackKind
		want string
	}{
		{NoteNotFound, "No discharge summary found for patient ID 42 in the local store."},
		{NoteSummaryFailed, "Found a discharge note for patient ID 42 but summary generation failed."},
		{RecordUnavailable, "Patient with ID '42' not found or an error occurred on the remote API."},
		{RecordSummaryFailed, "Retrieved remote data for patient ID '42' but summary generation failed."},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			result := Fallback(tt.kind, "42")
			assert.Equal(t, tt.want, result.Summary)
			assert.Empty(t, result.AISummary)
			assert.True(t, result.IsFallback())
		})
	}

	assert.Equal(t, "fallback(99)", FallbackKind(99).String())
	assert.Equal(t, "Summary unavailable.", FallbackKind(99).Message("42"))
}

func TestSummaryResultJSON(t *testing.T) {
	success, err := json.Marshal(SummaryResult{Source: SourceLocalStore, PatientID: "109", AISummary: "text"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"local store","patientId":"109","ai_summary":"text"}`, string(success))

	fallback, err := json.Marshal(Fallback(NoteNotFound, "7"))
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(fallback, &fields))
	assert.Len(t, fields, 1)
	assert.Contains(t, fields["summary"], "7")
	assert.NotContains(t, fields, "ai_summary")
}
