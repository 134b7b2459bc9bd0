package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatientRecord_FullName(t *testing.T) {
	tests := []struct {
		name    string
		patient PatientRecord
		want    string
	}{
		{"given and family", PatientRecord{GivenNames: []string{"Jane", "Q"}, FamilyName: "Doe"}, "Jane Q Doe"},
		{"family only", PatientRecord{FamilyName: "Doe"}, "Doe"},
		{"given only", PatientRecord{GivenNames: []string{"Jane"}}, "Jane"},
		{"blank parts skipped", PatientRecord{GivenNames: []string{" ", "Jane"}, FamilyName: " "}, "Jane"},
		{"nothing known", PatientRecord{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.patient.FullName())
		})
	}
}

func TestGuideline_MatchesTopic(t *testing.T) {
	g := Guideline{ID: "GUID-HTN-01", Topic: "hypertension"}

	assert.True(t, g.MatchesTopic("Hypertension"))
	assert.True(t, g.MatchesTopic("hypertension"))
	assert.True(t, g.MatchesTopic("TENSION"))
	assert.False(t, g.MatchesTopic("diabetes"))
}

func TestClinicalNote_Validate(t *testing.T) {
	assert.NoError(t, (&ClinicalNote{SubjectID: "109", Text: "ok"}).Validate())
	assert.ErrorIs(t, (&ClinicalNote{Text: "ok"}).Validate(), ErrEmptyPatientID)
	assert.ErrorIs(t, (&ClinicalNote{SubjectID: "109", Text: "  "}).Validate(), ErrEmptyNoteText)
}

func TestPatientBundle_Degraded(t *testing.T) {
	b := &PatientBundle{}
	assert.False(t, b.Degraded())

	b.ObservationsErr = ErrUpstream
	assert.True(t, b.Degraded())
}
