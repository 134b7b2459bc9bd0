package types

import "strings"

// DischargeSummaryCategory is the note category used for patient summaries
const DischargeSummaryCategory = "Discharge summary"

// ClinicalNote is a single free-text note from the local store
type ClinicalNote struct {
	RowID       int64
	SubjectID   string
	HadmID      *int64 // Nullable - not every note is tied to an admission
	ChartDate   string
	Category    string
	Description string
	Text        string
}

// Validate checks that the note can be stored and summarized
func (n *ClinicalNote) Validate() error {
	if strings.TrimSpace(n.SubjectID) == "" {
		return ErrEmptyPatientID
	}
	if strings.TrimSpace(n.Text) == "" {
		return ErrEmptyNoteText
	}
	return nil
}
