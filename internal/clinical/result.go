package clinical

import "fmt"

// Source tags for successful summaries
const (
	SourceLocalStore = "local store"
	SourceRemoteAPI  = "remote API"
)

// SummaryResult is the outcome of either summary pipeline. Exactly one of
// AISummary and Summary is set: AISummary on success, Summary carrying a
// human-readable fallback message otherwise.
type SummaryResult struct {
	Source      string `json:"source,omitempty"`
	PatientID   string `json:"patientId,omitempty"`
	PatientName string `json:"patientName,omitempty"`
	AISummary   string `json:"ai_summary,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

// IsFallback reports whether the result carries a fallback message
func (r SummaryResult) IsFallback() bool {
	return r.AISummary == ""
}

// FallbackKind names a failure mode of the summary pipelines
type FallbackKind int

const (
	NoteNotFound FallbackKind = iota + 1
	NoteSummaryFailed
	RecordUnavailable
	RecordSummaryFailed
)

var fallbackNames = map[FallbackKind]string{
	NoteNotFound:        "note_not_found",
	NoteSummaryFailed:   "note_summary_failed",
	RecordUnavailable:   "record_unavailable",
	RecordSummaryFailed: "record_summary_failed",
}

// fallbackMessages maps each kind to its message; %s is the patient ID
var fallbackMessages = map[FallbackKind]string{
	NoteNotFound:        "No discharge summary found for patient ID %s in the local store.",
	NoteSummaryFailed:   "Found a discharge note for patient ID %s but summary generation failed.",
	RecordUnavailable:   "Patient with ID '%s' not found or an error occurred on the remote API.",
	RecordSummaryFailed: "Retrieved remote data for patient ID '%s' but summary generation failed.",
}

func (k FallbackKind) String() string {
	if name, ok := fallbackNames[k]; ok {
		return name
	}
	return fmt.Sprintf("fallback(%d)", int(k))
}

// Message renders the fallback message with patientID inserted as given
func (k FallbackKind) Message(patientID string) string {
	format, ok := fallbackMessages[k]
	if !ok {
		return "Summary unavailable."
	}
	return fmt.Sprintf(format, patientID)
}

// Fallback builds the fallback result for kind
func Fallback(kind FallbackKind, patientID string) SummaryResult {
	return SummaryResult{Summary: kind.Message(patientID)}
}
