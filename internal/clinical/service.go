package clinical

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/dshills/clinical-mcp/internal/narrative"
	"github.com/dshills/clinical-mcp/internal/prompt"
	"github.com/dshills/clinical-mcp/internal/summarizer"
	"github.com/dshills/clinical-mcp/pkg/types"
)

// NoteSource returns the most recent note of a category for a subject
type NoteSource interface {
	GetLatestNote(ctx context.Context, subjectID, category string) (*types.ClinicalNote, error)
}

// RecordSource fetches a patient and their recent clinical data
type RecordSource interface {
	FetchPatientBundle(ctx context.Context, patientID string) (*types.PatientBundle, error)
}

// Options tune the generation step
type Options struct {
	NoteCategory     string  // Defaults to types.DischargeSummaryCategory
	MaxTokens        int     // Defaults to summarizer.DefaultMaxTokens
	Temperature      float32 // Used as given
	InputTokenBudget int     // Zero disables prompt truncation
}

// DefaultOptions returns the generation defaults
func DefaultOptions() Options {
	return Options{
		NoteCategory:     types.DischargeSummaryCategory,
		MaxTokens:        summarizer.DefaultMaxTokens,
		Temperature:      summarizer.DefaultTemperature,
		InputTokenBudget: prompt.DefaultInputTokens,
	}
}

// Service runs the two summary pipelines. It holds no per-call state and is
// safe for concurrent use when its collaborators are.
type Service struct {
	notes      NoteSource
	records    RecordSource
	summarizer summarizer.Summarizer
	opts       Options
	logger     zerolog.Logger
}

// NewService creates a Service. records may be nil when no remote API is
// configured; SummaryFromFHIR then always falls back.
func NewService(notes NoteSource, records RecordSource, s summarizer.Summarizer, opts Options, logger zerolog.Logger) *Service {
	if opts.NoteCategory == "" {
		opts.NoteCategory = types.DischargeSummaryCategory
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = summarizer.DefaultMaxTokens
	}
	return &Service{
		notes:      notes,
		records:    records,
		summarizer: s,
		opts:       opts,
		logger:     logger.With().Str("component", "clinical").Logger(),
	}
}

// SummaryFromDB summarizes the most recent discharge note in the local
// store. Missing notes and storage errors both resolve to a fallback.
func (s *Service) SummaryFromDB(ctx context.Context, patientID string) SummaryResult {
	note, err := s.notes.GetLatestNote(ctx, patientID, s.opts.NoteCategory)
	if err != nil {
		return s.fallback(NoteNotFound, patientID, err)
	}

	p := prompt.DischargeNote(note.Text, s.opts.InputTokenBudget)
	summary, err := s.summarize(ctx, p)
	if err != nil {
		return s.fallback(NoteSummaryFailed, patientID, err)
	}

	s.logger.Info().
		Str("patient_id", patientID).
		Int64("row_id", note.RowID).
		Str("provider", summary.Provider).
		Bool("cached", summary.Cached).
		Msg("summarized local note")

	return SummaryResult{
		Source:    SourceLocalStore,
		PatientID: patientID,
		AISummary: summary.Text,
	}
}

// SummaryFromFHIR summarizes a narrative built from the remote patient
// record. A failed patient read resolves to a fallback; failed condition or
// observation searches only thin out the narrative.
func (s *Service) SummaryFromFHIR(ctx context.Context, patientID string) SummaryResult {
	if s.records == nil {
		return s.fallback(RecordUnavailable, patientID, errors.New("no remote record source configured"))
	}

	bundle, err := s.records.FetchPatientBundle(ctx, patientID)
	if err != nil {
		return s.fallback(RecordUnavailable, patientID, err)
	}
	if bundle.Degraded() {
		s.logger.Warn().
			Str("patient_id", patientID).
			AnErr("conditions_error", bundle.ConditionsErr).
			AnErr("observations_error", bundle.ObservationsErr).
			Msg("remote record partially unavailable")
	}

	text := narrative.Build(bundle.Patient, bundle.Conditions, bundle.Observations)
	p := prompt.ClinicalData(text, s.opts.InputTokenBudget)
	summary, err := s.summarize(ctx, p)
	if err != nil {
		return s.fallback(RecordSummaryFailed, patientID, err)
	}

	s.logger.Info().
		Str("patient_id", patientID).
		Int("conditions", len(bundle.Conditions)).
		Int("observations", len(bundle.Observations)).
		Str("provider", summary.Provider).
		Bool("cached", summary.Cached).
		Msg("summarized remote record")

	return SummaryResult{
		Source:      SourceRemoteAPI,
		PatientID:   patientID,
		PatientName: bundle.Patient.FullName(),
		AISummary:   summary.Text,
	}
}

func (s *Service) summarize(ctx context.Context, p prompt.Prompt) (*summarizer.Summary, error) {
	return s.summarizer.Summarize(ctx, summarizer.Request{
		System:      p.System,
		Prompt:      p.User,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
}

// fallback logs the underlying error and returns the fallback result
func (s *Service) fallback(kind FallbackKind, patientID string, err error) SummaryResult {
	event := s.logger.Error()
	if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrEmptyPatientID) {
		event = s.logger.Warn()
	}
	event.
		Err(err).
		Str("patient_id", patientID).
		Str("fallback", kind.String()).
		Msg("summary unavailable")

	return Fallback(kind, patientID)
}
