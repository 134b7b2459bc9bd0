package guidelines

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dshills/clinical-mcp/internal/storage"
	"github.com/dshills/clinical-mcp/pkg/types"
)

// Source names
const (
	SourceStatic = "static"
	SourceStore  = "store"
)

//go:embed default_guidelines.json
var defaultGuidelinesJSON []byte

// NotFoundError is returned when no guideline matches a topic
type NotFoundError struct {
	Topic string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No guidelines found for topic '%s'.", e.Topic)
}

// Is makes errors.Is(err, types.ErrNotFound) hold
func (e *NotFoundError) Is(target error) bool {
	return target == types.ErrNotFound
}

// Searcher looks up guidelines by topic. Matching is a case-insensitive
// substring test of the untrimmed query against each guideline topic, so an
// empty query matches every record. An empty result is a *NotFoundError,
// never an empty slice.
type Searcher interface {
	Search(ctx context.Context, topic string) ([]types.Guideline, error)
}

// StaticSearcher searches an immutable in-memory list
type StaticSearcher struct {
	records []types.Guideline
}

// NewStaticSearcher copies records into a new searcher
func NewStaticSearcher(records []types.Guideline) *StaticSearcher {
	return &StaticSearcher{
		records: append([]types.Guideline(nil), records...),
	}
}

// NewDefaultSearcher searches the built-in guideline list
func NewDefaultSearcher() (*StaticSearcher, error) {
	records, err := Default()
	if err != nil {
		return nil, err
	}
	return NewStaticSearcher(records), nil
}

// Search implements Searcher
func (s *StaticSearcher) Search(ctx context.Context, topic string) ([]types.Guideline, error) {
	results := make([]types.Guideline, 0)
	for _, g := range s.records {
		if g.MatchesTopic(topic) {
			results = append(results, g)
		}
	}
	if len(results) == 0 {
		return nil, &NotFoundError{Topic: topic}
	}
	return results, nil
}

// Len returns the number of records
func (s *StaticSearcher) Len() int {
	return len(s.records)
}

// StoreSearcher searches the guidelines table of the local store
type StoreSearcher struct {
	store storage.GuidelineStore
}

// NewStoreSearcher creates a searcher backed by store
func NewStoreSearcher(store storage.GuidelineStore) *StoreSearcher {
	return &StoreSearcher{store: store}
}

// Search implements Searcher
func (s *StoreSearcher) Search(ctx context.Context, topic string) ([]types.Guideline, error) {
	found, err := s.store.SearchGuidelines(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("search guidelines: %w", err)
	}
	if len(found) == 0 {
		return nil, &NotFoundError{Topic: topic}
	}

	results := make([]types.Guideline, len(found))
	for i, g := range found {
		results[i] = *g
	}
	return results, nil
}

// Default returns the built-in guideline list
func Default() ([]types.Guideline, error) {
	return Decode(bytes.NewReader(defaultGuidelinesJSON))
}

// Decode reads a JSON array of guidelines and validates each record
func Decode(r io.Reader) ([]types.Guideline, error) {
	var records []types.Guideline
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode guidelines: %w", err)
	}

	seen := make(map[string]bool, len(records))
	for i, g := range records {
		if err := Validate(g); err != nil {
			return nil, fmt.Errorf("guideline %d: %w", i, err)
		}
		if seen[g.ID] {
			return nil, fmt.Errorf("guideline %d: duplicate id %s", i, g.ID)
		}
		seen[g.ID] = true
	}
	return records, nil
}

// ErrInvalidGuideline is returned for records missing required fields
var ErrInvalidGuideline = errors.New("invalid guideline")

// Validate checks the required guideline fields
func Validate(g types.Guideline) error {
	switch {
	case strings.TrimSpace(g.ID) == "":
		return fmt.Errorf("%w: guidelineId is required", ErrInvalidGuideline)
	case strings.TrimSpace(g.Topic) == "":
		return fmt.Errorf("%w: %w", ErrInvalidGuideline, types.ErrEmptyTopic)
	case strings.TrimSpace(g.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidGuideline)
	}
	return nil
}
