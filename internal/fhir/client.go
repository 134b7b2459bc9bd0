package fhir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/clinical-mcp/pkg/types"
)

// Client defaults
const (
	DefaultBaseURL          = "https://hapi.fhir.org/baseR4"
	DefaultTimeout          = 30 * time.Second
	DefaultObservationCount = 5

	// maxErrorBody caps how much of an error response is kept
	maxErrorBody = 512
)

var (
	// ErrPatientNotFound is returned when the server has no such patient
	ErrPatientNotFound = fmt.Errorf("patient %w", types.ErrNotFound)
	// ErrUpstream is returned for transport, status and decode failures
	ErrUpstream = fmt.Errorf("fhir server: %w", types.ErrUpstream)
)

// StatusError reports a non-2xx response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// Client reads patient data from a FHIR R4 server. It is safe for
// concurrent use.
type Client struct {
	baseURL          string
	httpClient       *http.Client
	observationCount int
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithObservationCount sets how many recent observations are requested
func WithObservationCount(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.observationCount = n
		}
	}
}

// NewClient creates a client for baseURL. An empty baseURL uses the public
// HAPI test server and a non-positive timeout uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		observationCount: DefaultObservationCount,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchPatientBundle reads the patient, then searches active conditions and
// recent observations concurrently. A failed patient read fails the whole
// call; a failed search leaves its list empty and records the error on the
// bundle.
func (c *Client) FetchPatientBundle(ctx context.Context, patientID string) (*types.PatientBundle, error) {
	patient, err := c.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	bundle := &types.PatientBundle{
		Patient:      *patient,
		Conditions:   []types.ConditionEntry{},
		Observations: []types.ObservationEntry{},
	}

	var g errgroup.Group
	g.Go(func() error {
		conditions, err := c.SearchActiveConditions(ctx, patientID)
		if err != nil {
			bundle.ConditionsErr = err
			return nil
		}
		bundle.Conditions = conditions
		return nil
	})
	g.Go(func() error {
		observations, err := c.SearchRecentObservations(ctx, patientID, c.observationCount)
		if err != nil {
			bundle.ObservationsErr = err
			return nil
		}
		bundle.Observations = observations
		return nil
	})
	_ = g.Wait()

	return bundle, nil
}

// GetPatient reads Patient/{id}
func (c *Client) GetPatient(ctx context.Context, patientID string) (*types.PatientRecord, error) {
	if patientID == "" {
		return nil, types.ErrEmptyPatientID
	}

	var p Patient
	err := c.get(ctx, ResourcePatient+"/"+url.PathEscape(patientID), nil, &p)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusGone) {
			return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
		}
		return nil, err
	}
	if p.ResourceType != ResourcePatient {
		return nil, fmt.Errorf("%w: %s (got resourceType %q)", ErrPatientNotFound, patientID, p.ResourceType)
	}

	record := &types.PatientRecord{
		ID:        p.ID,
		BirthDate: p.BirthDate,
	}
	if record.ID == "" {
		record.ID = patientID
	}
	if name := p.PreferredName(); name != nil {
		record.GivenNames = name.Given
		record.FamilyName = name.Family
		if len(name.Given) == 0 && name.Family == "" {
			// Only a display text was supplied
			record.FamilyName = name.Text
		}
	}
	return record, nil
}

// SearchActiveConditions searches conditions with clinical status active
func (c *Client) SearchActiveConditions(ctx context.Context, patientID string) ([]types.ConditionEntry, error) {
	query := url.Values{}
	query.Set("patient", patientID)
	query.Set("clinical-status", ConditionActive)

	var b Bundle[Condition]
	if err := c.get(ctx, ResourceCondition, query, &b); err != nil {
		return nil, err
	}

	conditions := make([]types.ConditionEntry, 0, len(b.Entry))
	for _, e := range b.Entry {
		if e.Resource.ResourceType != ResourceCondition {
			continue
		}
		description := e.Resource.Code.DisplayText()
		if description == "" {
			description = UnspecifiedCondition
		}
		conditions = append(conditions, types.ConditionEntry{Description: description})
	}
	return conditions, nil
}

// SearchRecentObservations returns up to count observations, newest first
func (c *Client) SearchRecentObservations(ctx context.Context, patientID string, count int) ([]types.ObservationEntry, error) {
	if count <= 0 {
		count = DefaultObservationCount
	}

	query := url.Values{}
	query.Set("patient", patientID)
	query.Set("_sort", "-date")
	query.Set("_count", strconv.Itoa(count))

	var b Bundle[Observation]
	if err := c.get(ctx, ResourceObservation, query, &b); err != nil {
		return nil, err
	}

	observations := make([]types.ObservationEntry, 0, len(b.Entry))
	for _, e := range b.Entry {
		if len(observations) == count {
			break
		}
		if e.Resource.ResourceType != ResourceObservation {
			continue
		}
		observations = append(observations, toObservationEntry(&e.Resource))
	}
	return observations, nil
}

func toObservationEntry(o *Observation) types.ObservationEntry {
	entry := types.ObservationEntry{
		Label:             o.Code.DisplayText(),
		EffectiveDateTime: o.EffectiveDateTime,
	}
	if entry.Label == "" {
		entry.Label = UnnamedObservation
	}

	switch {
	case o.ValueQuantity != nil && o.ValueQuantity.RawValue() != "":
		unit := o.ValueQuantity.Unit
		if unit == "" {
			unit = o.ValueQuantity.Code
		}
		entry.Quantity = &types.Quantity{
			RawValue: o.ValueQuantity.RawValue(),
			Unit:     unit,
		}
	case o.ValueCodeableConcept != nil:
		entry.CodedText = o.ValueCodeableConcept.DisplayText()
	case o.ValueString != nil:
		entry.CodedText = strings.TrimSpace(*o.ValueString)
	}
	return entry
}

// get performs a GET against the server and decodes the JSON body into out
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", MediaTypeFHIRJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s: %w", ErrUpstream, path, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUpstream, path, err)
	}
	return nil
}
