package fhir

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/clinical-mcp/pkg/types"
)

const patientJSON = `{
  "resourceType": "Patient",
  "id": "123",
  "name": [
    {"use": "nickname", "given": ["Jo"]},
    {"use": "official", "family": "Smith", "given": ["John", "Q"]}
  ],
  "birthDate": "1970-01-01"
}`

const conditionsJSON = `{
  "resourceType": "Bundle",
  "entry": [
    {"resource": {"resourceType": "Condition", "code": {"text": "Hypertension"}}},
    {"resource": {"resourceType": "Condition", "code": {"coding": [{"display": "Type 2 diabetes"}]}}},
    {"resource": {"resourceType": "Condition"}},
    {"resource": {"resourceType": "OperationOutcome"}}
  ]
}`

const observationsJSON = `{
  "resourceType": "Bundle",
  "entry": [
    {"resource": {"resourceType": "Observation", "code": {"text": "Heart rate"},
      "valueQuantity": {"value": 72, "unit": "beats/min"}, "effectiveDateTime": "2024-01-02"}},
    {"resource": {"resourceType": "Observation", "code": {"text": "Smoking status"},
      "valueCodeableConcept": {"coding": [{"display": "Never smoker"}]}}},
    {"resource": {"resourceType": "Observation", "code": {"text": "Glucose"},
      "valueQuantity": {"value": "high", "code": "mg/dL"}}},
    {"resource": {"resourceType": "Observation", "valueString": "see note"}}
  ]
}`

type fakeServer struct {
	patientStatus     int
	conditionsStatus  int
	observationStatus int
	patientBody       string
	observationBody   string
	conditionQuery    atomic.Value
	observationQuery  atomic.Value
	acceptHeader      atomic.Value
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		patientStatus:     http.StatusOK,
		conditionsStatus:  http.StatusOK,
		observationStatus: http.StatusOK,
		patientBody:       patientJSON,
		observationBody:   observationsJSON,
	}
}

func (f *fakeServer) start(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/Patient/", func(w http.ResponseWriter, r *http.Request) {
		f.acceptHeader.Store(r.Header.Get("Accept"))
		if r.URL.Path != "/Patient/123" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"resourceType":"OperationOutcome"}`))
			return
		}
		w.WriteHeader(f.patientStatus)
		_, _ = w.Write([]byte(f.patientBody))
	})
	mux.HandleFunc("/Condition", func(w http.ResponseWriter, r *http.Request) {
		f.conditionQuery.Store(r.URL.Query())
		w.WriteHeader(f.conditionsStatus)
		_, _ = w.Write([]byte(conditionsJSON))
	})
	mux.HandleFunc("/Observation", func(w http.ResponseWriter, r *http.Request) {
		f.observationQuery.Store(r.URL.Query())
		w.WriteHeader(f.observationStatus)
		_, _ = w.Write([]byte(f.observationBody))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchPatientBundle(t *testing.T) {
	fake := newFakeServer()
	server := fake.start(t)
	client := NewClient(server.URL+"/", time.Second)

	bundle, err := client.FetchPatientBundle(context.Background(), "123")
	require.NoError(t, err)

	assert.Equal(t, "123", bundle.Patient.ID)
	assert.Equal(t, "John Q Smith", bundle.Patient.FullName())
	assert.Equal(t, "1970-01-01", bundle.Patient.BirthDate)
	assert.False(t, bundle.Degraded())

	assert.Equal(t, []types.ConditionEntry{
		{Description: "Hypertension"},
		{Description: "Type 2 diabetes"},
		{Description: UnspecifiedCondition},
	}, bundle.Conditions)

	require.Len(t, bundle.Observations, 4)
	hr := bundle.Observations[0]
	assert.Equal(t, "Heart rate", hr.Label)
	require.NotNil(t, hr.Quantity)
	assert.Equal(t, "72", hr.Quantity.RawValue)
	assert.Equal(t, "beats/min", hr.Quantity.Unit)
	assert.Equal(t, "2024-01-02", hr.EffectiveDateTime)

	assert.Equal(t, "Never smoker", bundle.Observations[1].CodedText)
	assert.Nil(t, bundle.Observations[1].Quantity)

	glucose := bundle.Observations[2]
	require.NotNil(t, glucose.Quantity)
	assert.Equal(t, "high", glucose.Quantity.RawValue)
	assert.Equal(t, "mg/dL", glucose.Quantity.Unit)

	assert.Equal(t, UnnamedObservation, bundle.Observations[3].Label)
	assert.Equal(t, "see note", bundle.Observations[3].CodedText)

	assert.Equal(t, MediaTypeFHIRJSON, fake.acceptHeader.Load())

	cq := fake.conditionQuery.Load().(url.Values)
	assert.Equal(t, []string{"123"}, cq["patient"])
	assert.Equal(t, []string{ConditionActive}, cq["clinical-status"])

	oq := fake.observationQuery.Load().(url.Values)
	assert.Equal(t, []string{"-date"}, oq["_sort"])
	assert.Equal(t, []string{"5"}, oq["_count"])
}

func TestFetchPatientBundle_PatientNotFound(t *testing.T) {
	server := newFakeServer().start(t)
	client := NewClient(server.URL, time.Second)

	_, err := client.FetchPatientBundle(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPatientNotFound)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Contains(t, err.Error(), "does-not-exist")
}

func TestFetchPatientBundle_WrongResourceType(t *testing.T) {
	fake := newFakeServer()
	fake.patientBody = `{"resourceType":"OperationOutcome","issue":[]}`
	server := fake.start(t)

	_, err := NewClient(server.URL, time.Second).FetchPatientBundle(context.Background(), "123")
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestFetchPatientBundle_PatientServerError(t *testing.T) {
	fake := newFakeServer()
	fake.patientStatus = http.StatusInternalServerError
	server := fake.start(t)

	_, err := NewClient(server.URL, time.Second).FetchPatientBundle(context.Background(), "123")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, types.ErrUpstream)
	assert.NotErrorIs(t, err, types.ErrNotFound)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestFetchPatientBundle_MalformedPatient(t *testing.T) {
	fake := newFakeServer()
	fake.patientBody = `{not json`
	server := fake.start(t)

	_, err := NewClient(server.URL, time.Second).FetchPatientBundle(context.Background(), "123")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestFetchPatientBundle_SearchesDegrade(t *testing.T) {
	fake := newFakeServer()
	fake.conditionsStatus = http.StatusInternalServerError
	fake.observationStatus = http.StatusBadRequest
	server := fake.start(t)

	bundle, err := NewClient(server.URL, time.Second).FetchPatientBundle(context.Background(), "123")
	require.NoError(t, err)

	assert.True(t, bundle.Degraded())
	assert.Empty(t, bundle.Conditions)
	assert.Empty(t, bundle.Observations)
	assert.ErrorIs(t, bundle.ConditionsErr, ErrUpstream)
	assert.ErrorIs(t, bundle.ObservationsErr, ErrUpstream)
}

func TestFetchPatientBundle_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	_, err := NewClient(addr, time.Second).FetchPatientBundle(context.Background(), "123")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestFetchPatientBundle_EmptyID(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", time.Second)
	_, err := client.FetchPatientBundle(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrEmptyPatientID)
}

func TestFetchPatientBundle_IDIsNotTrimmed(t *testing.T) {
	server := newFakeServer().start(t)
	client := NewClient(server.URL, time.Second)

	_, err := client.FetchPatientBundle(context.Background(), " 123 ")
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestSearchRecentObservations_CapsResults(t *testing.T) {
	entries := ""
	for i := 0; i < 8; i++ {
		if i > 0 {
			entries += ","
		}
		entries += fmt.Sprintf(`{"resource":{"resourceType":"Observation","code":{"text":"obs %d"},"valueQuantity":{"value":%d}}}`, i, i)
	}
	fake := newFakeServer()
	fake.observationBody = `{"resourceType":"Bundle","entry":[` + entries + `]}`
	server := fake.start(t)

	client := NewClient(server.URL, time.Second, WithObservationCount(3))
	bundle, err := client.FetchPatientBundle(context.Background(), "123")
	require.NoError(t, err)

	require.Len(t, bundle.Observations, 3)
	assert.Equal(t, "obs 0", bundle.Observations[0].Label)
	assert.Equal(t, "obs 2", bundle.Observations[2].Label)

	oq := fake.observationQuery.Load().(url.Values)
	assert.Equal(t, []string{"3"}, oq["_count"])
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("", 0)
	assert.Equal(t, DefaultBaseURL, client.BaseURL())
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
	assert.Equal(t, DefaultObservationCount, client.observationCount)

	hc := &http.Client{}
	client = NewClient("http://example.test/fhir/", time.Second, WithHTTPClient(hc), WithObservationCount(-1))
	assert.Equal(t, "http://example.test/fhir", client.BaseURL())
	assert.Same(t, hc, client.httpClient)
	assert.Equal(t, DefaultObservationCount, client.observationCount)
}
