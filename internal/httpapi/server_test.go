package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/clinical-mcp/internal/clinical"
	"github.com/dshills/clinical-mcp/pkg/types"
)

type fakeTools struct {
	panicOn string
}

func (f *fakeTools) SummaryFromDB(ctx context.Context, patientID string) clinical.SummaryResult {
	if f.panicOn == "db" {
		panic("database handle closed")
	}
	if patientID != "109" {
		return clinical.Fallback(clinical.NoteNotFound, patientID)
	}
	return clinical.SummaryResult{Source: clinical.SourceLocalStore, PatientID: patientID, AISummary: "Recovering well."}
}

func (f *fakeTools) SummaryFromFHIR(ctx context.Context, patientID string) clinical.SummaryResult {
	return clinical.Fallback(clinical.RecordUnavailable, patientID)
}

func (f *fakeTools) SearchGuidelines(ctx context.Context, topic string) interface{} {
	if topic == "hypertension" {
		return []types.Guideline{{ID: "GUID-HTN-01", Topic: "hypertension", Title: "Hypertension"}}
	}
	return map[string]interface{}{"error": "No guidelines found for topic '" + topic + "'."}
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error {
	return f.err
}

func newTestServer(tools Tools, store Pinger, mcpHandler http.Handler) *Server {
	return New(tools, mcpHandler, store, Options{
		Version:     "1.0.0",
		StoreDriver: "sqlite",
		Provider:    "echo",
		Model:       "echo",
	}, zerolog.Nop())
}

func do(t *testing.T, s *Server, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRoot(t *testing.T) {
	s := newTestServer(&fakeTools{}, &fakePinger{}, nil)

	rec := do(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RootMessage, rec.Body.String())
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s := newTestServer(&fakeTools{}, &fakePinger{}, nil)

		rec := do(t, s, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "sqlite", body["store"])
		assert.Equal(t, "echo", body["provider"])
		assert.Equal(t, "echo", body["model"])
	})

	t.Run("store unreachable", func(t *testing.T) {
		s := newTestServer(&fakeTools{}, &fakePinger{err: errors.New("database is locked")}, nil)

		rec := do(t, s, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, "unhealthy", body["status"])
		assert.Equal(t, "database is locked", body["error"])
	})
}

func TestSummaryRoutes(t *testing.T) {
	s := newTestServer(&fakeTools{}, &fakePinger{}, nil)

	t.Run("db summary", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/patients/109/summary/db", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, "local store", body["source"])
		assert.Equal(t, "109", body["patientId"])
		assert.Equal(t, "Recovering well.", body["ai_summary"])
	})

	t.Run("fallback is still 200", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/patients/does-not-exist/summary/fhir", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		assert.Contains(t, body["summary"], "does-not-exist")
		assert.NotContains(t, body, "ai_summary")
	})
}

func TestGuidelinesRoute(t *testing.T) {
	s := newTestServer(&fakeTools{}, &fakePinger{}, nil)

	rec := do(t, s, http.MethodGet, "/api/guidelines?topic=hypertension", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var list []types.Guideline
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "GUID-HTN-01", list[0].ID)

	rec = do(t, s, http.MethodGet, "/api/guidelines?topic=unknown", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No guidelines found for topic 'unknown'.", decode(t, rec)["error"])
}

func TestPanicBecomes500(t *testing.T) {
	s := newTestServer(&fakeTools{panicOn: "db"}, &fakePinger{}, nil)

	rec := do(t, s, http.MethodGet, "/api/patients/109/summary/db", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "database handle closed")
}

func TestRequestLogCarriesSentStatus(t *testing.T) {
	tests := []struct {
		name   string
		tools  *fakeTools
		target string
		status int
	}{
		{"ok", &fakeTools{}, "/api/patients/109/summary/db", http.StatusOK},
		{"unknown route", &fakeTools{}, "/api/nothing-here", http.StatusNotFound},
		{"panic", &fakeTools{panicOn: "db"}, "/api/patients/109/summary/db", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			s := New(tt.tools, nil, &fakePinger{}, Options{Version: "1.0.0"}, zerolog.New(&logs))

			rec := do(t, s, http.MethodGet, tt.target, nil)
			require.Equal(t, tt.status, rec.Code)

			line := requestLogLine(t, &logs)
			assert.EqualValues(t, tt.status, line["status"])
			assert.Equal(t, rec.Header().Get(RequestIDHeader), line["request_id"])
		})
	}
}

func requestLogLine(t *testing.T, logs *bytes.Buffer) map[string]interface{} {
	t.Helper()
	for _, raw := range bytes.Split(logs.Bytes(), []byte("\n")) {
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &line))
		if line["message"] == "request" {
			return line
		}
	}
	t.Fatalf("no request log line in %q", logs.String())
	return nil
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(&fakeTools{}, &fakePinger{}, nil)

	rec := do(t, s, http.MethodGet, "/api/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["error"])
}

func TestMCPMount(t *testing.T) {
	var gotMethod string
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusAccepted)
	})
	s := newTestServer(&fakeTools{}, &fakePinger{}, mcpHandler)

	rec := do(t, s, http.MethodPost, "/mcp", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, http.MethodPost, gotMethod)
}

func TestOpenAPIDocument(t *testing.T) {
	s := newTestServer(&fakeTools{}, &fakePinger{}, nil)

	rec := do(t, s, http.MethodGet, "/openapi.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "3.0.3", body["openapi"])

	paths, ok := body["paths"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, paths, "/api/patients/{patientId}/summary/db")
	assert.Contains(t, paths, "/api/patients/{patientId}/summary/fhir")
	assert.Contains(t, paths, "/api/guidelines")
}

func TestRequestID(t *testing.T) {
	e := echo.New()

	t.Run("generates new", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		h := RequestID()(func(c echo.Context) error {
			assert.NotEmpty(t, requestID(c))
			return c.String(http.StatusOK, "ok")
		})
		require.NoError(t, h(c))
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	})

	t.Run("preserves existing", func(t *testing.T) {
		s := newTestServer(&fakeTools{}, &fakePinger{}, nil)

		rec := do(t, s, http.MethodGet, "/", map[string]string{RequestIDHeader: "my-custom-id"})
		assert.Equal(t, "my-custom-id", rec.Header().Get(RequestIDHeader))
	})
}
