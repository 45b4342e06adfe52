package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/aiscan/internal/db"
	"horse.fit/aiscan/internal/ingest"
	"horse.fit/aiscan/internal/pipeline"
)

type triggerCalls struct {
	ingestBuckets [][]string
	publishDates  []time.Time
	publishCfgs   []pipeline.RankConfig
}

func newTestServer(apiKey string, calls *triggerCalls) *Server {
	ingestFn := func(_ context.Context, buckets []string) (ingest.Result, error) {
		calls.ingestBuckets = append(calls.ingestBuckets, buckets)
		return ingest.Result{RunID: 1, Status: "success"}, nil
	}
	publishFn := func(_ context.Context, date time.Time, cfg pipeline.RankConfig) (pipeline.PublishResult, error) {
		calls.publishDates = append(calls.publishDates, date)
		calls.publishCfgs = append(calls.publishCfgs, cfg)
		return pipeline.PublishResult{RunID: 2, DigestDate: date}, nil
	}

	return NewServer(&db.Pool{}, zerolog.Nop(), Options{
		InternalAPIKey: apiKey,
		BaseRank: pipeline.RankConfig{
			MediaMax:             40,
			PracticalTargetRatio: 0.85,
			RepeatWindowDays:     7,
		},
	}, ingestFn, publishFn)
}

func decodeJSend(t *testing.T, rec *httptest.ResponseRecorder) jsendResponse {
	t.Helper()
	var resp jsendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	server := newTestServer("", &triggerCalls{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	server.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp := decodeJSend(t, rec); resp.Status != "success" {
		t.Fatalf("expected success, got %q", resp.Status)
	}
}

func TestInternalEndpointsRejectWithoutConfiguredKey(t *testing.T) {
	t.Parallel()

	calls := &triggerCalls{}
	server := newTestServer("", calls)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/ingest", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-internal-api-key", "anything")
	server.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured key must yield 503, got %d", rec.Code)
	}
	if len(calls.ingestBuckets) != 0 {
		t.Fatalf("ingest must not run without a configured key")
	}
}

func TestInternalEndpointsRejectWrongKey(t *testing.T) {
	t.Parallel()

	calls := &triggerCalls{}
	server := newTestServer("secret", calls)

	for _, key := range []string{"", "wrong"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/ingest", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("x-internal-api-key", key)
		}
		server.router().ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("key %q must yield 401, got %d", key, rec.Code)
		}
	}
	if len(calls.ingestBuckets) != 0 {
		t.Fatalf("ingest must not run with a bad key")
	}
}

func TestInternalIngestPassesBuckets(t *testing.T) {
	t.Parallel()

	calls := &triggerCalls{}
	server := newTestServer("secret", calls)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/ingest",
		bytes.NewBufferString(`{"sourceBuckets":["media"," PRACTICAL "]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-internal-api-key", "secret")
	server.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(calls.ingestBuckets) != 1 {
		t.Fatalf("expected one ingest run, got %d", len(calls.ingestBuckets))
	}
	got := calls.ingestBuckets[0]
	if len(got) != 2 || got[0] != "MEDIA" || got[1] != "PRACTICAL" {
		t.Fatalf("buckets should be normalized, got %v", got)
	}
}

func TestInternalIngestRejectsUnknownBucket(t *testing.T) {
	t.Parallel()

	calls := &triggerCalls{}
	server := newTestServer("secret", calls)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/ingest",
		bytes.NewBufferString(`{"sourceBuckets":["VIDEO"]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-internal-api-key", "secret")
	server.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown bucket must yield 400, got %d", rec.Code)
	}
	if len(calls.ingestBuckets) != 0 {
		t.Fatalf("ingest must not run with invalid buckets")
	}
}

func TestInternalPublishAppliesOverrides(t *testing.T) {
	t.Parallel()

	calls := &triggerCalls{}
	server := newTestServer("secret", calls)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/publish",
		bytes.NewBufferString(`{"date":"2026-08-27","mediaMax":10,"practicalTargetRatio":0.6,"repeatWindowDays":3}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-internal-api-key", "secret")
	server.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(calls.publishCfgs) != 1 {
		t.Fatalf("expected one publish run, got %d", len(calls.publishCfgs))
	}

	cfg := calls.publishCfgs[0]
	if cfg.MediaMax != 10 || cfg.PracticalTargetRatio != 0.6 || cfg.RepeatWindowDays != 3 {
		t.Fatalf("overrides should apply, got %+v", cfg)
	}
	if got := calls.publishDates[0].Format("2006-01-02"); got != "2026-08-27" {
		t.Fatalf("date override should apply, got %s", got)
	}
}

func TestInternalPublishKeepsDefaults(t *testing.T) {
	t.Parallel()

	calls := &triggerCalls{}
	server := newTestServer("secret", calls)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/publish", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-internal-api-key", "secret")
	server.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	cfg := calls.publishCfgs[0]
	if cfg.MediaMax != 40 || cfg.PracticalTargetRatio != 0.85 || cfg.RepeatWindowDays != 7 {
		t.Fatalf("defaults should pass through untouched, got %+v", cfg)
	}
}

func TestInternalPublishRejectsBadOverrides(t *testing.T) {
	t.Parallel()

	calls := &triggerCalls{}
	server := newTestServer("secret", calls)

	for _, body := range []string{
		`{"date":"08/27/2026"}`,
		`{"practicalTargetRatio":1.5}`,
		`{"mediaMax":-1}`,
		`{"repeatWindowDays":0}`,
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/publish", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-internal-api-key", "secret")
		server.router().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s must yield 400, got %d", body, rec.Code)
		}
	}
	if len(calls.publishCfgs) != 0 {
		t.Fatalf("publish must not run with invalid overrides")
	}
}

func TestDigestDateValidation(t *testing.T) {
	t.Parallel()

	server := newTestServer("", &triggerCalls{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/digest/not-a-date", nil)
	server.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date must yield 400, got %d", rec.Code)
	}
	if resp := decodeJSend(t, rec); resp.Status != "fail" {
		t.Fatalf("expected fail status, got %q", resp.Status)
	}
}
