package ingest

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"horse.fit/aiscan/internal/db"
	sourceschema "horse.fit/aiscan/schema"
)

func TestFetchHuggingFaceModels(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("sort"); got != "trendingScore" {
			t.Errorf("models must sort by trendingScore, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"meta-llama/Llama-4","likes":1200,"downloads":500000,"lastModified":"2026-08-27T10:00:00Z","pipeline_tag":"text-generation","author":"meta-llama"},
			{"modelId":"org/tiny","likes":3,"downloads":10}
		]`))
	}))
	defer server.Close()

	items, err := testFetcher(server.URL).fetchHuggingFaceItems(
		context.Background(), db.SourceRecord{}, &sourceschema.SourceConfig{})
	if err != nil {
		t.Fatalf("fetchHuggingFaceItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.Title != "[HF Model] meta-llama/Llama-4" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.URL != "https://huggingface.co/meta-llama/Llama-4" {
		t.Fatalf("unexpected url %q", first.URL)
	}
	if first.PracticalScore == nil || *first.PracticalScore != 0.9 {
		t.Fatalf("model items carry practical score 0.9, got %v", first.PracticalScore)
	}
	wantEngagement := math.Log1p(501200) / math.Log(500000)
	if wantEngagement > 1 {
		wantEngagement = 1
	}
	if first.EngagementProxy == nil || math.Abs(*first.EngagementProxy-wantEngagement) > 1e-9 {
		t.Fatalf("unexpected engagement %v, want %f", first.EngagementProxy, wantEngagement)
	}
	if first.Content != "text-generation" {
		t.Fatalf("pipeline tag should become content, got %q", first.Content)
	}

	if items[1].ExternalID != "org/tiny" {
		t.Fatalf("modelId should back-fill the id, got %q", items[1].ExternalID)
	}
	if items[1].Author != "Hugging Face" {
		t.Fatalf("missing author should default to Hugging Face, got %q", items[1].Author)
	}
}

func TestFetchHuggingFaceSpaces(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/spaces" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("sort"); got != "likes" {
			t.Errorf("spaces must sort by likes, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"acme/demo","likes":420}]`))
	}))
	defer server.Close()

	cfg := &sourceschema.SourceConfig{EntityType: "spaces", Limit: 10}
	items, err := testFetcher(server.URL).fetchHuggingFaceItems(context.Background(), db.SourceRecord{}, cfg)
	if err != nil {
		t.Fatalf("fetchHuggingFaceItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Title != "[HF Space] acme/demo" {
		t.Fatalf("unexpected title %q", items[0].Title)
	}
	if items[0].URL != "https://huggingface.co/spaces/acme/demo" {
		t.Fatalf("unexpected url %q", items[0].URL)
	}
	if items[0].PracticalScore == nil || *items[0].PracticalScore != 0.82 {
		t.Fatalf("space items carry practical score 0.82, got %v", items[0].PracticalScore)
	}
}
