package ingest

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"horse.fit/aiscan/internal/db"
	sourceschema "horse.fit/aiscan/schema"
)

func testFetcher(serverURL string) *fetcher {
	return newFetcher(Options{
		RedditBaseURL:        serverURL,
		HuggingFaceBaseURL:   serverURL,
		ProfileMirrorBaseURL: serverURL,
	})
}

func TestFetchRedditItems(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/LocalLLaMA/hot.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("User-Agent"); got != "AIScanBot/0.1" {
			t.Errorf("unexpected user agent %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"children":[
			{"data":{"id":"abc1","title":"Llama quantization guide","permalink":"/r/LocalLLaMA/comments/abc1/","selftext":"` + strings.Repeat("x", 2000) + `","author":"tester","created_utc":1756300000,"ups":100,"num_comments":10}},
			{"data":{"id":"abc2","title":"  ","permalink":"https://example.com/post","ups":5,"num_comments":0}}
		]}}`))
	}))
	defer server.Close()

	cfg := &sourceschema.SourceConfig{Subreddit: "LocalLLaMA"}
	items, err := testFetcher(server.URL).fetchRedditItems(context.Background(), db.SourceRecord{Slug: "reddit-localllama"}, cfg)
	if err != nil {
		t.Fatalf("fetchRedditItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.URL != "https://www.reddit.com/r/LocalLLaMA/comments/abc1/" {
		t.Fatalf("relative permalink should be absolutized, got %q", first.URL)
	}
	if got := len([]rune(first.Content)); got != redditContentRunes {
		t.Fatalf("selftext should truncate to %d runes, got %d", redditContentRunes, got)
	}
	wantEngagement := math.Log1p(120) / math.Log(5000)
	if first.EngagementProxy == nil || math.Abs(*first.EngagementProxy-wantEngagement) > 1e-9 {
		t.Fatalf("unexpected engagement %v, want %f", first.EngagementProxy, wantEngagement)
	}
	if first.PracticalScore == nil || *first.PracticalScore != 0.68 {
		t.Fatalf("reddit items carry practical score 0.68, got %v", first.PracticalScore)
	}
	if first.PublishedAt == nil {
		t.Fatalf("created_utc should map to a publish time")
	}

	second := items[1]
	if second.Title != "Untitled" {
		t.Fatalf("blank titles should fall back to Untitled, got %q", second.Title)
	}
	if second.URL != "https://example.com/post" {
		t.Fatalf("absolute permalinks should pass through, got %q", second.URL)
	}
	if second.PublishedAt != nil {
		t.Fatalf("missing created_utc should leave publish time unset")
	}
}

func TestFetchRedditItemsNoSubreddit(t *testing.T) {
	t.Parallel()

	items, err := testFetcher("http://unused.invalid").fetchRedditItems(
		context.Background(), db.SourceRecord{}, &sourceschema.SourceConfig{})
	if err != nil {
		t.Fatalf("missing subreddit should not error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("missing subreddit should yield no items, got %d", len(items))
	}
}
