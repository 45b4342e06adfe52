package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"horse.fit/aiscan/internal/db"
	sourceschema "horse.fit/aiscan/schema"
)

const testRSSFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Dev Blog</title>
<language>en-us</language>
<item>
	<title>New &lt;b&gt;LLM&lt;/b&gt; agent framework</title>
	<link>https://blog.example.com/agent</link>
	<guid>post-1</guid>
	<pubDate>Wed, 27 Aug 2026 10:00:00 GMT</pubDate>
	<description>&lt;p&gt;An agent runtime with tool use. Discussion https://news.example.com/item&lt;/p&gt;</description>
</item>
<item>
	<title>Team offsite photos</title>
	<link>https://blog.example.com/offsite</link>
	<guid>post-2</guid>
	<description>Pictures from the beach</description>
</item>
</channel>
</rss>`

const testProductHuntFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>Product Hunt AI</title>
<entry>
	<id>tag:producthunt,2026:Post/1001</id>
	<title>&lt;em&gt;CodePilot AI&lt;/em&gt;</title>
	<link href="https://www.producthunt.com/posts/codepilot-ai"/>
	<published>2026-08-27T08:00:00Z</published>
	<content type="html">&lt;p&gt;An AI coding assistant for teams&lt;/p&gt;</content>
</entry>
</feed>`

func feedSource(slug, feedURL string) db.SourceRecord {
	return db.SourceRecord{
		Slug:    slug,
		URL:     "https://example.com",
		FeedURL: &feedURL,
	}
}

func TestFetchRSSItemsFiltersAndStrips(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testRSSFeed))
	}))
	defer server.Close()

	cfg := &sourceschema.SourceConfig{Keywords: []string{"agent"}}
	items, err := testFetcher(server.URL).fetchRSSItems(context.Background(), feedSource("dev-blog", server.URL), cfg)
	if err != nil {
		t.Fatalf("fetchRSSItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("keyword filter should keep 1 item, got %d", len(items))
	}

	item := items[0]
	if item.ExternalID != "post-1" {
		t.Fatalf("guid should become the external id, got %q", item.ExternalID)
	}
	if item.Title != "New LLM agent framework" {
		t.Fatalf("markup should be stripped from titles, got %q", item.Title)
	}
	if item.Content != "An agent runtime with tool use." {
		t.Fatalf("description should lose markup, urls and boilerplate, got %q", item.Content)
	}
	if item.PublishedAt == nil {
		t.Fatalf("pubDate should parse")
	}
	if item.Language != "en-us" {
		t.Fatalf("feed language should carry over, got %q", item.Language)
	}
}

func TestFetchRSSItemsLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testRSSFeed))
	}))
	defer server.Close()

	cfg := &sourceschema.SourceConfig{Limit: 1}
	items, err := testFetcher(server.URL).fetchRSSItems(context.Background(), feedSource("dev-blog", server.URL), cfg)
	if err != nil {
		t.Fatalf("fetchRSSItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("limit should cap items at 1, got %d", len(items))
	}
}

func TestFetchRSSItemsProductHunt(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(testProductHuntFeed))
	}))
	defer server.Close()

	items, err := testFetcher(server.URL).fetchRSSItems(
		context.Background(), feedSource("product-hunt-ai", server.URL), &sourceschema.SourceConfig{})
	if err != nil {
		t.Fatalf("fetchRSSItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 launch, got %d", len(items))
	}

	item := items[0]
	if item.Author != "Product Hunt" {
		t.Fatalf("launches carry a fixed author, got %q", item.Author)
	}
	if item.Language != "en" {
		t.Fatalf("launches are tagged en, got %q", item.Language)
	}
	if item.Title != "CodePilot AI" {
		t.Fatalf("markup should be stripped from titles, got %q", item.Title)
	}
	if item.Content != "An AI coding assistant for teams" {
		t.Fatalf("unexpected content %q", item.Content)
	}
	if item.URL != "https://www.producthunt.com/posts/codepilot-ai" {
		t.Fatalf("unexpected url %q", item.URL)
	}
}

func TestFetchRSSItemsWithoutFeedURL(t *testing.T) {
	t.Parallel()

	items, err := testFetcher("http://unused.invalid").fetchRSSItems(
		context.Background(), db.SourceRecord{Slug: "no-feed"}, &sourceschema.SourceConfig{})
	if err != nil {
		t.Fatalf("missing feed url should not error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("missing feed url should yield no items, got %d", len(items))
	}
}
