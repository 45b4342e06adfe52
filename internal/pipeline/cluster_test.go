package pipeline

import (
	"testing"
	"time"

	"horse.fit/aiscan/internal/db"
	"horse.fit/aiscan/internal/textutil"
)

func testItem(id, sourceID int64, url, title, snippet string) db.CandidateRecord {
	published := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	return db.CandidateRecord{
		NormalizedItemID: id,
		SourceID:         sourceID,
		SourceSlug:       "source-" + string(rune('a'+sourceID)),
		Provider:         "RSS",
		Bucket:           "PRACTICAL",
		Reliability:      "MEDIUM",
		Weight:           0.6,
		DisplayTitle:     title,
		CanonicalURL:     url,
		TitleHash:        textutil.StableHash(title),
		ContentHash:      textutil.StableHash(snippet),
		ContentSnippet:   snippet,
		PublishedAt:      &published,
		PracticalScore:   0.7,
		HasPrimarySource: true,
	}
}

func TestBuildClustersMergesSameEvent(t *testing.T) {
	t.Parallel()

	items := []db.CandidateRecord{
		testItem(1, 1, "https://x.com/e1", "same title", "snippet one"),
		testItem(2, 2, "https://x.com/e1", "same title", "snippet two entirely different words"),
		testItem(3, 3, "https://x.com/e1", "same title", "third snippet about another angle"),
	}

	clusters := BuildClusters(items)
	if len(clusters) != 1 {
		t.Fatalf("expected one cluster, got %d", len(clusters))
	}
	if got := clusters[0].SourceCount(); got != 3 {
		t.Fatalf("expected sourceCount 3, got %d", got)
	}
	if len(clusters[0].Items) != 3 {
		t.Fatalf("expected 3 members, got %d", len(clusters[0].Items))
	}
}

func TestBuildClustersTitleHashAndSimilarityJoins(t *testing.T) {
	t.Parallel()

	snippet := "openai released a new reasoning model with longer context and cheaper tokens today"
	items := []db.CandidateRecord{
		testItem(1, 1, "https://a.example/one", "shared headline", "completely original text about topic alpha"),
		testItem(2, 2, "https://b.example/two", "shared headline", "unrelated snippet content entirely"),
		testItem(3, 1, "https://c.example/three", "title three", snippet),
		testItem(4, 2, "https://d.example/four", "title four", snippet),
		testItem(5, 3, "https://e.example/five", "title five", "different news about hardware pricing and supply"),
	}

	clusters := BuildClusters(items)
	if len(clusters) != 3 {
		t.Fatalf("expected 3 clusters, got %d", len(clusters))
	}
	if len(clusters[0].Items) != 2 {
		t.Fatalf("title-hash join should merge items 1 and 2, got %d members", len(clusters[0].Items))
	}
	if len(clusters[1].Items) != 2 {
		t.Fatalf("similarity join should merge items 3 and 4, got %d members", len(clusters[1].Items))
	}
}

func TestBuildClustersRepresentativeUpgrade(t *testing.T) {
	t.Parallel()

	first := testItem(1, 1, "https://x.com/e1", "headline", "snippet")
	first.PracticalScore = 0.5
	second := testItem(2, 2, "https://x.com/e1", "headline", "snippet")
	second.PracticalScore = 0.9
	third := testItem(3, 3, "https://x.com/e1", "headline", "snippet")
	third.PracticalScore = 0.9

	clusters := BuildClusters([]db.CandidateRecord{first, second, third})
	if len(clusters) != 1 {
		t.Fatalf("expected one cluster, got %d", len(clusters))
	}
	// Equal scores replace too, so the latest top-scoring member leads.
	if got := clusters[0].Representative.NormalizedItemID; got != 3 {
		t.Fatalf("expected representative 3, got %d", got)
	}
	if clusters[0].Key != textutil.ClusterKey(first.CanonicalURL, first.TitleHash) {
		t.Fatalf("cluster key must stay pinned to the founding item")
	}
}

func TestConfidenceLabel(t *testing.T) {
	t.Parallel()

	high := testItem(1, 1, "https://x.com/e1", "headline", "snippet")
	high.Reliability = "HIGH"
	corroborating := testItem(2, 2, "https://x.com/e1", "headline", "snippet")
	corroborating.PracticalScore = 0.1

	clusters := BuildClusters([]db.CandidateRecord{high, corroborating})
	if got := clusters[0].ConfidenceLabel(); got != "high" {
		t.Fatalf("expected high confidence, got %q", got)
	}

	medium := testItem(3, 1, "https://y.com/e2", "other", "other snippet")
	if got := BuildClusters([]db.CandidateRecord{medium})[0].ConfidenceLabel(); got != "medium" {
		t.Fatalf("expected medium confidence, got %q", got)
	}

	low := testItem(4, 1, "https://z.com/e3", "third", "third snippet")
	low.Reliability = "LOW"
	if got := BuildClusters([]db.CandidateRecord{low})[0].ConfidenceLabel(); got != "low" {
		t.Fatalf("expected low confidence, got %q", got)
	}
}

func TestSortByPublishedDesc(t *testing.T) {
	t.Parallel()

	older := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	a := testItem(1, 1, "https://a.example/1", "a", "sa")
	a.PublishedAt = &older
	b := testItem(2, 2, "https://b.example/2", "b", "sb")
	b.PublishedAt = &newer
	c := testItem(3, 3, "https://c.example/3", "c", "sc")
	c.PublishedAt = nil

	sorted := SortByPublishedDesc([]db.CandidateRecord{a, b, c})
	if sorted[0].NormalizedItemID != 2 || sorted[1].NormalizedItemID != 1 || sorted[2].NormalizedItemID != 3 {
		t.Fatalf("unexpected order: %d %d %d",
			sorted[0].NormalizedItemID, sorted[1].NormalizedItemID, sorted[2].NormalizedItemID)
	}
}
