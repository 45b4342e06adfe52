package ingest

import (
	"context"
	"encoding/json"

	"horse.fit/aiscan/internal/db"
)

func strPtr(value string) *string {
	return &value
}

// DefaultSources is the curated source registry. SyncDefaultSources keeps
// the database aligned with this list on every ingestion run, so edits here
// roll out without migrations.
func DefaultSources() []db.SourceSeed {
	return []db.SourceSeed{
		{
			Slug:        "product-hunt-ai",
			Name:        "Product Hunt AI",
			URL:         "https://www.producthunt.com/topics/artificial-intelligence",
			FeedURL:     strPtr("https://www.producthunt.com/feed?category=artificial-intelligence"),
			Provider:    "RSS",
			Bucket:      "PRACTICAL",
			Reliability: "MEDIUM",
			Weight:      0.8,
			Enabled:     true,
			Config:      json.RawMessage(`{"keywords":["ai","agent","llm","gpt","copilot","assistant"],"limit":40}`),
		},
		{
			Slug:        "hf-trending-models",
			Name:        "Hugging Face Trending Models",
			URL:         "https://huggingface.co/models",
			Provider:    "HUGGINGFACE",
			Bucket:      "PRACTICAL",
			Reliability: "HIGH",
			Weight:      0.9,
			Enabled:     true,
			Config:      json.RawMessage(`{"entity_type":"models","limit":40}`),
		},
		{
			Slug:        "hf-trending-spaces",
			Name:        "Hugging Face Trending Spaces",
			URL:         "https://huggingface.co/spaces",
			Provider:    "HUGGINGFACE",
			Bucket:      "PRACTICAL",
			Reliability: "HIGH",
			Weight:      0.85,
			Enabled:     true,
			Config:      json.RawMessage(`{"entity_type":"spaces","limit":30}`),
		},
		{
			Slug:        "reddit-localllama",
			Name:        "r/LocalLLaMA",
			URL:         "https://www.reddit.com/r/LocalLLaMA/",
			Provider:    "REDDIT_JSON",
			Bucket:      "PRACTICAL",
			Reliability: "MEDIUM",
			Weight:      0.75,
			Enabled:     true,
			Config:      json.RawMessage(`{"subreddit":"LocalLLaMA","sort":"hot","limit":30}`),
		},
		{
			Slug:        "reddit-machinelearning",
			Name:        "r/MachineLearning",
			URL:         "https://www.reddit.com/r/MachineLearning/",
			Provider:    "REDDIT_JSON",
			Bucket:      "PRACTICAL",
			Reliability: "MEDIUM",
			Weight:      0.7,
			Enabled:     true,
			Config:      json.RawMessage(`{"subreddit":"MachineLearning","sort":"hot","limit":30}`),
		},
		{
			Slug:        "x-social-researcher",
			Name:        "X AI Researcher Watchlist",
			URL:         "https://x.com",
			Provider:    "SOCIAL_AGG_A",
			Bucket:      "MEDIA",
			Reliability: "MEDIUM",
			Weight:      0.7,
			Enabled:     true,
			Config:      json.RawMessage(`{"watchlist_id":"ai-researchers-global","limit":50,"min_engagement":8,"lang_allow":["en","zh"]}`),
		},
	}
}

// SyncDefaultSources upserts the curated registry and disables sources
// that fell off the list.
func SyncDefaultSources(ctx context.Context, pool *db.Pool) error {
	seeds := DefaultSources()
	slugs := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		if err := pool.UpsertSource(ctx, seed); err != nil {
			return err
		}
		slugs = append(slugs, seed.Slug)
	}
	return pool.DisableSourcesExcept(ctx, slugs)
}
