package ingest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"horse.fit/aiscan/internal/db"
	sourceschema "horse.fit/aiscan/schema"
)

const (
	defaultHuggingFaceLimit = 40
	hfEngagementNorm        = 500000
)

type huggingFaceEntry struct {
	ID           string  `json:"id"`
	ModelID      string  `json:"modelId"`
	Likes        float64 `json:"likes"`
	Downloads    float64 `json:"downloads"`
	LastModified string  `json:"lastModified"`
	PipelineTag  string  `json:"pipeline_tag"`
	Description  string  `json:"description"`
	Author       string  `json:"author"`
}

// fetchHuggingFaceItems lists trending models or most-liked spaces from the
// Hugging Face hub API.
func (f *fetcher) fetchHuggingFaceItems(ctx context.Context, _ db.SourceRecord, cfg *sourceschema.SourceConfig) ([]Item, error) {
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultHuggingFaceLimit
	}

	entityType := cfg.EntityType
	if entityType != "spaces" {
		entityType = "models"
	}

	var endpoint string
	if entityType == "spaces" {
		endpoint = fmt.Sprintf("%s/api/spaces?sort=likes&direction=-1&limit=%d", f.huggingFaceBaseURL, limit)
	} else {
		endpoint = fmt.Sprintf("%s/api/models?sort=trendingScore&direction=-1&limit=%d", f.huggingFaceBaseURL, limit)
	}

	var entries []huggingFaceEntry
	if err := f.getJSON(ctx, endpoint, &entries); err != nil {
		return nil, fmt.Errorf("hugging face %s: %w", entityType, err)
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		repoID := entry.ID
		if repoID == "" {
			repoID = entry.ModelID
		}
		if repoID == "" {
			repoID = "unknown"
		}

		engagement := clamp01(math.Log1p(entry.Likes+entry.Downloads) / math.Log(hfEngagementNorm))

		var url, title string
		practical := 0.9
		if entityType == "spaces" {
			url = fmt.Sprintf("https://huggingface.co/spaces/%s", repoID)
			title = "[HF Space] " + repoID
			practical = 0.82
		} else {
			url = fmt.Sprintf("https://huggingface.co/%s", repoID)
			title = "[HF Model] " + repoID
		}

		var publishedAt *time.Time
		if entry.LastModified != "" {
			if ts, err := time.Parse(time.RFC3339, entry.LastModified); err == nil {
				utc := ts.UTC()
				publishedAt = &utc
			}
		}

		content := entry.PipelineTag
		if content == "" {
			content = entry.Description
		}

		author := strings.TrimSpace(entry.Author)
		if author == "" {
			author = "Hugging Face"
		}

		items = append(items, Item{
			ExternalID:      repoID,
			Title:           title,
			URL:             url,
			PublishedAt:     publishedAt,
			Content:         content,
			Author:          author,
			Language:        "en",
			EngagementProxy: floatPtr(engagement),
			OriginLinkCount: intPtr(1),
			PracticalScore:  floatPtr(practical),
			Payload: map[string]any{
				"entity_type": entityType,
				"likes":       entry.Likes,
				"downloads":   entry.Downloads,
			},
		})
	}
	return items, nil
}
