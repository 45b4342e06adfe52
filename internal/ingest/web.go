package ingest

import (
	"context"
	"fmt"

	"horse.fit/aiscan/internal/db"
	"horse.fit/aiscan/internal/globaltime"
	"horse.fit/aiscan/internal/reader"
	sourceschema "horse.fit/aiscan/schema"
)

const webSnapshotRunes = 1600

// fetchWebSnapshotItems captures one dated snapshot of a plain web page,
// reduced to readable text. Re-running on the same day updates the
// existing snapshot through the raw-item upsert.
func (f *fetcher) fetchWebSnapshotItems(ctx context.Context, source db.SourceRecord, _ *sourceschema.SourceConfig) ([]Item, error) {
	page, err := reader.FetchPage(ctx, source.URL, source.Name, reader.FetchOptions{
		HTTPClient: f.http,
		UserAgent:  userAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("web snapshot: %w", err)
	}

	now := globaltime.UTC()
	text, _ := reader.TruncateText(page.Text, webSnapshotRunes)

	return []Item{{
		ExternalID:      fmt.Sprintf("%s-%s", source.Slug, now.Format("2006-01-02")),
		Title:           "[Snapshot] " + page.Title,
		URL:             source.URL,
		PublishedAt:     &now,
		Content:         text,
		Author:          source.Name,
		Language:        "en",
		EngagementProxy: floatPtr(0.35),
		OriginLinkCount: intPtr(1),
		PracticalScore:  floatPtr(0.75),
	}}, nil
}
