package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"horse.fit/aiscan/internal/globaltime"
)

// RawItemUpsert carries one fetched item into storage.
type RawItemUpsert struct {
	SourceID         int64
	ExternalID       string
	Title            string
	URL              string
	Author           *string
	AuthorHandle     *string
	Language         *string
	Content          string
	PublishedAt      *time.Time
	ItemHash         string
	EngagementProxy  *float64
	OriginLinkCount  *int
	AuthorReputation *float64
	PracticalScore   *float64
	IsSocialInsight  *bool
	QuotedLinks      json.RawMessage
	Payload          json.RawMessage
}

// UpsertRawItem stores a fetched item keyed by (source_id, external_id) and
// reports whether the row was newly inserted.
func (p *Pool) UpsertRawItem(ctx context.Context, item RawItemUpsert) (int64, bool, error) {
	const q = `
INSERT INTO aiscan.raw_items
	(source_id, external_id, title, url, author, author_handle, language, content,
	 published_at, ingested_at, item_hash, engagement_proxy, origin_link_count,
	 author_reputation, practical_score, is_social_insight, quoted_links, payload, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $10)
ON CONFLICT (source_id, external_id) DO UPDATE SET
	title = EXCLUDED.title,
	url = EXCLUDED.url,
	author = EXCLUDED.author,
	author_handle = EXCLUDED.author_handle,
	language = EXCLUDED.language,
	content = EXCLUDED.content,
	published_at = EXCLUDED.published_at,
	item_hash = EXCLUDED.item_hash,
	engagement_proxy = EXCLUDED.engagement_proxy,
	origin_link_count = EXCLUDED.origin_link_count,
	author_reputation = EXCLUDED.author_reputation,
	practical_score = EXCLUDED.practical_score,
	is_social_insight = EXCLUDED.is_social_insight,
	quoted_links = EXCLUDED.quoted_links,
	payload = EXCLUDED.payload,
	updated_at = EXCLUDED.updated_at
RETURNING raw_item_id, (xmax = 0) AS inserted`

	var id int64
	var inserted bool
	err := p.QueryRow(ctx, q,
		item.SourceID, item.ExternalID, item.Title, item.URL, item.Author, item.AuthorHandle,
		item.Language, item.Content, item.PublishedAt, globaltime.UTC(), item.ItemHash,
		item.EngagementProxy, item.OriginLinkCount, item.AuthorReputation, item.PracticalScore,
		item.IsSocialInsight, item.QuotedLinks, item.Payload,
	).Scan(&id, &inserted)
	if err != nil {
		return 0, false, fmt.Errorf("upsert raw item %q: %w", item.ExternalID, err)
	}
	return id, inserted, nil
}

// RawItemRecord is a raw item joined with its source, as consumed by the
// normalizer.
type RawItemRecord struct {
	RawItemID        int64
	SourceID         int64
	SourceSlug       string
	SourceName       string
	Provider         string
	Bucket           string
	Reliability      string
	Weight           float64
	Title            string
	URL              string
	Author           *string
	AuthorHandle     *string
	Language         *string
	Content          string
	PublishedAt      *time.Time
	IngestedAt       time.Time
	EngagementProxy  *float64
	OriginLinkCount  *int
	AuthorReputation *float64
	PracticalScore   *float64
	IsSocialInsight  *bool
	QuotedLinks      json.RawMessage
}

// ListRecentRawItems returns raw items ingested at or after since, newest
// first, joined with their source descriptors.
func (p *Pool) ListRecentRawItems(ctx context.Context, since time.Time, limit int) ([]RawItemRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	const q = `
SELECT
	r.raw_item_id,
	r.source_id,
	s.slug,
	s.name,
	s.provider,
	s.bucket,
	s.reliability,
	s.weight,
	r.title,
	r.url,
	r.author,
	r.author_handle,
	r.language,
	r.content,
	r.published_at,
	r.ingested_at,
	r.engagement_proxy,
	r.origin_link_count,
	r.author_reputation,
	r.practical_score,
	r.is_social_insight,
	r.quoted_links
FROM aiscan.raw_items r
JOIN aiscan.sources s ON s.source_id = r.source_id
WHERE r.ingested_at >= $1
ORDER BY r.ingested_at DESC
LIMIT $2`

	rows, err := p.Query(ctx, q, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list recent raw items: %w", err)
	}
	defer rows.Close()

	var out []RawItemRecord
	for rows.Next() {
		var rec RawItemRecord
		if err := rows.Scan(
			&rec.RawItemID, &rec.SourceID, &rec.SourceSlug, &rec.SourceName, &rec.Provider,
			&rec.Bucket, &rec.Reliability, &rec.Weight, &rec.Title, &rec.URL, &rec.Author,
			&rec.AuthorHandle, &rec.Language, &rec.Content, &rec.PublishedAt, &rec.IngestedAt,
			&rec.EngagementProxy, &rec.OriginLinkCount, &rec.AuthorReputation,
			&rec.PracticalScore, &rec.IsSocialInsight, &rec.QuotedLinks,
		); err != nil {
			return nil, fmt.Errorf("scan raw item row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// NormalizedUpsert carries one normalized record keyed by raw_item_id.
type NormalizedUpsert struct {
	RawItemID        int64
	SourceID         int64
	DisplayTitle     string
	CanonicalURL     string
	TitleHash        string
	ContentHash      string
	ContentSnippet   string
	Summary          string
	InsightTags      json.RawMessage
	Language         *string
	PublishedAt      *time.Time
	IngestedAt       time.Time
	EngagementProxy  float64
	OriginLinkCount  int
	AuthorReputation float64
	AuthorHandle     *string
	PracticalScore   float64
	IsSocialInsight  bool
	HasPrimarySource bool
	IsLowConfidence  bool
}

// UpsertNormalizedItem writes the normalized projection of one raw item.
func (p *Pool) UpsertNormalizedItem(ctx context.Context, item NormalizedUpsert) error {
	const q = `
INSERT INTO aiscan.normalized_items
	(raw_item_id, source_id, display_title, canonical_url, title_hash, content_hash,
	 content_snippet, summary, insight_tags, language, published_at, ingested_at,
	 engagement_proxy, origin_link_count, author_reputation, author_handle,
	 practical_score, is_social_insight, has_primary_source, is_low_confidence, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
ON CONFLICT (raw_item_id) DO UPDATE SET
	display_title = EXCLUDED.display_title,
	canonical_url = EXCLUDED.canonical_url,
	title_hash = EXCLUDED.title_hash,
	content_hash = EXCLUDED.content_hash,
	content_snippet = EXCLUDED.content_snippet,
	summary = EXCLUDED.summary,
	insight_tags = EXCLUDED.insight_tags,
	language = EXCLUDED.language,
	published_at = EXCLUDED.published_at,
	ingested_at = EXCLUDED.ingested_at,
	engagement_proxy = EXCLUDED.engagement_proxy,
	origin_link_count = EXCLUDED.origin_link_count,
	author_reputation = EXCLUDED.author_reputation,
	author_handle = EXCLUDED.author_handle,
	practical_score = EXCLUDED.practical_score,
	is_social_insight = EXCLUDED.is_social_insight,
	has_primary_source = EXCLUDED.has_primary_source,
	is_low_confidence = EXCLUDED.is_low_confidence,
	updated_at = EXCLUDED.updated_at`

	_, err := p.Exec(ctx, q,
		item.RawItemID, item.SourceID, item.DisplayTitle, item.CanonicalURL, item.TitleHash,
		item.ContentHash, item.ContentSnippet, item.Summary, item.InsightTags, item.Language,
		item.PublishedAt, item.IngestedAt, item.EngagementProxy, item.OriginLinkCount,
		item.AuthorReputation, item.AuthorHandle, item.PracticalScore, item.IsSocialInsight,
		item.HasPrimarySource, item.IsLowConfidence, globaltime.UTC())
	if err != nil {
		return fmt.Errorf("upsert normalized item for raw %d: %w", item.RawItemID, err)
	}
	return nil
}

// CandidateRecord is a normalized item joined with its source, as consumed
// by clustering and ranking.
type CandidateRecord struct {
	NormalizedItemID int64
	RawItemID        int64
	SourceID         int64
	SourceSlug       string
	SourceName       string
	Provider         string
	Bucket           string
	Reliability      string
	Weight           float64
	DisplayTitle     string
	CanonicalURL     string
	TitleHash        string
	ContentHash      string
	ContentSnippet   string
	Summary          string
	InsightTags      json.RawMessage
	Language         *string
	PublishedAt      *time.Time
	IngestedAt       time.Time
	EngagementProxy  float64
	OriginLinkCount  int
	AuthorReputation float64
	AuthorHandle     *string
	PracticalScore   float64
	IsSocialInsight  bool
	HasPrimarySource bool
	IsLowConfidence  bool
}

// ListCandidateItems returns normalized items from enabled sources inside
// the per-bucket recency windows, newest created first. Items without a
// published timestamp are always included.
func (p *Pool) ListCandidateItems(ctx context.Context, practicalSince, mediaSince time.Time, limit int) ([]CandidateRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	const q = `
SELECT
	n.normalized_item_id,
	n.raw_item_id,
	n.source_id,
	s.slug,
	s.name,
	s.provider,
	s.bucket,
	s.reliability,
	s.weight,
	n.display_title,
	n.canonical_url,
	n.title_hash,
	n.content_hash,
	n.content_snippet,
	n.summary,
	n.insight_tags,
	n.language,
	n.published_at,
	n.ingested_at,
	n.engagement_proxy,
	n.origin_link_count,
	n.author_reputation,
	n.author_handle,
	n.practical_score,
	n.is_social_insight,
	n.has_primary_source,
	n.is_low_confidence
FROM aiscan.normalized_items n
JOIN aiscan.sources s ON s.source_id = n.source_id
WHERE s.enabled
  AND (
	(s.bucket = 'PRACTICAL' AND n.published_at >= $1)
	OR (s.bucket = 'MEDIA' AND n.published_at >= $2)
	OR n.published_at IS NULL
  )
ORDER BY n.created_at DESC
LIMIT $3`

	rows, err := p.Query(ctx, q, practicalSince.UTC(), mediaSince.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list candidate items: %w", err)
	}
	defer rows.Close()

	var out []CandidateRecord
	for rows.Next() {
		var rec CandidateRecord
		if err := rows.Scan(
			&rec.NormalizedItemID, &rec.RawItemID, &rec.SourceID, &rec.SourceSlug,
			&rec.SourceName, &rec.Provider, &rec.Bucket, &rec.Reliability, &rec.Weight,
			&rec.DisplayTitle, &rec.CanonicalURL, &rec.TitleHash, &rec.ContentHash,
			&rec.ContentSnippet, &rec.Summary, &rec.InsightTags, &rec.Language,
			&rec.PublishedAt, &rec.IngestedAt, &rec.EngagementProxy, &rec.OriginLinkCount,
			&rec.AuthorReputation, &rec.AuthorHandle, &rec.PracticalScore,
			&rec.IsSocialInsight, &rec.HasPrimarySource, &rec.IsLowConfidence,
		); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
