package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/aiscan/internal/db"
	"horse.fit/aiscan/internal/globaltime"
	"horse.fit/aiscan/internal/summarize"
	"horse.fit/aiscan/internal/textutil"
)

const (
	// NormalizeWindowHours bounds how far back normalization reaches into
	// the raw item table.
	NormalizeWindowHours = 72

	normalizeFetchLimit = 1200
	snippetRuneLimit    = 1000
)

// normalizeStore is the storage surface one normalization pass needs.
type normalizeStore interface {
	ListRecentRawItems(ctx context.Context, since time.Time, limit int) ([]db.RawItemRecord, error)
	UpsertNormalizedItem(ctx context.Context, item db.NormalizedUpsert) error
}

// Normalizer projects raw fetched items into their canonical form:
// cleaned title, canonical URL, hashes, snippet, summary and the derived
// confidence fields.
type Normalizer struct {
	store normalizeStore
	log   zerolog.Logger
	llm   *summarize.Client
}

func NewNormalizer(pool *db.Pool, logger zerolog.Logger, llm *summarize.Client) *Normalizer {
	return &Normalizer{
		store: pool,
		log:   logger.With().Str("component", "normalize").Logger(),
		llm:   llm,
	}
}

// NormalizeRecent upserts a canonical record for every raw item ingested
// inside the window and returns the processed count. A failing item is
// logged and skipped; it never aborts the rest of the batch.
func (n *Normalizer) NormalizeRecent(ctx context.Context, windowHours int) (int, error) {
	if windowHours <= 0 {
		windowHours = NormalizeWindowHours
	}
	cutoff := globaltime.UTC().Add(-time.Duration(windowHours) * time.Hour)

	rawItems, err := n.store.ListRecentRawItems(ctx, cutoff, normalizeFetchLimit)
	if err != nil {
		return 0, fmt.Errorf("load raw items: %w", err)
	}

	processed := 0
	failed := 0
	for _, raw := range rawItems {
		if err := n.normalizeOne(ctx, raw); err != nil {
			failed++
			n.log.Error().Err(err).
				Int64("raw_item_id", raw.RawItemID).
				Str("source", raw.SourceSlug).
				Msg("normalize item")
			continue
		}
		processed++
	}

	n.log.Info().Int("processed", processed).Int("failed", failed).Msg("normalization pass complete")
	return processed, nil
}

func (n *Normalizer) normalizeOne(ctx context.Context, raw db.RawItemRecord) error {
	snippet := textutil.TruncateRunes(textutil.StripHTML(raw.Content), snippetRuneLimit)
	displayTitle := textutil.CleanDisplayTitle(raw.Title)
	canonicalURL := textutil.CanonicalizeURL(raw.URL)
	titleHash := textutil.StableHash(strings.ToLower(displayTitle))

	hashBasis := snippet
	if hashBasis == "" {
		hashBasis = raw.Title
	}
	contentHash := textutil.StableHash(hashBasis)

	// Social-media buckets carry secondhand commentary, never a primary
	// source.
	isSocialInsight := raw.Bucket == "MEDIA"
	hasPrimarySource := !isSocialInsight

	summaryBasis := snippet
	if summaryBasis == "" {
		summaryBasis = raw.Title
	}
	summary := ""
	if n.llm != nil {
		summary = n.llm.Summarize(ctx, summarize.Request{
			Title:      displayTitle,
			Content:    summaryBasis,
			SourceName: raw.SourceName,
		})
	}
	if summary == "" {
		summary = textutil.SummarizeToChinese(summaryBasis, displayTitle)
	}

	tags := textutil.ExtractInsightTags(textutil.InsightInput{
		Title:      displayTitle,
		Summary:    summary,
		SourceName: raw.SourceName,
		Bucket:     raw.Bucket,
	})
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode insight tags: %w", err)
	}

	originLinkCount := 0
	if raw.OriginLinkCount != nil && *raw.OriginLinkCount != 0 {
		originLinkCount = *raw.OriginLinkCount
	} else if len(raw.QuotedLinks) > 0 {
		var links []string
		if err := json.Unmarshal(raw.QuotedLinks, &links); err == nil {
			originLinkCount = len(links)
		}
	}

	authorReputation := 0.8
	if isSocialInsight {
		authorReputation = 0.6
	}
	if raw.AuthorReputation != nil {
		authorReputation = *raw.AuthorReputation
	}

	practicalScore := 0.78
	if isSocialInsight {
		practicalScore = 0.55
	}
	if raw.PracticalScore != nil {
		practicalScore = *raw.PracticalScore
	}

	engagement := 0.0
	if raw.EngagementProxy != nil {
		engagement = *raw.EngagementProxy
	}

	return n.store.UpsertNormalizedItem(ctx, db.NormalizedUpsert{
		RawItemID:        raw.RawItemID,
		SourceID:         raw.SourceID,
		DisplayTitle:     displayTitle,
		CanonicalURL:     canonicalURL,
		TitleHash:        titleHash,
		ContentHash:      contentHash,
		ContentSnippet:   snippet,
		Summary:          summary,
		InsightTags:      tagsJSON,
		Language:         raw.Language,
		PublishedAt:      raw.PublishedAt,
		IngestedAt:       raw.IngestedAt,
		EngagementProxy:  engagement,
		OriginLinkCount:  originLinkCount,
		AuthorReputation: authorReputation,
		AuthorHandle:     raw.AuthorHandle,
		PracticalScore:   practicalScore,
		IsSocialInsight:  isSocialInsight,
		HasPrimarySource: hasPrimarySource,
		IsLowConfidence:  !hasPrimarySource || raw.Reliability == "LOW",
	})
}
