package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/aiscan/internal/db"
	"horse.fit/aiscan/internal/langdetect"
	"horse.fit/aiscan/internal/language"
	"horse.fit/aiscan/internal/textutil"
	sourceschema "horse.fit/aiscan/schema"
)

// Options configures the ingestion service. Endpoint bases default to the
// live services and exist for tests.
type Options struct {
	HTTPClient           *http.Client
	RedditBaseURL        string
	HuggingFaceBaseURL   string
	ProfileMirrorBaseURL string
	SocialA              SocialCredentials
	SocialB              SocialCredentials
}

// Service fetches every enabled source and lands raw items. Each source is
// isolated: one failing source degrades its own health record and the run
// status, never the whole run.
type Service struct {
	pool  *db.Pool
	log   zerolog.Logger
	fetch *fetcher
}

func NewService(pool *db.Pool, logger zerolog.Logger, opts Options) *Service {
	return &Service{
		pool:  pool,
		log:   logger.With().Str("component", "ingest").Logger(),
		fetch: newFetcher(opts),
	}
}

// SourceResult reports one source's outcome within a run.
type SourceResult struct {
	SourceSlug       string `json:"source_slug"`
	Fetched          int    `json:"fetched"`
	Saved            int    `json:"saved"`
	Error            string `json:"error,omitempty"`
	FallbackProvider string `json:"fallback_provider,omitempty"`
}

// Result summarizes one completed ingestion run.
type Result struct {
	RunID          int64          `json:"run_id"`
	Status         string         `json:"status"`
	ProcessedCount int            `json:"processed_count"`
	FailedCount    int            `json:"failed_count"`
	Results        []SourceResult `json:"results"`
}

// Run executes one ingestion pass. The optional bucket filter restricts the
// run to MEDIA or PRACTICAL sources.
func (s *Service) Run(ctx context.Context, buckets []string) (Result, error) {
	if err := SyncDefaultSources(ctx, s.pool); err != nil {
		return Result{}, fmt.Errorf("sync default sources: %w", err)
	}

	runID, err := s.pool.InsertJobRun(ctx, "ingest")
	if err != nil {
		return Result{}, err
	}

	result, err := s.run(ctx, runID, buckets)
	if err != nil {
		if markErr := s.pool.MarkJobRunFailed(ctx, runID, err.Error()); markErr != nil {
			s.log.Error().Err(markErr).Int64("run_id", runID).Msg("mark ingest run failed")
		}
		return Result{}, err
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, runID int64, buckets []string) (Result, error) {
	sources, err := s.pool.ListSources(ctx, true)
	if err != nil {
		return Result{}, fmt.Errorf("list sources: %w", err)
	}
	sources = filterByBucket(sources, buckets)

	// MEDIA after PRACTICAL, heaviest sources first within a bucket.
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].Bucket != sources[j].Bucket {
			return sources[i].Bucket < sources[j].Bucket
		}
		return sources[i].Weight > sources[j].Weight
	})

	result := Result{RunID: runID, Results: make([]SourceResult, 0, len(sources))}

	for _, source := range sources {
		items, fallbackProvider, err := s.fetchSource(ctx, source)
		if err != nil {
			result.FailedCount++
			if markErr := s.pool.MarkSourceFailure(ctx, source.SourceID, err.Error()); markErr != nil {
				s.log.Error().Err(markErr).Str("source", source.Slug).Msg("mark source failure")
			}
			s.log.Warn().Err(err).Str("source", source.Slug).Msg("source fetch failed")
			result.Results = append(result.Results, SourceResult{SourceSlug: source.Slug, Error: err.Error()})
			continue
		}

		saved := 0
		for _, item := range items {
			if err := s.saveItem(ctx, source, item); err != nil {
				s.log.Error().Err(err).Str("source", source.Slug).Str("external_id", item.ExternalID).Msg("save raw item")
				continue
			}
			saved++
		}

		result.ProcessedCount += saved
		if markErr := s.pool.MarkSourceSuccess(ctx, source.SourceID, saved); markErr != nil {
			s.log.Error().Err(markErr).Str("source", source.Slug).Msg("mark source success")
		}
		result.Results = append(result.Results, SourceResult{
			SourceSlug:       source.Slug,
			Fetched:          len(items),
			Saved:            saved,
			FallbackProvider: fallbackProvider,
		})
	}

	result.Status = "success"
	if result.FailedCount > 0 {
		result.Status = "partial_success"
	}

	counts := map[string]int{
		"processed": result.ProcessedCount,
		"failed":    result.FailedCount,
		"sources":   len(sources),
	}
	if err := s.pool.MarkJobRunCompleted(ctx, runID, result.Status, counts); err != nil {
		return Result{}, err
	}

	s.log.Info().
		Int64("run_id", runID).
		Str("status", result.Status).
		Int("processed", result.ProcessedCount).
		Int("failed", result.FailedCount).
		Msg("ingest run complete")

	return result, nil
}

// fetchSource dispatches to the provider adapter. The primary social
// aggregator falls back to the secondary when it errors.
func (s *Service) fetchSource(ctx context.Context, source db.SourceRecord) ([]Item, string, error) {
	cfg, err := sourceschema.ValidateSourceConfig(source.Config)
	if err != nil {
		return nil, "", fmt.Errorf("invalid source config: %w", err)
	}

	switch source.Provider {
	case "RSS":
		items, err := s.fetch.fetchRSSItems(ctx, source, cfg)
		return items, "", err
	case "REDDIT_JSON":
		items, err := s.fetch.fetchRedditItems(ctx, source, cfg)
		return items, "", err
	case "HUGGINGFACE":
		items, err := s.fetch.fetchHuggingFaceItems(ctx, source, cfg)
		return items, "", err
	case "WEB":
		items, err := s.fetch.fetchWebSnapshotItems(ctx, source, cfg)
		return items, "", err
	case "SOCIAL_AGG_A":
		items, err := s.fetch.fetchSocialItems(ctx, source, cfg, "A")
		if err == nil {
			return items, "", nil
		}
		fallbackItems, fallbackErr := s.fetch.fetchSocialItems(ctx, source, cfg, "B")
		if fallbackErr != nil {
			return nil, "", fallbackErr
		}
		return fallbackItems, fmt.Sprintf("SOCIAL_AGG_B (%s)", err), nil
	case "SOCIAL_AGG_B":
		items, err := s.fetch.fetchSocialItems(ctx, source, cfg, "B")
		return items, "", err
	default:
		return nil, "", nil
	}
}

func (s *Service) saveItem(ctx context.Context, source db.SourceRecord, item Item) error {
	externalID := strings.TrimSpace(item.ExternalID)
	if externalID == "" {
		externalID = textutil.StableHash(item.Title + "|" + item.URL)
	}

	publishedISO := ""
	if item.PublishedAt != nil {
		publishedISO = item.PublishedAt.UTC().Format(time.RFC3339)
	}
	itemHash := textutil.StableHash(strings.Join([]string{source.Slug, externalID, item.URL, publishedISO}, "|"))

	payload := make(map[string]any, len(item.Payload)+2)
	for key, value := range item.Payload {
		payload[key] = value
	}
	payload["provider"] = source.Provider
	if item.AuthorHandle != "" {
		payload["authorHandle"] = item.AuthorHandle
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	var quotedJSON json.RawMessage
	if len(item.QuotedLinks) > 0 {
		encoded, err := json.Marshal(item.QuotedLinks)
		if err != nil {
			return fmt.Errorf("encode quoted links: %w", err)
		}
		quotedJSON = encoded
	}

	upsert := db.RawItemUpsert{
		SourceID:         source.SourceID,
		ExternalID:       externalID,
		Title:            item.Title,
		URL:              item.URL,
		Content:          item.Content,
		PublishedAt:      item.PublishedAt,
		ItemHash:         itemHash,
		EngagementProxy:  item.EngagementProxy,
		OriginLinkCount:  item.OriginLinkCount,
		AuthorReputation: item.AuthorReputation,
		PracticalScore:   item.PracticalScore,
		QuotedLinks:      quotedJSON,
		Payload:          payloadJSON,
	}

	if item.Author != "" {
		upsert.Author = &item.Author
	}
	if item.AuthorHandle != "" {
		upsert.AuthorHandle = &item.AuthorHandle
	}
	if item.IsSocialInsight {
		social := true
		upsert.IsSocialInsight = &social
	}

	if lang := detectLanguage(item); lang != "" {
		upsert.Language = &lang
	}

	_, _, err = s.pool.UpsertRawItem(ctx, upsert)
	return err
}

// detectLanguage prefers the provider-declared language and falls back to
// statistical detection over the title and content.
func detectLanguage(item Item) string {
	if code := language.NormalizeCode(item.Language); code != "" {
		return code
	}
	return langdetect.DetectISO6391(strings.TrimSpace(item.Title + " " + item.Content))
}

func filterByBucket(sources []db.SourceRecord, buckets []string) []db.SourceRecord {
	if len(buckets) == 0 {
		return sources
	}

	allowed := make(map[string]struct{}, len(buckets))
	for _, bucket := range buckets {
		allowed[strings.ToUpper(strings.TrimSpace(bucket))] = struct{}{}
	}

	out := make([]db.SourceRecord, 0, len(sources))
	for _, source := range sources {
		if _, ok := allowed[source.Bucket]; ok {
			out = append(out, source)
		}
	}
	return out
}
