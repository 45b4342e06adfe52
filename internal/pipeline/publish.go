package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/aiscan/internal/db"
	"horse.fit/aiscan/internal/globaltime"
)

const (
	practicalLookbackDays = 30
	mediaLookbackDays     = 7
	candidateFetchLimit   = 1600
)

// Publisher sequences one digest run: normalization, candidate load,
// clustering, scoring, selection, fallback fill and the atomic replace of
// the date's stored digest.
type Publisher struct {
	pool       *db.Pool
	log        zerolog.Logger
	normalizer *Normalizer
	cfg        RankConfig
}

func NewPublisher(pool *db.Pool, logger zerolog.Logger, normalizer *Normalizer, cfg RankConfig) *Publisher {
	return &Publisher{
		pool:       pool,
		log:        logger.With().Str("component", "publish").Logger(),
		normalizer: normalizer,
		cfg:        cfg,
	}
}

// PublishResult reports one completed run.
type PublishResult struct {
	RunID           int64     `json:"run_id"`
	DigestDate      time.Time `json:"digest_date"`
	NormalizedCount int       `json:"normalized_count"`
	DigestCount     int       `json:"digest_count"`
}

// Run publishes the digest for the target date. On failure the run record
// is marked failed with the error retained, and the previous digest for
// the date stays untouched.
func (p *Publisher) Run(ctx context.Context, targetDate time.Time) (PublishResult, error) {
	digestDate := targetDate.UTC().Truncate(24 * time.Hour)

	runID, err := p.pool.InsertJobRun(ctx, "publish")
	if err != nil {
		return PublishResult{}, err
	}

	result, err := p.run(ctx, runID, digestDate)
	if err != nil {
		if markErr := p.pool.MarkJobRunFailed(ctx, runID, err.Error()); markErr != nil {
			p.log.Error().Err(markErr).Int64("run_id", runID).Msg("mark publish run failed")
		}
		return PublishResult{}, err
	}
	return result, nil
}

func (p *Publisher) run(ctx context.Context, runID int64, digestDate time.Time) (PublishResult, error) {
	normalizedCount, err := p.normalizer.NormalizeRecent(ctx, NormalizeWindowHours)
	if err != nil {
		return PublishResult{}, fmt.Errorf("normalize: %w", err)
	}

	practicalSince := digestDate.Add(-practicalLookbackDays * 24 * time.Hour)
	mediaSince := digestDate.Add(-mediaLookbackDays * 24 * time.Hour)
	candidates, err := p.pool.ListCandidateItems(ctx, practicalSince, mediaSince, candidateFetchLimit)
	if err != nil {
		return PublishResult{}, fmt.Errorf("load candidates: %w", err)
	}

	streakSince := digestDate.Add(-time.Duration(p.cfg.RepeatWindowDays) * 24 * time.Hour)
	priorStreaks, err := p.pool.ListPriorStreaks(ctx, streakSince, digestDate)
	if err != nil {
		return PublishResult{}, fmt.Errorf("load prior streaks: %w", err)
	}

	sorted := SortByPublishedDesc(candidates)
	clusters := BuildClusters(sorted)
	ranked := ScoreClusters(clusters, globaltime.UTC(), priorStreaks, p.cfg)
	selected := SelectWithQuotas(ranked, p.cfg)
	final := FillLowConfidence(selected, candidates, p.cfg.MediaMax)

	inserts := make([]db.DigestItemInsert, 0, len(final))
	for _, entry := range final {
		inserts = append(inserts, db.DigestItemInsert{
			NormalizedItemID:   entry.NormalizedItemID,
			Category:           entry.TrendCategory,
			Rank:               entry.Rank,
			Score:              entry.Score,
			BaseScore:          entry.BaseScore,
			PracticalScore:     entry.PracticalScore,
			Confidence:         entry.ConfidenceLabel,
			StreakDays:         entry.StreakDays,
			RepeatDecay:        entry.RepeatDecay,
			CrossSourceConfirm: entry.CrossSourceConfirm,
			SourceCount:        entry.SourceCount,
			ClusterKey:         entry.ClusterKey,
			IsRecurringHot:     entry.IsRecurringHot,
		})
	}

	if err := p.pool.ReplaceDigest(ctx, digestDate, inserts); err != nil {
		return PublishResult{}, fmt.Errorf("replace digest: %w", err)
	}

	counts := map[string]int{
		"normalized": normalizedCount,
		"candidates": len(candidates),
		"clusters":   len(clusters),
		"digest":     len(final),
	}
	if err := p.pool.MarkJobRunCompleted(ctx, runID, "success", counts); err != nil {
		return PublishResult{}, err
	}

	p.log.Info().
		Int64("run_id", runID).
		Time("digest_date", digestDate).
		Int("normalized", normalizedCount).
		Int("digest", len(final)).
		Msg("publish run complete")

	return PublishResult{
		RunID:           runID,
		DigestDate:      digestDate,
		NormalizedCount: normalizedCount,
		DigestCount:     len(final),
	}, nil
}
