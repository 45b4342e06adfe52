package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/aiscan/internal/config"
	"horse.fit/aiscan/internal/globaltime"
	"horse.fit/aiscan/internal/httpapi"
	"horse.fit/aiscan/internal/pipeline"
)

// scheduler drives the recurring jobs inside the serve process: ingestion
// on a fixed interval and one publish per day at the configured wall-clock
// time (UTC).
type scheduler struct {
	log            zerolog.Logger
	ingestInterval time.Duration
	publishHour    int
	publishMinute  int
	rankCfg        pipeline.RankConfig
	ingest         httpapi.IngestFunc
	publish        httpapi.PublishFunc
}

func newScheduler(cfg *config.Config, logger zerolog.Logger, ingestFn httpapi.IngestFunc, publishFn httpapi.PublishFunc) (*scheduler, error) {
	hour, minute, err := config.ParsePublishTime(cfg.PublishTime)
	if err != nil {
		return nil, err
	}

	return &scheduler{
		log:            logger.With().Str("component", "scheduler").Logger(),
		ingestInterval: cfg.IngestInterval,
		publishHour:    hour,
		publishMinute:  minute,
		rankCfg:        rankConfig(cfg),
		ingest:         ingestFn,
		publish:        publishFn,
	}, nil
}

func (s *scheduler) Run(ctx context.Context) {
	s.log.Info().
		Dur("ingest_interval", s.ingestInterval).
		Int("publish_hour", s.publishHour).
		Int("publish_minute", s.publishMinute).
		Msg("scheduler started")

	ticker := time.NewTicker(s.ingestInterval)
	defer ticker.Stop()

	publishTimer := time.NewTimer(s.untilNextPublish())
	defer publishTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.runIngest(ctx)
		case <-publishTimer.C:
			s.runPublish(ctx)
			publishTimer.Reset(s.untilNextPublish())
		}
	}
}

func (s *scheduler) runIngest(ctx context.Context) {
	result, err := s.ingest(ctx, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled ingest failed")
		return
	}
	s.log.Info().
		Int64("run_id", result.RunID).
		Str("status", result.Status).
		Int("processed", result.ProcessedCount).
		Msg("scheduled ingest complete")
}

func (s *scheduler) runPublish(ctx context.Context) {
	result, err := s.publish(ctx, globaltime.UTC(), s.rankCfg)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled publish failed")
		return
	}
	s.log.Info().
		Int64("run_id", result.RunID).
		Time("digest_date", result.DigestDate).
		Int("digest", result.DigestCount).
		Msg("scheduled publish complete")
}

// untilNextPublish returns the wait until the next configured publish
// time, always in the future so a publish never fires twice for one tick.
func (s *scheduler) untilNextPublish() time.Duration {
	now := globaltime.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.publishHour, s.publishMinute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
