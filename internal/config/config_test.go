package config

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Config{
		DatabaseURL:    "postgres://localhost/aiscan",
		DBMinConns:     1,
		DBMaxConns:     4,
		PublishTime:    "09:00",
		IngestInterval: 2 * time.Hour,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := cfg
	bad.DatabaseURL = "  "
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for missing DATABASE_URL")
	}

	bad = cfg
	bad.PublishTime = "25:00"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for out-of-range PUBLISH_TIME")
	}

	bad = cfg
	bad.IngestInterval = time.Second
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for sub-minute INGEST_INTERVAL")
	}
}

func TestClampedAccessors(t *testing.T) {
	t.Parallel()

	cfg := Config{MediaMaxRaw: 500, PracticalTargetRatioRaw: 0.1, RepeatWindowDaysRaw: 30}
	if got := cfg.MediaMax(); got != 80 {
		t.Fatalf("MEDIA_MAX should clamp to 80, got %d", got)
	}
	if got := cfg.PracticalTargetRatio(); got != 0.5 {
		t.Fatalf("PRACTICAL_TARGET_RATIO should clamp to 0.5, got %f", got)
	}
	if got := cfg.RepeatWindowDays(); got != 14 {
		t.Fatalf("REPEAT_WINDOW_DAYS should clamp to 14, got %d", got)
	}

	cfg = Config{MediaMaxRaw: 40, PracticalTargetRatioRaw: 0.85, RepeatWindowDaysRaw: 7}
	if cfg.MediaMax() != 40 || cfg.PracticalTargetRatio() != 0.85 || cfg.RepeatWindowDays() != 7 {
		t.Fatalf("in-range values should pass through unchanged")
	}
}

func TestParsePublishTime(t *testing.T) {
	t.Parallel()

	hour, minute, err := ParsePublishTime("09:30")
	if err != nil || hour != 9 || minute != 30 {
		t.Fatalf("unexpected parse result: %d:%d, %v", hour, minute, err)
	}
	if _, _, err := ParsePublishTime("morning"); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
}
