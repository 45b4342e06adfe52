package ingest

import (
	"math"
	"time"
)

// Item is one fetched entry before storage. Optional pointer fields carry
// provider-specific signals; the normalizer fills in defaults for the rest.
type Item struct {
	ExternalID       string
	Title            string
	URL              string
	PublishedAt      *time.Time
	Content          string
	Author           string
	AuthorHandle     string
	Language         string
	EngagementProxy  *float64
	OriginLinkCount  *int
	AuthorReputation *float64
	PracticalScore   *float64
	IsSocialInsight  bool
	QuotedLinks      []string
	Payload          map[string]any
}

func clamp01(value float64) float64 {
	return math.Max(0, math.Min(1, value))
}

func floatPtr(value float64) *float64 {
	return &value
}

func intPtr(value int) *int {
	return &value
}
