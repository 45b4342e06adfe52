package pipeline

import (
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Digest shape constants.
const (
	TargetPerCategory  = 20
	TargetSize         = 80
	PracticalSourceCap = 10
	VersionNoiseCap    = 4
)

// RankConfig carries the tunable digest shape knobs.
type RankConfig struct {
	MediaMax             int
	PracticalTargetRatio float64
	RepeatWindowDays     int
}

// RankedCandidate is one scored cluster with everything the selector needs.
type RankedCandidate struct {
	Rank               int
	NormalizedItemID   int64
	ClusterKey         string
	Score              float64
	BaseScore          float64
	Bucket             string
	PracticalScore     float64
	IsRecurringHot     bool
	StreakDays         int
	RepeatDecay        float64
	AuthorHandle       *string
	CrossSourceConfirm float64
	SourceCount        int
	ConfidenceLabel    string
	SourceSlug         string
	CanonicalURL       string
	Title              string
	IsVersionNoise     bool
	ProjectKey         string
	TrendCategory      string
}

var (
	rankedBracketPattern = regexp.MustCompile(`^\[[^\]]+\]\s*`)
	versionTitlePattern  = regexp.MustCompile(`(?i)^v?\d+\.\d+(?:\.\d+){0,2}(?:[-+._][0-9a-z]+)*$`)
	versionPhrasePattern = regexp.MustCompile(`(?i)(?:^|\s)(release|changelog|版本)\s*v?\d+\.\d+`)
)

func clamp01(value float64) float64 {
	return math.Max(0, math.Min(1, value))
}

func round6(value float64) float64 {
	return math.Round(value*1e6) / 1e6
}

func hoursSince(now time.Time, publishedAt *time.Time) float64 {
	if publishedAt == nil {
		return 120
	}
	return now.Sub(*publishedAt).Hours()
}

type scoreInput struct {
	bucket             string
	practicalScore     float64
	sourceWeight       float64
	engagement         float64
	crossSourceConfirm float64
	freshness          float64
	authorReputation   float64
	originLinkCount    int
}

// baseScore blends the normalized features with bucket-specific weights.
// MEDIA items without any origin link lose close to half their score.
func baseScore(in scoreInput) float64 {
	if in.bucket == "MEDIA" {
		social := 0.3*in.practicalScore +
			0.25*in.sourceWeight +
			0.2*in.engagement +
			0.15*in.crossSourceConfirm +
			0.1*in.authorReputation
		if in.originLinkCount == 0 {
			return social * 0.55
		}
		return social
	}

	return 0.4*in.practicalScore +
		0.25*in.sourceWeight +
		0.2*in.engagement +
		0.1*in.crossSourceConfirm +
		0.05*in.freshness
}

func computeRepeatDecay(streakDays int) float64 {
	exponent := streakDays - 1
	if exponent < 0 {
		exponent = 0
	}
	return round6(math.Pow(0.92, float64(exponent)))
}

// IsVersionNoiseTitle reports whether a title is a bare version-bump
// announcement rather than substantive news.
func IsVersionNoiseTitle(title string) bool {
	normalized := strings.ToLower(strings.TrimSpace(rankedBracketPattern.ReplaceAllString(title, "")))
	if normalized == "" {
		return false
	}
	if versionTitlePattern.MatchString(normalized) {
		return true
	}
	return versionPhrasePattern.MatchString(normalized)
}

// ProjectKeyFromURL folds a URL onto the project it talks about, so version
// chatter about one repo or space can be capped. Returns "" when the URL
// does not parse.
func ProjectKeyFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())

	var parts []string
	for _, part := range strings.Split(parsed.Path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}

	if len(parts) == 0 {
		return host
	}
	if strings.Contains(host, "github.com") && len(parts) >= 2 {
		return host + "/" + strings.ToLower(parts[0]) + "/" + strings.ToLower(parts[1])
	}
	if strings.Contains(host, "huggingface.co") && len(parts) >= 2 && strings.ToLower(parts[0]) == "spaces" {
		return host + "/spaces/" + strings.ToLower(parts[1])
	}
	return host + "/" + strings.ToLower(parts[0])
}

// ScoreClusters turns clusters into ranked candidates, applying the
// bucket-aware base score and the repeat-decay streak lookup, and returns
// them sorted by score descending.
func ScoreClusters(clusters []*Cluster, now time.Time, priorStreaks map[string]int, cfg RankConfig) []RankedCandidate {
	ranked := make([]RankedCandidate, 0, len(clusters))

	for _, cluster := range clusters {
		rep := cluster.Representative
		sourceCount := cluster.SourceCount()
		crossSourceConfirm := clamp01(math.Min(1, float64(sourceCount)/3))

		practicality := clamp01(rep.PracticalScore)
		sourceWeight := clamp01(rep.Weight)
		engagement := clamp01(rep.EngagementProxy)
		freshness := clamp01(math.Exp(-hoursSince(now, rep.PublishedAt) / 48))
		authorReputation := clamp01(rep.AuthorReputation)

		streakDays := priorStreaks[cluster.Key] + 1
		if streakDays > cfg.RepeatWindowDays {
			streakDays = cfg.RepeatWindowDays
		}
		repeatDecay := computeRepeatDecay(streakDays)

		base := baseScore(scoreInput{
			bucket:             rep.Bucket,
			practicalScore:     practicality,
			sourceWeight:       sourceWeight,
			engagement:         engagement,
			crossSourceConfirm: crossSourceConfirm,
			freshness:          freshness,
			authorReputation:   authorReputation,
			originLinkCount:    rep.OriginLinkCount,
		})

		ranked = append(ranked, RankedCandidate{
			NormalizedItemID:   rep.NormalizedItemID,
			ClusterKey:         cluster.Key,
			Score:              round6(base * repeatDecay),
			BaseScore:          round6(base),
			Bucket:             rep.Bucket,
			PracticalScore:     practicality,
			IsRecurringHot:     streakDays > 1,
			StreakDays:         streakDays,
			RepeatDecay:        repeatDecay,
			AuthorHandle:       rep.AuthorHandle,
			CrossSourceConfirm: crossSourceConfirm,
			SourceCount:        sourceCount,
			ConfidenceLabel:    cluster.ConfidenceLabel(),
			SourceSlug:         rep.SourceSlug,
			CanonicalURL:       rep.CanonicalURL,
			Title:              rep.DisplayTitle,
			IsVersionNoise:     IsVersionNoiseTitle(rep.DisplayTitle),
			ProjectKey:         ProjectKeyFromURL(rep.CanonicalURL),
			TrendCategory:      ResolveTrendCategory(rep.SourceSlug, rep.Provider, rep.Bucket),
		})
	}

	sortByScoreDesc(ranked)
	return ranked
}
