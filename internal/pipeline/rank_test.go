package pipeline

import (
	"math"
	"testing"
	"time"

	"horse.fit/aiscan/internal/db"
)

func testRankConfig() RankConfig {
	return RankConfig{MediaMax: 40, PracticalTargetRatio: 0.85, RepeatWindowDays: 7}
}

func TestScoreClustersRepeatDecay(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	item := testItem(1, 1, "https://x.com/e1", "headline", "snippet")
	clusters := BuildClusters([]db.CandidateRecord{item})

	fresh := ScoreClusters(clusters, now, map[string]int{}, testRankConfig())
	if fresh[0].StreakDays != 1 || fresh[0].RepeatDecay != 1 || fresh[0].IsRecurringHot {
		t.Fatalf("new cluster should have streak 1 and decay 1: %+v", fresh[0])
	}

	repeated := ScoreClusters(clusters, now, map[string]int{clusters[0].Key: 3}, testRankConfig())
	if repeated[0].StreakDays != 4 {
		t.Fatalf("expected streak 4, got %d", repeated[0].StreakDays)
	}
	if math.Abs(repeated[0].RepeatDecay-0.778688) > 1e-9 {
		t.Fatalf("expected decay 0.778688, got %f", repeated[0].RepeatDecay)
	}
	if !repeated[0].IsRecurringHot {
		t.Fatalf("streak above 1 should flag recurring hot")
	}
	if math.Abs(repeated[0].Score-round6(repeated[0].BaseScore*0.778688)) > 1e-6 {
		t.Fatalf("score should be base times decay")
	}

	capped := ScoreClusters(clusters, now, map[string]int{clusters[0].Key: 50}, testRankConfig())
	if capped[0].StreakDays != 7 {
		t.Fatalf("streak should cap at the repeat window, got %d", capped[0].StreakDays)
	}
}

func TestScoreClustersMediaOriginPenalty(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	withLink := testItem(1, 1, "https://x.com/post1", "post one", "snippet one")
	withLink.Bucket = "MEDIA"
	withLink.OriginLinkCount = 1
	withLink.AuthorReputation = 0.8
	withLink.EngagementProxy = 0.5

	withoutLink := withLink
	withoutLink.NormalizedItemID = 2
	withoutLink.CanonicalURL = "https://x.com/post2"
	withoutLink.DisplayTitle = "post two"
	withoutLink.TitleHash = "different-hash"
	withoutLink.ContentSnippet = "entirely different words about another topic altogether"
	withoutLink.OriginLinkCount = 0

	ranked := ScoreClusters(BuildClusters([]db.CandidateRecord{withLink, withoutLink}), now, nil, testRankConfig())
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked clusters, got %d", len(ranked))
	}

	var linked, unlinked RankedCandidate
	for _, r := range ranked {
		if r.NormalizedItemID == 1 {
			linked = r
		} else {
			unlinked = r
		}
	}
	if math.Abs(unlinked.BaseScore-round6(linked.BaseScore*0.55)) > 1e-5 {
		t.Fatalf("missing origin link should cost the 0.55 multiplier: %f vs %f", unlinked.BaseScore, linked.BaseScore)
	}
}

func TestScoreClustersMissingPublishTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	item := testItem(1, 1, "https://x.com/e1", "headline", "snippet")
	item.PublishedAt = nil

	ranked := ScoreClusters(BuildClusters([]db.CandidateRecord{item}), now, nil, testRankConfig())
	// PRACTICAL freshness term: exp(-120/48) on a 0.05 weight.
	expectedFreshness := math.Exp(-120.0 / 48)
	expectedBase := 0.4*0.7 + 0.25*0.6 + 0.2*0 + 0.1*clamp01(1.0/3) + 0.05*expectedFreshness
	if math.Abs(ranked[0].BaseScore-round6(expectedBase)) > 1e-6 {
		t.Fatalf("unexpected base score %f, want %f", ranked[0].BaseScore, round6(expectedBase))
	}
}

func TestResolveTrendCategory(t *testing.T) {
	t.Parallel()

	cases := []struct {
		slug     string
		provider string
		bucket   string
		want     string
	}{
		{"product-hunt-ai", "RSS", "PRACTICAL", CategoryProductHunt},
		{"hf-trending-models", "HUGGINGFACE", "PRACTICAL", CategoryHuggingFace},
		{"other", "HUGGINGFACE", "PRACTICAL", CategoryHuggingFace},
		{"reddit-localllama", "REDDIT_JSON", "PRACTICAL", CategoryReddit},
		{"x-social-researcher", "SOCIAL_AGG_A", "MEDIA", CategoryXTwitter},
		{"misc-feed", "RSS", "MEDIA", CategoryReddit},
		{"misc-feed", "RSS", "PRACTICAL", CategoryHuggingFace},
	}
	for _, tc := range cases {
		if got := ResolveTrendCategory(tc.slug, tc.provider, tc.bucket); got != tc.want {
			t.Fatalf("ResolveTrendCategory(%q,%q,%q) = %q, want %q", tc.slug, tc.provider, tc.bucket, got, tc.want)
		}
	}
}

func TestIsVersionNoiseTitle(t *testing.T) {
	t.Parallel()

	noisy := []string{"v1.2.3", "2.0.1", "[Tag] v3.4", "v1.2.0-beta.1", "widget release v2.14 notes", "changelog 1.8 highlights"}
	for _, title := range noisy {
		if !IsVersionNoiseTitle(title) {
			t.Fatalf("expected version noise: %q", title)
		}
	}

	clean := []string{"", "New agent framework ships", "GPT-5 review", "Python 3 tips"}
	for _, title := range clean {
		if IsVersionNoiseTitle(title) {
			t.Fatalf("unexpected version noise: %q", title)
		}
	}
}

func TestProjectKeyFromURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		want string
	}{
		{"https://github.com/Acme/Widget/releases/tag/v1", "github.com/acme/widget"},
		{"https://huggingface.co/spaces/Acme/demo", "huggingface.co/spaces/acme"},
		{"https://huggingface.co/acme/model-x", "huggingface.co/acme"},
		{"https://example.com/", "example.com"},
		{"https://example.com/post/123", "example.com/post"},
		{"not a url", ""},
	}
	for _, tc := range cases {
		if got := ProjectKeyFromURL(tc.url); got != tc.want {
			t.Fatalf("ProjectKeyFromURL(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
