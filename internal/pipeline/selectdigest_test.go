package pipeline

import (
	"fmt"
	"testing"

	"horse.fit/aiscan/internal/db"
)

func rankedPractical(id int64, category, sourceSlug string, score float64) RankedCandidate {
	return RankedCandidate{
		NormalizedItemID: id,
		ClusterKey:       fmt.Sprintf("key-%d", id),
		Score:            score,
		BaseScore:        score,
		Bucket:           "PRACTICAL",
		PracticalScore:   0.7,
		StreakDays:       1,
		RepeatDecay:      1,
		SourceCount:      1,
		ConfidenceLabel:  "medium",
		SourceSlug:       sourceSlug,
		TrendCategory:    category,
	}
}

func rankedMedia(id int64, category, handle string, score float64) RankedCandidate {
	item := rankedPractical(id, category, "x-social-researcher", score)
	item.Bucket = "MEDIA"
	if handle != "" {
		item.AuthorHandle = &handle
	}
	return item
}

func TestSelectWithQuotasCategoryCap(t *testing.T) {
	t.Parallel()

	var ranked []RankedCandidate
	for i := 0; i < 30; i++ {
		ranked = append(ranked, rankedPractical(int64(i+1), CategoryProductHunt,
			fmt.Sprintf("src-%d", i), 1.0-float64(i)*0.01))
	}

	selected := SelectWithQuotas(ranked, testRankConfig())
	if len(selected) != TargetPerCategory {
		t.Fatalf("expected %d entries, got %d", TargetPerCategory, len(selected))
	}
	for i, item := range selected {
		if item.Rank != i+1 {
			t.Fatalf("ranks must be dense from 1, got %d at index %d", item.Rank, i)
		}
	}
}

func TestSelectWithQuotasPracticalSourceCap(t *testing.T) {
	t.Parallel()

	var ranked []RankedCandidate
	for i := 0; i < 30; i++ {
		ranked = append(ranked, rankedPractical(int64(i+1), CategoryProductHunt,
			"same-source", 1.0-float64(i)*0.01))
	}

	selected := SelectWithQuotas(ranked, testRankConfig())
	if len(selected) != PracticalSourceCap {
		t.Fatalf("one source should cap at %d, got %d", PracticalSourceCap, len(selected))
	}
}

func TestSelectWithQuotasMediaAuthorCap(t *testing.T) {
	t.Parallel()

	var ranked []RankedCandidate
	for i := 0; i < 5; i++ {
		ranked = append(ranked, rankedMedia(int64(i+1), CategoryXTwitter, "Alice", 1.0-float64(i)*0.01))
	}
	ranked = append(ranked, rankedMedia(6, CategoryXTwitter, "bob", 0.5))

	selected := SelectWithQuotas(ranked, testRankConfig())
	if len(selected) != 3 {
		t.Fatalf("expected 2 from alice and 1 from bob, got %d", len(selected))
	}
	aliceCount := 0
	for _, item := range selected {
		if item.AuthorHandle != nil && *item.AuthorHandle == "Alice" {
			aliceCount++
		}
	}
	if aliceCount != 2 {
		t.Fatalf("author cap should allow 2 per handle, got %d", aliceCount)
	}
}

func TestSelectWithQuotasMediaMax(t *testing.T) {
	t.Parallel()

	var ranked []RankedCandidate
	for i := 0; i < 6; i++ {
		ranked = append(ranked, rankedMedia(int64(i+1), CategoryXTwitter,
			fmt.Sprintf("author-%d", i), 1.0-float64(i)*0.01))
	}

	cfg := testRankConfig()
	cfg.MediaMax = 2
	selected := SelectWithQuotas(ranked, cfg)
	if len(selected) != 2 {
		t.Fatalf("media max should cap selection at 2, got %d", len(selected))
	}
}

func TestSelectWithQuotasVersionNoiseCaps(t *testing.T) {
	t.Parallel()

	var ranked []RankedCandidate
	for i := 0; i < 6; i++ {
		item := rankedPractical(int64(i+1), CategoryProductHunt, fmt.Sprintf("src-%d", i), 1.0-float64(i)*0.01)
		item.IsVersionNoise = true
		item.ProjectKey = fmt.Sprintf("github.com/org/repo-%d", i)
		ranked = append(ranked, item)
	}
	// A second version bump for an already seen project.
	dupe := rankedPractical(7, CategoryProductHunt, "src-7", 0.4)
	dupe.IsVersionNoise = true
	dupe.ProjectKey = "github.com/org/repo-0"
	ranked = append(ranked, dupe)

	selected := SelectWithQuotas(ranked, testRankConfig())
	if len(selected) != VersionNoiseCap {
		t.Fatalf("global noise cap should hold at %d, got %d", VersionNoiseCap, len(selected))
	}
	for _, item := range selected {
		if item.ProjectKey == "github.com/org/repo-0" && item.NormalizedItemID == 7 {
			t.Fatalf("per-project cap should reject the second bump for one project")
		}
	}
}

func TestSelectWithQuotasPracticalTargetThenRelaxed(t *testing.T) {
	t.Parallel()

	var ranked []RankedCandidate
	for i := 0; i < 20; i++ {
		ranked = append(ranked, rankedPractical(int64(i+1), CategoryProductHunt,
			fmt.Sprintf("src-%d", i), 1.0-float64(i)*0.01))
	}

	selected := SelectWithQuotas(ranked, testRankConfig())
	// Pass one stops at round(20*0.85)=17 practical; pass two lifts the
	// quota and fills the category to 20.
	if len(selected) != TargetPerCategory {
		t.Fatalf("relaxed pass should fill the category, got %d", len(selected))
	}
}

func TestSelectWithQuotasDenseRanksAcrossCategories(t *testing.T) {
	t.Parallel()

	ranked := []RankedCandidate{
		rankedPractical(1, CategoryHuggingFace, "hf-src", 0.9),
		rankedPractical(2, CategoryProductHunt, "ph-src", 0.8),
		rankedMedia(3, CategoryXTwitter, "carol", 0.7),
		rankedPractical(4, CategoryReddit, "r-src", 0.6),
	}

	selected := SelectWithQuotas(ranked, testRankConfig())
	if len(selected) != 4 {
		t.Fatalf("expected all 4 selected, got %d", len(selected))
	}
	wantCategories := []string{CategoryProductHunt, CategoryHuggingFace, CategoryReddit, CategoryXTwitter}
	for i, item := range selected {
		if item.TrendCategory != wantCategories[i] {
			t.Fatalf("category order broken at %d: %s", i, item.TrendCategory)
		}
		if item.Rank != i+1 {
			t.Fatalf("ranks must be dense, got %d at %d", item.Rank, i)
		}
	}
}

func fallbackCandidate(id int64, slug, provider, bucket string) db.CandidateRecord {
	return db.CandidateRecord{
		NormalizedItemID: id,
		SourceID:         id,
		SourceSlug:       slug,
		Provider:         provider,
		Bucket:           bucket,
		DisplayTitle:     fmt.Sprintf("item %d", id),
		CanonicalURL:     fmt.Sprintf("https://example.com/%d", id),
	}
}

func TestFillLowConfidenceTopsUpShortDigest(t *testing.T) {
	t.Parallel()

	candidates := []db.CandidateRecord{
		fallbackCandidate(1, "product-hunt-ai", "RSS", "PRACTICAL"),
		fallbackCandidate(2, "product-hunt-ai", "RSS", "PRACTICAL"),
		fallbackCandidate(3, "hf-trending-models", "HUGGINGFACE", "PRACTICAL"),
		fallbackCandidate(4, "reddit-localllama", "REDDIT_JSON", "PRACTICAL"),
		fallbackCandidate(5, "x-social-researcher", "SOCIAL_AGG_A", "MEDIA"),
	}

	filled := FillLowConfidence(nil, candidates, 40)
	if len(filled) != 5 {
		t.Fatalf("expected all candidates admitted as filler, got %d", len(filled))
	}
	for i, item := range filled {
		if item.Rank != i+1 {
			t.Fatalf("filler ranks must be dense, got %d at %d", item.Rank, i)
		}
		if item.Score != 0.05 || item.BaseScore != 0.05 {
			t.Fatalf("filler score must be 0.05, got %f", item.Score)
		}
		if item.ConfidenceLabel != "low" || item.StreakDays != 1 || item.RepeatDecay != 1 {
			t.Fatalf("filler metadata wrong: %+v", item)
		}
		if item.ClusterKey[:9] != "fallback-" {
			t.Fatalf("filler cluster key must be synthetic, got %q", item.ClusterKey)
		}
	}

	media := filled[len(filled)-1]
	if media.PracticalScore != 0.45 {
		t.Fatalf("media filler practical score should be 0.45, got %f", media.PracticalScore)
	}
	if filled[0].PracticalScore != 0.65 {
		t.Fatalf("practical filler score should be 0.65, got %f", filled[0].PracticalScore)
	}
}

func TestFillLowConfidenceRespectsMediaCap(t *testing.T) {
	t.Parallel()

	var candidates []db.CandidateRecord
	for i := 0; i < 5; i++ {
		candidates = append(candidates, fallbackCandidate(int64(i+1), "x-social-researcher", "SOCIAL_AGG_A", "MEDIA"))
	}

	filled := FillLowConfidence(nil, candidates, 2)
	if len(filled) != 2 {
		t.Fatalf("media cap should limit fillers to 2, got %d", len(filled))
	}
}

func TestFillLowConfidenceKeepsFullDigestUntouched(t *testing.T) {
	t.Parallel()

	full := make([]RankedCandidate, TargetSize)
	for i := range full {
		full[i] = rankedPractical(int64(i+1), CategoryProductHunt, "src", 0.5)
		full[i].Rank = i + 1
	}
	filled := FillLowConfidence(full, nil, 40)
	if len(filled) != TargetSize {
		t.Fatalf("full digest should pass through unchanged, got %d", len(filled))
	}
}
