package pipeline

import "strings"

// Trend categories, in the fixed order digest blocks are emitted.
const (
	CategoryProductHunt = "PRODUCT_HUNT_AI"
	CategoryHuggingFace = "HUGGINGFACE_TRENDING"
	CategoryReddit      = "REDDIT_DEV"
	CategoryXTwitter    = "X_TWITTER_AI"
)

// CategoryOrder is the digest's category priority.
var CategoryOrder = []string{
	CategoryProductHunt,
	CategoryHuggingFace,
	CategoryReddit,
	CategoryXTwitter,
}

// ResolveTrendCategory maps a source's slug, provider and bucket onto the
// digest category its items compete in.
func ResolveTrendCategory(sourceSlug, sourceProvider, sourceBucket string) string {
	slug := strings.ToLower(sourceSlug)
	provider := strings.ToUpper(sourceProvider)

	switch {
	case strings.Contains(slug, "product-hunt"):
		return CategoryProductHunt
	case strings.Contains(slug, "hf-trending") || provider == "HUGGINGFACE":
		return CategoryHuggingFace
	case strings.Contains(slug, "reddit") || provider == "REDDIT_JSON":
		return CategoryReddit
	case provider == "SOCIAL_AGG_A" || provider == "SOCIAL_AGG_B" || strings.Contains(slug, "social-researcher"):
		return CategoryXTwitter
	}
	if sourceBucket == "MEDIA" {
		return CategoryReddit
	}
	return CategoryHuggingFace
}
