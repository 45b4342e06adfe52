package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"horse.fit/aiscan/internal/db"
	"horse.fit/aiscan/internal/globaltime"
	"horse.fit/aiscan/internal/textutil"
	sourceschema "horse.fit/aiscan/schema"
)

const (
	defaultSocialLimit    = 50
	defaultMinEngagement  = 8
	socialEngagementNorm  = 1500
	socialContentRunes    = 2000
	socialTitleRunes      = 120
	profileLineScanLimit  = 240
	profilePostsPerAuthor = 5
)

var (
	profileSkipPattern = regexp.MustCompile(`^(Pinned|Quote|Who to follow|Title:|URL Source:|Published Time:|Markdown Content:|\[!\[)`)
	profilePostsMarker = regexp.MustCompile(`(?i)posts`)
	signaturePattern   = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// fetchSocialItems pulls watchlist posts from one aggregator provider. When
// the provider has no credentials it falls back to scraping public profile
// mirrors; an empty fallback harvest is treated as a provider failure so the
// source health reflects the missing configuration.
func (f *fetcher) fetchSocialItems(ctx context.Context, source db.SourceRecord, cfg *sourceschema.SourceConfig, provider string) ([]Item, error) {
	creds := f.socialA
	if provider == "B" {
		creds = f.socialB
	}

	watchlist := watchlistByID(cfg.WatchlistID)
	authors := watchlist.activeAuthors()

	baseURL := strings.TrimRight(strings.TrimSpace(creds.BaseURL), "/")
	apiKey := strings.TrimSpace(creds.APIKey)

	if baseURL == "" || apiKey == "" {
		items, err := f.fetchPublicProfileItems(ctx, cfg, authors)
		if err == nil && len(items) > 0 {
			return items, nil
		}
		return nil, fmt.Errorf("SOCIAL_AGG_%s credentials are not configured", provider)
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultSocialLimit
	}

	handles := make([]string, 0, len(authors))
	for _, author := range authors {
		handles = append(handles, author.Handle)
	}

	watchlistID := cfg.WatchlistID
	if watchlistID == "" {
		watchlistID = watchlist.ID
	}

	body, err := json.Marshal(map[string]any{
		"watchlistId": watchlistID,
		"handles":     handles,
		"limit":       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("encode watchlist request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/posts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build watchlist request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SOCIAL_AGG_%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("SOCIAL_AGG_%s API failed: %d", provider, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read SOCIAL_AGG_%s response: %w", provider, err)
	}

	var payload struct {
		Posts []map[string]any `json:"posts"`
		Data  []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode SOCIAL_AGG_%s response: %w", provider, err)
	}

	posts := payload.Posts
	if len(posts) == 0 {
		posts = payload.Data
	}

	reputation := make(map[string]float64, len(authors))
	for _, author := range authors {
		reputation[strings.ToLower(author.Handle)] = author.Reputation
	}

	items := make([]Item, 0, len(posts))
	for _, post := range posts {
		item, ok := normalizeSocialPost(source, cfg, post, reputation)
		if !ok {
			continue
		}
		items = append(items, item)
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

func normalizeSocialPost(source db.SourceRecord, cfg *sourceschema.SourceConfig, post map[string]any, reputation map[string]float64) (Item, bool) {
	postID := firstString(post, "id", "postId", "tweet_id", "tweetId")
	authorHandle := firstString(post, "authorHandle", "handle")
	if authorHandle == "" {
		authorHandle = nestedString(post, "author", "handle")
	}
	if authorHandle == "" {
		authorHandle = nestedString(post, "user", "username")
	}

	text := firstString(post, "text", "content", "body")

	title := firstString(post, "title")
	if title == "" && text != "" {
		title = strings.Join(strings.Fields(textutil.TruncateRunes(text, socialTitleRunes)), " ")
	}
	if title == "" {
		title = untitledFeedEntry
	}

	url := firstString(post, "url", "postUrl")
	if url == "" && postID != "" {
		url = fmt.Sprintf("https://x.com/%s/status/%s", authorHandle, postID)
	}

	if postID == "" || authorHandle == "" || url == "" || text == "" {
		return Item{}, false
	}

	if !aiRelevant(title+" "+text, cfg.DomainAllow) {
		return Item{}, false
	}

	minEngagement := defaultMinEngagement
	if cfg.MinEngagement != nil {
		minEngagement = *cfg.MinEngagement
	}

	rawEngagement := -1.0
	if value, ok := asNumber(post["rawEngagement"]); ok {
		rawEngagement = value
	}

	var engagement float64
	if rawEngagement >= 0 {
		engagement = clamp01(math.Log1p(rawEngagement) / math.Log(socialEngagementNorm))
	} else {
		engagement = summedEngagement(post)
	}

	materialized := rawEngagement
	if materialized < 0 {
		materialized = math.Floor(engagement * 200)
	}
	if materialized < float64(minEngagement) {
		return Item{}, false
	}

	lang := firstString(post, "lang")
	if lang == "" {
		lang = "en"
	}
	langAllow := cfg.LangAllow
	if len(langAllow) == 0 {
		langAllow = []string{"en"}
	}
	if !containsString(langAllow, lang) {
		return Item{}, false
	}

	quotedLinks := stringSlice(post["links"])
	if len(quotedLinks) == 0 {
		quotedLinks = stringSlice(post["quotedLinks"])
	}

	authorReputation, ok := reputation[strings.ToLower(authorHandle)]
	if !ok {
		authorReputation = 0.6
	}

	var publishedAt *time.Time
	if created := firstString(post, "createdAt", "created_at"); created != "" {
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			utc := ts.UTC()
			publishedAt = &utc
		}
	}

	author := firstString(post, "authorName")
	if author == "" {
		author = authorHandle
	}

	return Item{
		ExternalID:       postID,
		Title:            title,
		URL:              url,
		PublishedAt:      publishedAt,
		Content:          textutil.TruncateRunes(text, socialContentRunes),
		Author:           author,
		AuthorHandle:     authorHandle,
		Language:         lang,
		EngagementProxy:  floatPtr(engagement),
		OriginLinkCount:  intPtr(len(quotedLinks)),
		AuthorReputation: floatPtr(authorReputation),
		PracticalScore:   floatPtr(socialPracticalScore(authorReputation)),
		IsSocialInsight:  true,
		QuotedLinks:      quotedLinks,
		Payload: map[string]any{
			"post_id":      postID,
			"authorHandle": authorHandle,
			"engagement":   engagement,
		},
	}, true
}

// fetchPublicProfileItems scrapes the readable mirror of each author's
// public profile and extracts post-like lines. Coarse by design of the
// mirror format; it only runs when no aggregator is configured.
func (f *fetcher) fetchPublicProfileItems(ctx context.Context, cfg *sourceschema.SourceConfig, authors []WatchAuthor) ([]Item, error) {
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultSocialLimit
	}
	minEngagement := defaultMinEngagement
	if cfg.MinEngagement != nil {
		minEngagement = *cfg.MinEngagement
	}
	langAllow := cfg.LangAllow
	if len(langAllow) == 0 {
		langAllow = []string{"en", "zh"}
	}

	var items []Item
	for _, author := range authors {
		if len(items) >= limit {
			break
		}

		markdown, err := f.getText(ctx, fmt.Sprintf("%s/http://x.com/%s", f.profileMirrorURL, author.Handle))
		if err != nil {
			continue
		}

		lines := make([]string, 0, profileLineScanLimit)
		for _, line := range strings.Split(markdown, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				lines = append(lines, trimmed)
			}
		}

		scope := lines
		for i, line := range lines {
			if profilePostsMarker.MatchString(line) {
				scope = lines[i+1:]
				break
			}
		}
		if len(scope) > profileLineScanLimit {
			scope = scope[:profileLineScanLimit]
		}

		extracted := 0
		for _, line := range scope {
			if len(items) >= limit || extracted >= profilePostsPerAuthor {
				break
			}
			if len(line) < 40 || len(line) > 220 {
				continue
			}
			if profileSkipPattern.MatchString(line) {
				continue
			}
			if !aiRelevant(line, cfg.DomainAllow) && author.Reputation < 0.88 {
				continue
			}

			engagement := math.Max(0.2, math.Min(0.8, 0.35+author.Reputation*0.4))
			if math.Floor(engagement*100) < float64(minEngagement) {
				continue
			}

			lang := "en"
			if !containsString(langAllow, lang) {
				continue
			}

			normalizedText := strings.Join(strings.Fields(line), " ")
			signature := strings.ToLower(signaturePattern.ReplaceAllString(textutil.TruncateRunes(normalizedText, 42), "_"))
			if signature == "" {
				signature = fmt.Sprintf("%d", extracted)
			}

			now := globaltime.UTC()
			items = append(items, Item{
				ExternalID:       fmt.Sprintf("public-%s-%s", author.Handle, signature),
				Title:            textutil.TruncateRunes(normalizedText, socialTitleRunes),
				URL:              fmt.Sprintf("https://x.com/%s", author.Handle),
				PublishedAt:      &now,
				Content:          normalizedText,
				Author:           author.DisplayName,
				AuthorHandle:     author.Handle,
				Language:         lang,
				EngagementProxy:  floatPtr(engagement),
				OriginLinkCount:  intPtr(0),
				AuthorReputation: floatPtr(author.Reputation),
				PracticalScore:   floatPtr(socialPracticalScore(author.Reputation)),
				IsSocialInsight:  true,
				QuotedLinks:      []string{},
				Payload: map[string]any{
					"post_id":      "public-" + signature,
					"authorHandle": author.Handle,
					"engagement":   engagement,
					"fetch_mode":   "public-profile-fallback",
				},
			})
			extracted++
		}
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func socialPracticalScore(reputation float64) float64 {
	return math.Max(0.2, math.Min(0.95, 0.45+reputation*0.45))
}

func aiRelevant(text string, domainAllow []string) bool {
	normalized := strings.ToLower(text)
	for _, keyword := range aiTopicKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	for _, tag := range domainAllow {
		if strings.Contains(normalized, strings.ToLower(tag)) {
			return true
		}
	}
	return false
}

func summedEngagement(post map[string]any) float64 {
	total := 0.0
	for _, key := range []string{"likeCount", "replyCount", "repostCount", "quoteCount", "bookmarkCount"} {
		if value, ok := asNumber(post[key]); ok {
			total += value
		}
	}
	if nested, ok := post["engagement"].(map[string]any); ok {
		for _, key := range []string{"likes", "replies", "reposts", "quotes"} {
			if value, ok := asNumber(nested[key]); ok {
				total += value
			}
		}
	}
	return clamp01(math.Log1p(total) / math.Log(socialEngagementNorm))
}

func firstString(post map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := post[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func nestedString(post map[string]any, outer, inner string) string {
	nested, ok := post[outer].(map[string]any)
	if !ok {
		return ""
	}
	return firstString(nested, inner)
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func stringSlice(value any) []string {
	raw, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
