package ingest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"horse.fit/aiscan/internal/db"
	"horse.fit/aiscan/internal/textutil"
	sourceschema "horse.fit/aiscan/schema"
)

const (
	defaultRedditLimit   = 30
	redditContentRunes   = 1800
	redditEngagementNorm = 5000
)

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Permalink   string  `json:"permalink"`
	SelfText    string  `json:"selftext"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	Ups         float64 `json:"ups"`
	NumComments float64 `json:"num_comments"`
}

// fetchRedditItems reads a subreddit listing from the old-reddit JSON
// endpoint, which stays available without OAuth.
func (f *fetcher) fetchRedditItems(ctx context.Context, source db.SourceRecord, cfg *sourceschema.SourceConfig) ([]Item, error) {
	subreddit := strings.TrimSpace(cfg.Subreddit)
	if subreddit == "" {
		return nil, nil
	}

	sort := cfg.Sort
	if sort != "new" && sort != "top" {
		sort = "hot"
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultRedditLimit
	}

	endpoint := fmt.Sprintf("%s/r/%s/%s.json?limit=%d", f.redditBaseURL, subreddit, sort, limit)

	var listing redditListing
	if err := f.getJSON(ctx, endpoint, &listing); err != nil {
		return nil, fmt.Errorf("reddit listing: %w", err)
	}

	items := make([]Item, 0, len(listing.Data.Children))
	for i, child := range listing.Data.Children {
		post := child.Data

		id := post.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", subreddit, i)
		}

		title := strings.TrimSpace(post.Title)
		if title == "" {
			title = untitledFeedEntry
		}

		url := post.Permalink
		if url != "" && !strings.HasPrefix(url, "http") {
			url = "https://www.reddit.com" + url
		}
		if url == "" {
			url = source.URL
		}
		if url == "" {
			continue
		}

		var publishedAt *time.Time
		if post.CreatedUTC > 0 {
			ts := time.Unix(int64(post.CreatedUTC), 0).UTC()
			publishedAt = &ts
		}

		engagement := clamp01(math.Log1p(post.Ups+post.NumComments*2) / math.Log(redditEngagementNorm))

		author := post.Author
		if author == "" {
			author = "r/" + subreddit
		}

		items = append(items, Item{
			ExternalID:      id,
			Title:           title,
			URL:             url,
			PublishedAt:     publishedAt,
			Content:         textutil.TruncateRunes(post.SelfText, redditContentRunes),
			Author:          author,
			Language:        "en",
			EngagementProxy: floatPtr(engagement),
			OriginLinkCount: intPtr(1),
			PracticalScore:  floatPtr(0.68),
			Payload: map[string]any{
				"subreddit": subreddit,
				"ups":       post.Ups,
				"comments":  post.NumComments,
			},
		})
	}
	return items, nil
}
