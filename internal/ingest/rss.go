package ingest

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"horse.fit/aiscan/internal/db"
	sourceschema "horse.fit/aiscan/schema"
)

const (
	defaultFeedLimit = 40

	productHuntSlug = "product-hunt-ai"
	productHuntURL  = "https://www.producthunt.com"
)

var (
	bareURLPattern      = regexp.MustCompile(`(?i)https?://\S+`)
	feedBoilerplate     = regexp.MustCompile(`(?i)\b(discussion|link)\b`)
	feedSpacePattern    = regexp.MustCompile(`\s+`)
	untitledFeedEntry   = "Untitled"
	productHuntLanguage = "en"
)

// fetchRSSItems pulls a feed through gofeed and maps entries into items.
// The Product Hunt feed gets dedicated field mapping because its Atom
// entries carry launch copy in HTML and no usable author.
func (f *fetcher) fetchRSSItems(ctx context.Context, source db.SourceRecord, cfg *sourceschema.SourceConfig) ([]Item, error) {
	if source.FeedURL == nil || strings.TrimSpace(*source.FeedURL) == "" {
		return nil, nil
	}
	feedURL := strings.TrimSpace(*source.FeedURL)

	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = f.http

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	var items []Item
	if source.Slug == productHuntSlug {
		items = mapProductHuntEntries(feed)
	} else {
		items = mapFeedEntries(source, feed)
	}

	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		if !keywordMatched(item.Title+" "+item.Content, cfg.Keywords) {
			continue
		}
		filtered = append(filtered, item)
		if len(filtered) >= limit {
			break
		}
	}
	return filtered, nil
}

func mapFeedEntries(source db.SourceRecord, feed *gofeed.Feed) []Item {
	items := make([]Item, 0, len(feed.Items))
	for i, entry := range feed.Items {
		contentRaw := entry.Description
		if contentRaw == "" {
			contentRaw = entry.Content
		}

		title := stripFeedHTML(entry.Title)
		if title == "" {
			title = untitledFeedEntry
		}

		externalID := entry.GUID
		if externalID == "" {
			externalID = fmt.Sprintf("%s-%d", source.Slug, i)
		}

		link := entry.Link
		if link == "" {
			link = source.URL
		}

		items = append(items, Item{
			ExternalID:  externalID,
			Title:       title,
			URL:         link,
			PublishedAt: entry.PublishedParsed,
			Content:     stripFeedHTML(contentRaw),
			Author:      feedEntryAuthor(entry),
			Language:    feed.Language,
			Payload: map[string]any{
				"categories": entry.Categories,
			},
		})
	}
	return items
}

func mapProductHuntEntries(feed *gofeed.Feed) []Item {
	items := make([]Item, 0, len(feed.Items))
	for i, entry := range feed.Items {
		title := stripFeedHTML(entry.Title)
		if title == "" {
			title = untitledFeedEntry
		}

		externalID := stripFeedHTML(entry.GUID)
		if externalID == "" {
			externalID = fmt.Sprintf("product-hunt-%d", i)
		}

		link := entry.Link
		if link == "" {
			link = productHuntURL
		}

		content := entry.Content
		if content == "" {
			content = entry.Description
		}

		items = append(items, Item{
			ExternalID:  externalID,
			Title:       title,
			URL:         link,
			PublishedAt: entry.PublishedParsed,
			Content:     stripFeedHTML(content),
			Author:      "Product Hunt",
			Language:    productHuntLanguage,
		})
	}
	return items
}

func feedEntryAuthor(entry *gofeed.Item) string {
	if entry.Author != nil && strings.TrimSpace(entry.Author.Name) != "" {
		return strings.TrimSpace(entry.Author.Name)
	}
	for _, author := range entry.Authors {
		if author != nil && strings.TrimSpace(author.Name) != "" {
			return strings.TrimSpace(author.Name)
		}
	}
	return ""
}

// stripFeedHTML reduces feed markup to plain text: tags and entities go
// through goquery, then bare URLs and comment-thread boilerplate words are
// dropped.
func stripFeedHTML(input string) string {
	text := input
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(input)); err == nil {
		doc.Find("script, style").Remove()
		text = doc.Text()
	}

	text = bareURLPattern.ReplaceAllString(text, " ")
	text = feedBoilerplate.ReplaceAllString(text, " ")
	text = feedSpacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func keywordMatched(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	normalized := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(normalized, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
