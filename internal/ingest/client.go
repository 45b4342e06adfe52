package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	userAgent    = "AIScanBot/0.1"
	fetchTimeout = 12 * time.Second

	maxResponseBytes = 8 * 1024 * 1024

	defaultRedditBaseURL      = "https://old.reddit.com"
	defaultHuggingFaceBaseURL = "https://huggingface.co"
	defaultProfileMirrorURL   = "https://r.jina.ai"
)

// SocialCredentials configures one social aggregator provider.
type SocialCredentials struct {
	BaseURL string
	APIKey  string
}

// fetcher bundles the HTTP client and endpoint bases shared by all source
// adapters. Base URLs are overridable for tests.
type fetcher struct {
	http               *http.Client
	redditBaseURL      string
	huggingFaceBaseURL string
	profileMirrorURL   string
	socialA            SocialCredentials
	socialB            SocialCredentials
}

func newFetcher(opts Options) *fetcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}

	return &fetcher{
		http:               client,
		redditBaseURL:      baseOrDefault(opts.RedditBaseURL, defaultRedditBaseURL),
		huggingFaceBaseURL: baseOrDefault(opts.HuggingFaceBaseURL, defaultHuggingFaceBaseURL),
		profileMirrorURL:   baseOrDefault(opts.ProfileMirrorBaseURL, defaultProfileMirrorURL),
		socialA:            opts.SocialA,
		socialB:            opts.SocialB,
	}
}

func baseOrDefault(raw, fallback string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

func (f *fetcher) getJSON(ctx context.Context, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch %s: status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s: %w", endpoint, err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func (f *fetcher) getText(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", endpoint, err)
	}
	return string(body), nil
}
