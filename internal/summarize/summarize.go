// Package summarize calls an external text-generation API to produce the
// one-line Chinese summary for a normalized item. The call is best-effort:
// any failure yields an empty string and the caller falls back to the
// deterministic summarizer.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/aiscan/internal/textutil"
)

// Request is the material handed to the provider.
type Request struct {
	Title      string
	Content    string
	SourceName string
}

// strategy builds one provider's HTTP request and decodes its response.
type strategy interface {
	buildRequest(ctx context.Context, prompt string) (*http.Request, error)
	parseResponse(body []byte) (string, error)
}

// Client wraps one provider strategy. A nil client or a client without a
// configured provider summarizes nothing.
type Client struct {
	log      zerolog.Logger
	http     *http.Client
	strategy strategy
}

// Options selects and configures the provider.
type Options struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// New returns a client for the configured provider, or nil when the
// provider is unset or unknown.
func New(opts Options, logger zerolog.Logger) *Client {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" || opts.APIKey == "" {
		return nil
	}

	var s strategy
	switch provider {
	case "openai":
		s = &openAIStrategy{apiKey: opts.APIKey, baseURL: opts.BaseURL, model: opts.Model}
	case "gemini":
		s = &geminiStrategy{apiKey: opts.APIKey, baseURL: opts.BaseURL, model: opts.Model}
	default:
		logger.Warn().Str("provider", provider).Msg("unknown summarizer provider, LLM summaries disabled")
		return nil
	}

	return &Client{
		log:      logger.With().Str("component", "summarize").Logger(),
		http:     &http.Client{Timeout: 20 * time.Second},
		strategy: s,
	}
}

// Summarize returns a clamped Chinese summary, or "" when the provider is
// unavailable or misbehaves.
func (c *Client) Summarize(ctx context.Context, req Request) string {
	if c == nil || c.strategy == nil {
		return ""
	}

	prompt := buildPrompt(req)
	httpReq, err := c.strategy.buildRequest(ctx, prompt)
	if err != nil {
		c.log.Warn().Err(err).Msg("build summarizer request failed")
		return ""
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Warn().Err(err).Msg("summarizer call failed")
		return ""
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.log.Warn().Err(err).Msg("read summarizer response failed")
		return ""
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Msg("summarizer returned non-200")
		return ""
	}

	text, err := c.strategy.parseResponse(body)
	if err != nil {
		c.log.Warn().Err(err).Msg("parse summarizer response failed")
		return ""
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return textutil.ClampSummary(text)
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("用一句 34 到 88 个字的中文概括下面的 AI 资讯条目，直接给出结论，不要客套语。\n")
	b.WriteString("标题：")
	b.WriteString(req.Title)
	b.WriteString("\n")
	if req.SourceName != "" {
		b.WriteString("来源：")
		b.WriteString(req.SourceName)
		b.WriteString("\n")
	}
	b.WriteString("内容：")
	b.WriteString(textutil.TruncateRunes(req.Content, 1200))
	return b.String()
}

type openAIStrategy struct {
	apiKey  string
	baseURL string
	model   string
}

func (s *openAIStrategy) buildRequest(ctx context.Context, prompt string) (*http.Request, error) {
	base := strings.TrimRight(s.baseURL, "/")
	if base == "" {
		base = "https://api.openai.com"
	}
	model := s.model
	if model == "" {
		model = "gpt-4o-mini"
	}

	payload := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.2,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return req, nil
}

func (s *openAIStrategy) parseResponse(body []byte) (string, error) {
	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

type geminiStrategy struct {
	apiKey  string
	baseURL string
	model   string
}

func (s *geminiStrategy) buildRequest(ctx context.Context, prompt string) (*http.Request, error) {
	base := strings.TrimRight(s.baseURL, "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	model := s.model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", base, model, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *geminiStrategy) parseResponse(body []byte) (string, error) {
	var decoded struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generate response has no candidates")
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}
