// Package textutil holds the deterministic text primitives shared by the
// ingestion and curation pipeline: hashing, URL canonicalization, HTML
// stripping, tokenization and lexical similarity.
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// trackingQueryKeys are query parameters removed during URL
// canonicalization so that share links collapse onto one key.
var trackingQueryKeys = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"ref":          {},
	"source":       {},
}

var (
	tagPattern            = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern     = regexp.MustCompile(`\s+`)
	leadingBracketPattern = regexp.MustCompile(`^\[[^\]]+\]\s*`)
	snapshotPrefixPattern = regexp.MustCompile(`(?i)^snapshot[:\s-]*`)
	bareVersionPattern    = regexp.MustCompile(`(?i)^v?\d+\.\d+(?:\.\d+){0,2}$`)
	urlPattern            = regexp.MustCompile(`(?i)https?://\S+`)
	topicsParamPattern    = regexp.MustCompile(`(?i)\btopics?=[^\s]+`)
	contextParamPattern   = regexp.MustCompile(`(?i)\bcontext=[^\s]+`)
)

// StableHash returns the hex-encoded sha256 of value.
func StableHash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// ClusterKey derives the dedup key for a canonical URL and title hash pair.
func ClusterKey(canonicalURL, titleHash string) string {
	return StableHash(canonicalURL + "|" + titleHash)[:24]
}

// FallbackClusterKey derives a synthetic key for filler entries that never
// went through clustering.
func FallbackClusterKey(itemID string) string {
	return "fallback-" + StableHash(itemID)[:12]
}

// CanonicalizeURL drops the fragment and tracking query parameters. Inputs
// that fail to parse are returned trimmed.
func CanonicalizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimSpace(raw)
	}
	parsed.Fragment = ""
	query := parsed.Query()
	for key := range trackingQueryKeys {
		query.Del(key)
	}
	if len(query) == 0 {
		parsed.RawQuery = ""
	} else {
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

// StripHTML removes markup tags and collapses whitespace.
func StripHTML(input string) string {
	if input == "" {
		return ""
	}
	out := tagPattern.ReplaceAllString(input, " ")
	out = strings.ReplaceAll(out, "&nbsp;", " ")
	out = whitespacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// FirstSentences returns up to count sentences of the cleaned text,
// splitting after CJK and latin sentence terminators.
func FirstSentences(text string, count int) string {
	clean := StripHTML(text)
	if clean == "" {
		return ""
	}
	var sentences []string
	var current strings.Builder
	runes := []rune(clean)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if isSentenceTerminator(runes[i]) && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			sentence := strings.TrimSpace(current.String())
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
			}
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		sentences = append(sentences, tail)
	}
	if len(sentences) > count {
		sentences = sentences[:count]
	}
	return strings.Join(sentences, " ")
}

func isSentenceTerminator(r rune) bool {
	switch r {
	case '。', '！', '？', '.', '!', '?':
		return true
	}
	return false
}

// CleanDisplayTitle normalizes a raw title for display: markup and leading
// feed tags are removed, whitespace collapsed, and bare version strings are
// rewritten into a readable form.
func CleanDisplayTitle(title string) string {
	cleaned := StripHTML(title)
	cleaned = leadingBracketPattern.ReplaceAllString(cleaned, "")
	cleaned = snapshotPrefixPattern.ReplaceAllString(cleaned, "")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return "未命名条目"
	}
	if bareVersionPattern.MatchString(cleaned) {
		return "版本更新 " + cleaned
	}
	return cleaned
}

// Tokenize lowercases the cleaned text, keeps letter and digit runs, drops
// single-rune tokens and caps the result at 200 tokens.
func Tokenize(text string) []string {
	clean := strings.ToLower(StripHTML(text))
	fields := strings.FieldsFunc(clean, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, token := range fields {
		if len([]rune(token)) <= 1 {
			continue
		}
		tokens = append(tokens, token)
		if len(tokens) == 200 {
			break
		}
	}
	return tokens
}

// Similarity computes the Jaccard overlap of the token sets of both texts.
// Either side tokenizing to nothing yields 0.
func Similarity(left, right string) float64 {
	leftSet := tokenSet(Tokenize(left))
	rightSet := tokenSet(Tokenize(right))
	if len(leftSet) == 0 || len(rightSet) == 0 {
		return 0
	}
	intersection := 0
	for token := range leftSet {
		if _, ok := rightSet[token]; ok {
			intersection++
		}
	}
	union := len(leftSet) + len(rightSet) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// compactFactText strips markup, links and tracking-style key=value noise
// before a snippet is reused in summaries or tags.
func compactFactText(text string) string {
	out := StripHTML(text)
	out = urlPattern.ReplaceAllString(out, " ")
	out = topicsParamPattern.ReplaceAllString(out, " ")
	out = contextParamPattern.ReplaceAllString(out, " ")
	out = whitespacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// TruncateRunes cuts text to at most limit runes.
func TruncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
