package textutil

import "strings"

var (
	modelKeywords      = []string{"model", "llm", "gpt", "claude", "gemini", "qwen"}
	openSourceKeywords = []string{"github", "repo", "framework", "sdk", "library", "open source", "开源"}
	paperKeywords      = []string{"paper", "arxiv", "论文"}
	evalKeywords       = []string{"arena", "leaderboard", "benchmark", "eval"}
	releaseKeywords    = []string{"release", "launched", "announce", "new", "上线", "发布"}
	updateKeywords     = []string{"update", "improve", "upgrade", "优化", "更新"}
)

// SummarizeToChinese builds a deterministic one-line Chinese summary from a
// title and body. It is the fallback when no generated summary is available
// and always lands between 34 and 90 characters.
func SummarizeToChinese(text, title string) string {
	displayTitle := CleanDisplayTitle(title)
	extracted := FirstSentences(text, 2)
	if extracted == "" {
		extracted = text
	}
	extracted = compactFactText(extracted)

	haystack := strings.ToLower(displayTitle + " " + extracted)

	subject := "AI 产品"
	switch {
	case containsAny(haystack, modelKeywords):
		subject = "模型"
	case containsAny(haystack, openSourceKeywords):
		subject = "开源项目"
	case containsAny(haystack, paperKeywords):
		subject = "研究成果"
	case containsAny(haystack, evalKeywords):
		subject = "评测动态"
	}

	action := "进展"
	switch {
	case containsAny(haystack, releaseKeywords):
		action = "发布"
	case containsAny(haystack, updateKeywords):
		action = "更新"
	}

	var values []string
	if containsAny(haystack, []string{"agent", "workflow", "automation", "mcp", "tool"}) {
		values = append(values, "面向 Agent/工作流")
	}
	if containsAny(haystack, []string{"code", "coding", "developer", "dev"}) {
		values = append(values, "偏开发者场景")
	}
	if containsAny(haystack, []string{"latency", "cost", "token", "context", "throughput"}) {
		values = append(values, "强调成本与性能")
	}
	if containsAny(haystack, []string{"multimodal", "image", "vision", "video", "audio"}) {
		values = append(values, "支持多模态能力")
	}
	if containsAny(haystack, []string{"reasoning", "safety", "evaluation", "benchmark"}) {
		values = append(values, "关注推理与评测")
	}

	detail := ""
	if extracted != "" {
		detail = "关键信息：" + TruncateRunes(extracted, 34)
		if len([]rune(extracted)) > 34 {
			detail += "…"
		}
	}
	valueText := ""
	if len(values) > 0 {
		if len(values) > 2 {
			values = values[:2]
		}
		valueText = "重点是" + strings.Join(values, "、") + "。"
	}

	return ClampSummary(displayTitle + "：属于" + subject + action + "信息。" + valueText + detail)
}

// ClampSummary normalizes whitespace and forces the summary into the 34 to
// 90 character window the digest layout expects.
func ClampSummary(summary string) string {
	compact := strings.TrimSpace(whitespacePattern.ReplaceAllString(summary, " "))
	if compact == "" {
		return "该条目信息有限，建议直接查看原文获取关键细节。"
	}
	runes := []rune(compact)
	if len(runes) < 34 {
		return compact + " 建议查看原文了解完整上下文。"
	}
	if len(runes) > 88 {
		return string(runes[:86]) + "…"
	}
	return compact
}

type InsightInput struct {
	Title      string
	Summary    string
	SourceName string
	Bucket     string
}

// ExtractInsightTags derives up to three short topical tags for a digest
// entry.
func ExtractInsightTags(input InsightInput) []string {
	haystack := strings.ToLower(compactFactText(input.Title + " " + input.Summary + " " + input.SourceName))

	var tags []string
	add := func(tag string, when bool) {
		if !when {
			return
		}
		for _, existing := range tags {
			if existing == tag {
				return
			}
		}
		tags = append(tags, tag)
	}

	add("模型", containsAny(haystack, modelKeywords))
	add("开源", containsAny(haystack, []string{"github", "repo", "framework", "sdk", "library", "open source"}))
	add("Agent", containsAny(haystack, []string{"agent", "ai agent"}))
	add("工作流", containsAny(haystack, []string{"workflow", "automation", "mcp", "tool"}))
	add("编程", containsAny(haystack, []string{"code", "coding", "developer", "dev"}))
	add("评测", containsAny(haystack, []string{"arena", "leaderboard", "benchmark", "eval", "evaluation"}))
	add("成本/性能", containsAny(haystack, []string{"latency", "cost", "token", "throughput", "context"}))
	add("多模态", containsAny(haystack, []string{"multimodal", "image", "vision", "video", "audio"}))
	add("论文", containsAny(haystack, []string{"paper", "arxiv", "openreview"}))
	add("产品", containsAny(haystack, []string{"product", "launch", "release", "demo", "space"}))

	if input.Bucket == "MEDIA" {
		add("研究者分享", true)
	}
	if len(tags) == 0 {
		tags = append(tags, "AI 热点")
	}
	if len(tags) > 3 {
		tags = tags[:3]
	}
	return tags
}
