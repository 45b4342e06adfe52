package textutil

import (
	"strings"
	"testing"
)

func TestSummarizeToChineseLengthWindow(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title string
		text  string
	}{
		{"GPT-5 mini released", "OpenAI announced a new model with lower latency and cost. Developers can switch today."},
		{"v1.2.0", ""},
		{"Tiny", "short note"},
		{"Agent framework update", strings.Repeat("Long body about workflow automation tools. ", 30)},
	}

	for _, tc := range cases {
		got := SummarizeToChinese(tc.text, tc.title)
		runes := []rune(got)
		if len(runes) < 34 || len(runes) > 90 {
			t.Fatalf("summary length %d outside window for title %q: %q", len(runes), tc.title, got)
		}
	}
}

func TestSummarizeToChineseEmptyInput(t *testing.T) {
	t.Parallel()

	// Fully empty input lands one rune under the usual window: the untitled
	// fallback plus filler totals 33 runes. Pinned so the edge stays stable.
	got := SummarizeToChinese("", "")
	want := "未命名条目：属于AI 产品进展信息。 建议查看原文了解完整上下文。"
	if got != want {
		t.Fatalf("empty input summary = %q, want %q", got, want)
	}
	if runes := []rune(got); len(runes) != 33 {
		t.Fatalf("empty input summary length = %d, want 33", len([]rune(got)))
	}
}

func TestSummarizeToChineseClassification(t *testing.T) {
	t.Parallel()

	got := SummarizeToChinese("The new LLM was released with multimodal vision support.", "Claude update")
	if !strings.Contains(got, "模型") {
		t.Fatalf("model keywords should classify as 模型: %q", got)
	}
	if !strings.Contains(got, "发布") {
		t.Fatalf("release keywords should classify as 发布: %q", got)
	}
}

func TestClampSummary(t *testing.T) {
	t.Parallel()

	if got := ClampSummary("   "); got != "该条目信息有限，建议直接查看原文获取关键细节。" {
		t.Fatalf("blank summary should use placeholder, got %q", got)
	}

	short := ClampSummary("太短")
	if !strings.HasSuffix(short, "建议查看原文了解完整上下文。") {
		t.Fatalf("short summary should gain filler suffix: %q", short)
	}

	long := ClampSummary(strings.Repeat("长", 120))
	if runes := []rune(long); len(runes) != 87 || runes[86] != '…' {
		t.Fatalf("long summary should truncate to 87 runes ending in ellipsis, got %d", len([]rune(long)))
	}
}

func TestExtractInsightTags(t *testing.T) {
	t.Parallel()

	tags := ExtractInsightTags(InsightInput{
		Title:   "New agent workflow SDK for developers",
		Summary: "benchmark results included",
	})
	if len(tags) == 0 || len(tags) > 3 {
		t.Fatalf("expected 1 to 3 tags, got %v", tags)
	}

	fallback := ExtractInsightTags(InsightInput{Title: "某个完全无关的条目"})
	if len(fallback) != 1 || fallback[0] != "AI 热点" {
		t.Fatalf("expected fallback tag, got %v", fallback)
	}

	media := ExtractInsightTags(InsightInput{Title: "observations", Bucket: "MEDIA"})
	found := false
	for _, tag := range media {
		if tag == "研究者分享" {
			found = true
		}
	}
	if !found {
		t.Fatalf("media bucket should carry 研究者分享, got %v", media)
	}
}
