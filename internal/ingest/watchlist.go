package ingest

import "strings"

// WatchAuthor is one tracked account on a social watchlist.
type WatchAuthor struct {
	Handle      string
	DisplayName string
	Reputation  float64
	DomainTags  []string
	Active      bool
}

// Watchlist groups the accounts a social source follows.
type Watchlist struct {
	ID      string
	Name    string
	Authors []WatchAuthor
}

// aiTopicKeywords gates social posts to AI-relevant content. Chinese terms
// cover the bilingual researcher accounts on the default list.
var aiTopicKeywords = []string{
	"llm",
	"language model",
	"agent",
	"inference",
	"training",
	"evaluation",
	"rag",
	"fine-tuning",
	"multimodal",
	"alignment",
	"safety",
	"benchmark",
	"transformer",
	"gpu",
	"reasoning",
	"diffusion",
	"token",
	"model release",
	"open weights",
	"开源模型",
	"推理",
	"训练",
	"多模态",
	"评测",
	"对齐",
	"智能体",
}

const defaultWatchlistID = "ai-researchers-global"

var watchlists = map[string]Watchlist{
	defaultWatchlistID: {
		ID:   defaultWatchlistID,
		Name: "AI Researchers Global",
		Authors: []WatchAuthor{
			{Handle: "karpathy", DisplayName: "Andrej Karpathy", Reputation: 0.97, DomainTags: []string{"llm", "infra"}, Active: true},
			{Handle: "lilianweng", DisplayName: "Lilian Weng", Reputation: 0.95, DomainTags: []string{"agent", "safety"}, Active: true},
			{Handle: "ylecun", DisplayName: "Yann LeCun", Reputation: 0.93, DomainTags: []string{"research", "vision"}, Active: true},
			{Handle: "simonw", DisplayName: "Simon Willison", Reputation: 0.91, DomainTags: []string{"agent", "tools"}, Active: true},
			{Handle: "chipro", DisplayName: "Chip Huyen", Reputation: 0.9, DomainTags: []string{"infra", "evaluation"}, Active: true},
			{Handle: "jerryjliu0", DisplayName: "Jerry Liu", Reputation: 0.88, DomainTags: []string{"rag", "agent"}, Active: true},
			{Handle: "perplexity_ai", DisplayName: "Perplexity Team", Reputation: 0.84, DomainTags: []string{"product", "search"}, Active: true},
			{Handle: "huggingface", DisplayName: "Hugging Face", Reputation: 0.87, DomainTags: []string{"open-source", "models"}, Active: true},
			{Handle: "OpenAIDevs", DisplayName: "OpenAI Developers", Reputation: 0.9, DomainTags: []string{"api", "sdk"}, Active: true},
			{Handle: "aisafetymemes", DisplayName: "AI Safety Updates", Reputation: 0.75, DomainTags: []string{"safety", "governance"}, Active: true},
		},
	},
}

// watchlistByID resolves a watchlist, falling back to the default list for
// unknown or empty identifiers.
func watchlistByID(id string) Watchlist {
	if list, ok := watchlists[strings.TrimSpace(id)]; ok {
		return list
	}
	return watchlists[defaultWatchlistID]
}

func (w Watchlist) activeAuthors() []WatchAuthor {
	out := make([]WatchAuthor, 0, len(w.Authors))
	for _, author := range w.Authors {
		if author.Active {
			out = append(out, author)
		}
	}
	return out
}
