package pipeline

import (
	"sort"
	"strconv"

	"horse.fit/aiscan/internal/db"
	"horse.fit/aiscan/internal/textutil"
)

// FillLowConfidence tops a short digest up to the target size. It rescans
// the full candidate list per category and admits unused items as
// low-confidence fillers, honoring only the media cap. The combined list is
// re-sorted by category priority then prior rank, and ranks reassigned
// densely.
func FillLowConfidence(ranked []RankedCandidate, candidates []db.CandidateRecord, mediaMax int) []RankedCandidate {
	if len(ranked) >= TargetSize {
		return ranked
	}

	used := make(map[int64]struct{}, len(ranked))
	for _, item := range ranked {
		used[item.NormalizedItemID] = struct{}{}
	}

	filled := make([]RankedCandidate, len(ranked))
	copy(filled, ranked)

	mediaCount := 0
	for _, item := range filled {
		if item.Bucket == "MEDIA" {
			mediaCount++
		}
	}

	categoryByID := make(map[int64]string, len(candidates))
	for _, candidate := range candidates {
		categoryByID[candidate.NormalizedItemID] = ResolveTrendCategory(candidate.SourceSlug, candidate.Provider, candidate.Bucket)
	}

	categoryCount := make(map[string]int)
	for _, item := range filled {
		categoryCount[categoryByID[item.NormalizedItemID]]++
	}

	for _, category := range CategoryOrder {
		needed := TargetPerCategory - categoryCount[category]
		if needed <= 0 {
			continue
		}

		for _, candidate := range candidates {
			if needed <= 0 || len(filled) >= TargetSize {
				break
			}
			if _, taken := used[candidate.NormalizedItemID]; taken {
				continue
			}
			if categoryByID[candidate.NormalizedItemID] != category {
				continue
			}
			if candidate.Bucket == "MEDIA" {
				if mediaCount >= mediaMax {
					continue
				}
				mediaCount++
			}

			practicalScore := 0.65
			if candidate.Bucket == "MEDIA" {
				practicalScore = 0.45
			}

			used[candidate.NormalizedItemID] = struct{}{}
			categoryCount[category]++
			filled = append(filled, RankedCandidate{
				Rank:             len(filled) + 1,
				NormalizedItemID: candidate.NormalizedItemID,
				ClusterKey:       textutil.FallbackClusterKey(strconv.FormatInt(candidate.NormalizedItemID, 10)),
				Score:            0.05,
				BaseScore:        0.05,
				Bucket:           candidate.Bucket,
				PracticalScore:   practicalScore,
				StreakDays:       1,
				RepeatDecay:      1,
				CrossSourceConfirm: 0,
				SourceCount:      1,
				ConfidenceLabel:  "low",
				SourceSlug:       candidate.SourceSlug,
				CanonicalURL:     candidate.CanonicalURL,
				Title:            candidate.DisplayTitle,
				TrendCategory:    category,
			})
			needed--
		}
	}

	priority := make(map[string]int, len(CategoryOrder))
	for i, category := range CategoryOrder {
		priority[category] = i
	}
	categoryPriority := func(item RankedCandidate) int {
		category, ok := categoryByID[item.NormalizedItemID]
		if !ok {
			return 999
		}
		p, ok := priority[category]
		if !ok {
			return 999
		}
		return p
	}

	sort.SliceStable(filled, func(i, j int) bool {
		pi, pj := categoryPriority(filled[i]), categoryPriority(filled[j])
		if pi != pj {
			return pi < pj
		}
		return filled[i].Rank < filled[j].Rank
	})

	for i := range filled {
		filled[i].Rank = i + 1
	}
	return filled
}
