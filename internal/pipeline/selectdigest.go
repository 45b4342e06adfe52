package pipeline

import (
	"math"
	"sort"
	"strings"
)

func sortByScoreDesc(candidates []RankedCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}

// quotaState tracks the running caps during selection. Cap counters are
// charged inside the admission checks, before the category append, which
// mirrors the accounting order the scoring contract fixes.
type quotaState struct {
	cfg                  RankConfig
	selectedByCategory   map[string][]RankedCandidate
	authorCount          map[string]int
	practicalSourceCount map[string]int
	practicalByCategory  map[string]int
	noiseByProject       map[string]map[string]int
	versionNoiseCount    int
	mediaCount           int
}

func newQuotaState(cfg RankConfig) *quotaState {
	return &quotaState{
		cfg:                  cfg,
		selectedByCategory:   make(map[string][]RankedCandidate),
		authorCount:          make(map[string]int),
		practicalSourceCount: make(map[string]int),
		practicalByCategory:  make(map[string]int),
		noiseByProject:       make(map[string]map[string]int),
	}
}

func (s *quotaState) canSelectPractical(item RankedCandidate) bool {
	if s.practicalSourceCount[item.SourceSlug] >= PracticalSourceCap {
		return false
	}

	if item.IsVersionNoise {
		if s.versionNoiseCount >= VersionNoiseCap {
			return false
		}
		if item.ProjectKey != "" && s.noiseByProject[item.TrendCategory][item.ProjectKey] >= 1 {
			return false
		}
	}

	s.practicalSourceCount[item.SourceSlug]++

	if item.IsVersionNoise {
		s.versionNoiseCount++
		if item.ProjectKey != "" {
			perProject := s.noiseByProject[item.TrendCategory]
			if perProject == nil {
				perProject = make(map[string]int)
				s.noiseByProject[item.TrendCategory] = perProject
			}
			perProject[item.ProjectKey]++
		}
	}

	return true
}

func (s *quotaState) canSelectMedia(item RankedCandidate) bool {
	if s.mediaCount >= s.cfg.MediaMax {
		return false
	}
	if item.AuthorHandle != nil {
		handle := strings.ToLower(*item.AuthorHandle)
		if handle != "" {
			if s.authorCount[handle] >= 2 {
				return false
			}
			s.authorCount[handle]++
		}
	}
	return true
}

func (s *quotaState) markSelected(item RankedCandidate) bool {
	bucket := s.selectedByCategory[item.TrendCategory]
	if len(bucket) >= TargetPerCategory {
		return false
	}
	s.selectedByCategory[item.TrendCategory] = append(bucket, item)
	if item.Bucket == "PRACTICAL" {
		s.practicalByCategory[item.TrendCategory]++
	}
	return true
}

// SelectWithQuotas fills the four category blocks from score-sorted
// candidates. The first pass keeps each category's PRACTICAL share at the
// configured target; the second pass relaxes only that quota to top up
// short categories. Entries come back in category order, each block score
// sorted, with dense ranks from 1.
func SelectWithQuotas(ranked []RankedCandidate, cfg RankConfig) []RankedCandidate {
	state := newQuotaState(cfg)
	used := make(map[int64]struct{})

	practicalTarget := int(math.Round(TargetPerCategory * cfg.PracticalTargetRatio))
	if practicalTarget < 0 {
		practicalTarget = 0
	}
	if practicalTarget > TargetPerCategory {
		practicalTarget = TargetPerCategory
	}

	runPass := func(enforcePracticalTarget bool) {
		for _, category := range CategoryOrder {
			for _, item := range ranked {
				if _, taken := used[item.NormalizedItemID]; taken || item.TrendCategory != category {
					continue
				}
				if len(state.selectedByCategory[category]) >= TargetPerCategory {
					break
				}

				if item.Bucket == "PRACTICAL" {
					if enforcePracticalTarget && state.practicalByCategory[category] >= practicalTarget {
						continue
					}
					if !state.canSelectPractical(item) {
						continue
					}
				} else if !state.canSelectMedia(item) {
					continue
				}

				if state.markSelected(item) {
					used[item.NormalizedItemID] = struct{}{}
					if item.Bucket == "MEDIA" {
						state.mediaCount++
					}
				}
			}
		}
	}

	runPass(true)
	runPass(false)

	var ordered []RankedCandidate
	for _, category := range CategoryOrder {
		block := state.selectedByCategory[category]
		sortByScoreDesc(block)
		if len(block) > TargetPerCategory {
			block = block[:TargetPerCategory]
		}
		ordered = append(ordered, block...)
	}

	if len(ordered) > TargetSize {
		ordered = ordered[:TargetSize]
	}
	for i := range ordered {
		ordered[i].Rank = i + 1
	}
	return ordered
}
