// Package pipeline implements the daily curation flow: clustering of
// normalized items into event clusters, bucket-aware scoring with repeat
// decay, quota-constrained digest selection and the fallback fill.
package pipeline

import (
	"sort"

	"horse.fit/aiscan/internal/db"
	"horse.fit/aiscan/internal/textutil"
)

// SimilarityThreshold is the snippet Jaccard overlap at which two items are
// treated as reports of the same event.
const SimilarityThreshold = 0.88

// Cluster is one near-duplicate group. Key is fixed at creation from the
// founding item; the representative may later be replaced by a more
// practical member.
type Cluster struct {
	Key            string
	Representative db.CandidateRecord
	Items          []db.CandidateRecord
}

// SourceCount counts distinct sources contributing to the cluster.
func (c *Cluster) SourceCount() int {
	seen := make(map[int64]struct{}, len(c.Items))
	for _, item := range c.Items {
		seen[item.SourceID] = struct{}{}
	}
	return len(seen)
}

// ConfidenceLabel grades the cluster on representative reliability, primary
// sourcing and corroboration.
func (c *Cluster) ConfidenceLabel() string {
	rep := c.Representative
	if rep.Reliability == "HIGH" && rep.HasPrimarySource && c.SourceCount() >= 2 {
		return "high"
	}
	if rep.Reliability != "LOW" && rep.HasPrimarySource {
		return "medium"
	}
	return "low"
}

// SortByPublishedDesc orders candidates newest published first. Items
// without a publish time sort last. The order matters: clustering compares
// each item against representatives in this order.
func SortByPublishedDesc(items []db.CandidateRecord) []db.CandidateRecord {
	sorted := make([]db.CandidateRecord, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return publishedUnixMilli(sorted[i]) > publishedUnixMilli(sorted[j])
	})
	return sorted
}

func publishedUnixMilli(item db.CandidateRecord) int64 {
	if item.PublishedAt == nil {
		return 0
	}
	return item.PublishedAt.UnixMilli()
}

// BuildClusters groups items by scanning existing clusters in creation
// order and joining the first whose representative shares a canonical URL,
// a title hash, or a snippet similarity at or above the threshold. Each
// item is compared against representatives only, never other members, so
// the arrival order of items decides borderline assignments.
func BuildClusters(items []db.CandidateRecord) []*Cluster {
	var clusters []*Cluster

	for _, item := range items {
		var matched *Cluster
		for _, cluster := range clusters {
			rep := cluster.Representative
			if rep.CanonicalURL == item.CanonicalURL || rep.TitleHash == item.TitleHash {
				matched = cluster
				break
			}
			if textutil.Similarity(rep.ContentSnippet, item.ContentSnippet) >= SimilarityThreshold {
				matched = cluster
				break
			}
		}

		if matched != nil {
			matched.Items = append(matched.Items, item)
			if item.PracticalScore >= matched.Representative.PracticalScore {
				matched.Representative = item
			}
			continue
		}

		clusters = append(clusters, &Cluster{
			Key:            textutil.ClusterKey(item.CanonicalURL, item.TitleHash),
			Representative: item,
			Items:          []db.CandidateRecord{item},
		})
	}

	return clusters
}
