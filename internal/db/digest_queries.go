package db

import (
	"context"
	"fmt"
	"time"
)

// DigestItemInsert describes one ranked digest entry. Every entry gets its
// own event cluster row keyed by its cluster key, fallback fillers
// included.
type DigestItemInsert struct {
	NormalizedItemID   int64
	Category           string
	Rank               int
	Score              float64
	BaseScore          float64
	PracticalScore     float64
	Confidence         string
	StreakDays         int
	RepeatDecay        float64
	CrossSourceConfirm float64
	SourceCount        int
	ClusterKey         string
	IsRecurringHot     bool
}

// ReplaceDigest atomically swaps the digest for one date: the date's
// existing items and clusters are removed and the new set inserted in a
// single transaction.
func (p *Pool) ReplaceDigest(ctx context.Context, date time.Time, items []DigestItemInsert) error {
	day := date.UTC().Truncate(24 * time.Hour)

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return fmt.Errorf("begin digest transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM aiscan.digest_items WHERE digest_date = $1`, day); err != nil {
		return fmt.Errorf("delete digest items for %s: %w", day.Format("2006-01-02"), err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM aiscan.event_clusters WHERE digest_date = $1`, day); err != nil {
		return fmt.Errorf("delete event clusters for %s: %w", day.Format("2006-01-02"), err)
	}

	const insertCluster = `
INSERT INTO aiscan.event_clusters
	(digest_date, cluster_key, representative_item_id, source_count, confidence)
VALUES ($1, $2, $3, $4, $5)
RETURNING cluster_id`

	const insertItem = `
INSERT INTO aiscan.digest_items
	(digest_date, cluster_id, normalized_item_id, category, rank, score, base_score,
	 practical_score, confidence, streak_days, repeat_decay, cross_source_confirm,
	 source_count, cluster_key, is_recurring_hot)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	for _, item := range items {
		var clusterID int64
		err := tx.QueryRow(ctx, insertCluster,
			day, item.ClusterKey, item.NormalizedItemID,
			item.SourceCount, item.Confidence).Scan(&clusterID)
		if err != nil {
			return fmt.Errorf("insert cluster %s: %w", item.ClusterKey, err)
		}

		_, err = tx.Exec(ctx, insertItem,
			day, clusterID, item.NormalizedItemID, item.Category, item.Rank, item.Score,
			item.BaseScore, item.PracticalScore, item.Confidence, item.StreakDays,
			item.RepeatDecay, item.CrossSourceConfirm, item.SourceCount, item.ClusterKey,
			item.IsRecurringHot)
		if err != nil {
			return fmt.Errorf("insert digest item rank %d in %s: %w", item.Rank, item.Category, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit digest transaction: %w", err)
	}
	return nil
}

// PriorStreak is a cluster key's most recent streak inside the repeat
// window.
type PriorStreak struct {
	ClusterKey string
	StreakDays int
}

// ListPriorStreaks returns, for each cluster key seen in digests inside
// [since, before), the streak from its most recent appearance.
func (p *Pool) ListPriorStreaks(ctx context.Context, since, before time.Time) (map[string]int, error) {
	const q = `
SELECT cluster_key, streak_days
FROM aiscan.digest_items
WHERE digest_date >= $1
  AND digest_date < $2
ORDER BY digest_date DESC`

	rows, err := p.Query(ctx, q, since.UTC().Truncate(24*time.Hour), before.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list prior streaks: %w", err)
	}
	defer rows.Close()

	streaks := make(map[string]int)
	for rows.Next() {
		var rec PriorStreak
		if err := rows.Scan(&rec.ClusterKey, &rec.StreakDays); err != nil {
			return nil, fmt.Errorf("scan streak row: %w", err)
		}
		if _, seen := streaks[rec.ClusterKey]; !seen {
			streaks[rec.ClusterKey] = rec.StreakDays
		}
	}
	return streaks, rows.Err()
}

// DigestEntry is the published read model served by the API and CLI.
type DigestEntry struct {
	DigestDate         time.Time  `json:"digest_date"`
	Category           string     `json:"category"`
	Rank               int        `json:"rank"`
	Score              float64    `json:"score"`
	BaseScore          float64    `json:"base_score"`
	PracticalScore     float64    `json:"practical_score"`
	Confidence         string     `json:"confidence"`
	StreakDays         int        `json:"streak_days"`
	RepeatDecay        float64    `json:"repeat_decay"`
	CrossSourceConfirm float64    `json:"cross_source_confirm"`
	SourceCount        int        `json:"source_count"`
	ClusterKey         string     `json:"cluster_key"`
	IsRecurringHot     bool       `json:"is_recurring_hot"`
	Title              string     `json:"title"`
	URL                string     `json:"url"`
	Summary            string     `json:"summary"`
	InsightTags        []byte     `json:"insight_tags,omitempty"`
	PublishedAt        *time.Time `json:"published_at,omitempty"`
	SourceSlug         string     `json:"source_slug"`
	SourceName         string     `json:"source_name"`
	Bucket             string     `json:"bucket"`
}

// GetDigestByDate returns the published digest for one date in category
// priority and rank order.
func (p *Pool) GetDigestByDate(ctx context.Context, date time.Time) ([]DigestEntry, error) {
	const q = `
SELECT
	d.digest_date,
	d.category,
	d.rank,
	d.score,
	d.base_score,
	d.practical_score,
	d.confidence,
	d.streak_days,
	d.repeat_decay,
	d.cross_source_confirm,
	d.source_count,
	d.cluster_key,
	d.is_recurring_hot,
	n.display_title,
	n.canonical_url,
	n.summary,
	n.insight_tags,
	n.published_at,
	s.slug,
	s.name,
	s.bucket
FROM aiscan.digest_items d
JOIN aiscan.normalized_items n ON n.normalized_item_id = d.normalized_item_id
JOIN aiscan.sources s ON s.source_id = n.source_id
WHERE d.digest_date = $1
ORDER BY
	CASE d.category
		WHEN 'PRODUCT_HUNT_AI' THEN 0
		WHEN 'HUGGINGFACE_TRENDING' THEN 1
		WHEN 'REDDIT_DEV' THEN 2
		WHEN 'X_TWITTER_AI' THEN 3
		ELSE 4
	END,
	d.rank`

	rows, err := p.Query(ctx, q, date.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("get digest by date: %w", err)
	}
	defer rows.Close()

	var out []DigestEntry
	for rows.Next() {
		var rec DigestEntry
		if err := rows.Scan(
			&rec.DigestDate, &rec.Category, &rec.Rank, &rec.Score, &rec.BaseScore,
			&rec.PracticalScore, &rec.Confidence, &rec.StreakDays, &rec.RepeatDecay,
			&rec.CrossSourceConfirm, &rec.SourceCount, &rec.ClusterKey, &rec.IsRecurringHot,
			&rec.Title, &rec.URL, &rec.Summary, &rec.InsightTags, &rec.PublishedAt,
			&rec.SourceSlug, &rec.SourceName, &rec.Bucket,
		); err != nil {
			return nil, fmt.Errorf("scan digest row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LatestDigestDate returns the most recent date with published digest
// items, or ErrNoRows when none exist.
func (p *Pool) LatestDigestDate(ctx context.Context) (time.Time, error) {
	const q = `SELECT MAX(digest_date) FROM aiscan.digest_items`
	var date *time.Time
	if err := p.QueryRow(ctx, q).Scan(&date); err != nil {
		return time.Time{}, fmt.Errorf("latest digest date: %w", err)
	}
	if date == nil {
		return time.Time{}, ErrNoRows
	}
	return *date, nil
}
