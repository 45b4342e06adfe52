package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"horse.fit/aiscan/internal/globaltime"
)

// SourceRecord is the read model handed to ingestion and the API.
type SourceRecord struct {
	SourceID      int64           `json:"source_id"`
	SourceUUID    string          `json:"source_uuid"`
	Slug          string          `json:"slug"`
	Name          string          `json:"name"`
	URL           string          `json:"url"`
	FeedURL       *string         `json:"feed_url,omitempty"`
	Provider      string          `json:"provider"`
	Bucket        string          `json:"bucket"`
	Reliability   string          `json:"reliability"`
	Weight        float64         `json:"weight"`
	Enabled       bool            `json:"enabled"`
	Config        json.RawMessage `json:"config,omitempty"`
	HealthStatus  string          `json:"health_status"`
	FailureStreak int             `json:"failure_streak"`
	LastSuccessAt *time.Time      `json:"last_success_at,omitempty"`
	LastError     *string         `json:"last_error,omitempty"`
}

const sourceColumns = `
	source_id,
	source_uuid::text,
	slug,
	name,
	url,
	feed_url,
	provider,
	bucket,
	reliability,
	weight,
	enabled,
	config,
	health_status,
	failure_streak,
	last_success_at,
	last_error`

func scanSourceRecord(row interface{ Scan(...any) error }) (SourceRecord, error) {
	var rec SourceRecord
	err := row.Scan(
		&rec.SourceID,
		&rec.SourceUUID,
		&rec.Slug,
		&rec.Name,
		&rec.URL,
		&rec.FeedURL,
		&rec.Provider,
		&rec.Bucket,
		&rec.Reliability,
		&rec.Weight,
		&rec.Enabled,
		&rec.Config,
		&rec.HealthStatus,
		&rec.FailureStreak,
		&rec.LastSuccessAt,
		&rec.LastError,
	)
	return rec, err
}

// ListSources returns all registered sources ordered by slug. When
// enabledOnly is set, disabled sources are skipped.
func (p *Pool) ListSources(ctx context.Context, enabledOnly bool) ([]SourceRecord, error) {
	q := `SELECT` + sourceColumns + `
FROM aiscan.sources`
	if enabledOnly {
		q += `
WHERE enabled`
	}
	q += `
ORDER BY slug`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []SourceRecord
	for rows.Next() {
		rec, err := scanSourceRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetSourceBySlug returns one source or ErrNoRows.
func (p *Pool) GetSourceBySlug(ctx context.Context, slug string) (SourceRecord, error) {
	q := `SELECT` + sourceColumns + `
FROM aiscan.sources
WHERE slug = $1`
	rec, err := scanSourceRecord(p.QueryRow(ctx, q, strings.TrimSpace(slug)))
	if err != nil {
		return SourceRecord{}, err
	}
	return rec, nil
}

// SourceSeed describes one source for registration.
type SourceSeed struct {
	Slug        string
	Name        string
	URL         string
	FeedURL     *string
	Provider    string
	Bucket      string
	Reliability string
	Weight      float64
	Enabled     bool
	Config      json.RawMessage
}

// UpsertSource registers a source or refreshes its descriptive fields,
// keyed by slug. Health bookkeeping columns are left untouched.
func (p *Pool) UpsertSource(ctx context.Context, seed SourceSeed) error {
	const q = `
INSERT INTO aiscan.sources
	(slug, name, url, feed_url, provider, bucket, reliability, weight, enabled, config, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (slug) DO UPDATE SET
	name = EXCLUDED.name,
	url = EXCLUDED.url,
	feed_url = EXCLUDED.feed_url,
	provider = EXCLUDED.provider,
	bucket = EXCLUDED.bucket,
	reliability = EXCLUDED.reliability,
	weight = EXCLUDED.weight,
	enabled = EXCLUDED.enabled,
	config = EXCLUDED.config,
	updated_at = EXCLUDED.updated_at`

	_, err := p.Exec(ctx, q,
		seed.Slug, seed.Name, seed.URL, seed.FeedURL, seed.Provider, seed.Bucket,
		seed.Reliability, seed.Weight, seed.Enabled, seed.Config, globaltime.UTC())
	if err != nil {
		return fmt.Errorf("upsert source %s: %w", seed.Slug, err)
	}
	return nil
}

// DisableSourcesExcept disables every source whose slug is not in keep and
// marks it deprecated. An empty keep list is rejected to avoid wiping the
// registry by accident.
func (p *Pool) DisableSourcesExcept(ctx context.Context, keep []string) error {
	if len(keep) == 0 {
		return fmt.Errorf("keep list must not be empty")
	}

	placeholders := make([]string, len(keep))
	args := make([]any, 0, len(keep)+1)
	for i, slug := range keep {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, slug)
	}
	args = append(args, globaltime.UTC())

	q := fmt.Sprintf(`
UPDATE aiscan.sources
SET enabled = FALSE,
	health_status = 'deprecated',
	updated_at = $%d
WHERE slug NOT IN (%s)`, len(keep)+1, strings.Join(placeholders, ", "))

	_, err := p.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("disable retired sources: %w", err)
	}
	return nil
}

// MarkSourceSuccess resets the failure streak after a clean fetch. The
// last success timestamp only advances when the fetch produced items.
func (p *Pool) MarkSourceSuccess(ctx context.Context, sourceID int64, itemCount int) error {
	const q = `
UPDATE aiscan.sources
SET failure_streak = 0,
	health_status = 'healthy',
	last_success_at = CASE WHEN $3 THEN $2 ELSE last_success_at END,
	last_error = NULL,
	updated_at = $2
WHERE source_id = $1`
	_, err := p.Exec(ctx, q, sourceID, globaltime.UTC(), itemCount > 0)
	if err != nil {
		return fmt.Errorf("mark source %d success: %w", sourceID, err)
	}
	return nil
}

// MarkSourceFailure bumps the failure streak and degrades the health
// status once the streak reaches three.
func (p *Pool) MarkSourceFailure(ctx context.Context, sourceID int64, message string) error {
	const q = `
UPDATE aiscan.sources
SET failure_streak = failure_streak + 1,
	health_status = CASE WHEN failure_streak + 1 >= 3 THEN 'degraded' ELSE 'warning' END,
	last_error = $2,
	updated_at = $3
WHERE source_id = $1`
	_, err := p.Exec(ctx, q, sourceID, message, globaltime.UTC())
	if err != nil {
		return fmt.Errorf("mark source %d failure: %w", sourceID, err)
	}
	return nil
}
