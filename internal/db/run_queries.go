package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"horse.fit/aiscan/internal/globaltime"
)

// InsertJobRun opens a bookkeeping row for one ingest or publish run.
func (p *Pool) InsertJobRun(ctx context.Context, jobName string) (int64, error) {
	const q = `
INSERT INTO aiscan.job_runs (job_name, status, started_at)
VALUES ($1, 'running', $2)
RETURNING job_run_id`

	var id int64
	if err := p.QueryRow(ctx, q, jobName, globaltime.UTC()).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert %s job run: %w", jobName, err)
	}
	return id, nil
}

// MarkJobRunCompleted closes a run with its final status and counters.
func (p *Pool) MarkJobRunCompleted(ctx context.Context, runID int64, status string, counts map[string]int) error {
	var payload json.RawMessage
	if len(counts) > 0 {
		encoded, err := json.Marshal(counts)
		if err != nil {
			return fmt.Errorf("encode run counts: %w", err)
		}
		payload = encoded
	}

	const q = `
UPDATE aiscan.job_runs
SET status = $2, finished_at = $3, counts = $4
WHERE job_run_id = $1`
	_, err := p.Exec(ctx, q, runID, status, globaltime.UTC(), payload)
	if err != nil {
		return fmt.Errorf("mark job run %d %s: %w", runID, status, err)
	}
	return nil
}

// MarkJobRunFailed closes a run with an error message.
func (p *Pool) MarkJobRunFailed(ctx context.Context, runID int64, message string) error {
	const q = `
UPDATE aiscan.job_runs
SET status = 'failed', finished_at = $2, message = $3
WHERE job_run_id = $1`
	_, err := p.Exec(ctx, q, runID, globaltime.UTC(), message)
	if err != nil {
		return fmt.Errorf("mark job run %d failed: %w", runID, err)
	}
	return nil
}

// LatestJobRun returns the most recent run for a job name, or ErrNoRows.
func (p *Pool) LatestJobRun(ctx context.Context, jobName string) (JobRun, error) {
	const q = `
SELECT job_run_id, job_run_uuid::text, job_name, status, started_at, finished_at, message, counts
FROM aiscan.job_runs
WHERE job_name = $1
ORDER BY started_at DESC
LIMIT 1`

	var run JobRun
	var finished *time.Time
	err := p.QueryRow(ctx, q, jobName).Scan(
		&run.JobRunID, &run.JobRunUUID, &run.JobName, &run.Status,
		&run.StartedAt, &finished, &run.Message, &run.Counts)
	if err != nil {
		return JobRun{}, err
	}
	run.FinishedAt = finished
	return run, nil
}
