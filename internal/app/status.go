package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/aiscan/internal/cli"
	"horse.fit/aiscan/internal/db"
)

type statusOutput struct {
	IngestRun        *db.JobRun        `json:"ingest_run,omitempty"`
	PublishRun       *db.JobRun        `json:"publish_run,omitempty"`
	LatestDigestDate string            `json:"latest_digest_date,omitempty"`
	UnhealthySources []db.SourceRecord `json:"unhealthy_sources,omitempty"`
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	out, err := collectStatus(ctx, pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to collect status: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(out); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	printRunLine("ingest", out.IngestRun)
	printRunLine("publish", out.PublishRun)
	if out.LatestDigestDate != "" {
		fmt.Printf("latest digest: %s\n", out.LatestDigestDate)
	} else {
		fmt.Println("latest digest: none")
	}

	if len(out.UnhealthySources) > 0 {
		fmt.Println()
		fmt.Println("unhealthy sources")
		rows := make([][]string, 0, len(out.UnhealthySources))
		for _, rec := range out.UnhealthySources {
			lastError := ""
			if rec.LastError != nil {
				lastError = truncateForTable(*rec.LastError, 60)
			}
			rows = append(rows, []string{rec.Slug, rec.HealthStatus, fmt.Sprintf("%d", rec.FailureStreak), lastError})
		}
		if err := writeTable([]string{"SLUG", "HEALTH", "STREAK", "LAST_ERROR"}, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
			return 1
		}
	}

	return 0
}

func collectStatus(ctx context.Context, pool *db.Pool) (statusOutput, error) {
	var out statusOutput

	for _, job := range []string{"ingest", "publish"} {
		run, err := pool.LatestJobRun(ctx, job)
		if err != nil {
			if errors.Is(err, db.ErrNoRows) {
				continue
			}
			return statusOutput{}, fmt.Errorf("latest %s run: %w", job, err)
		}
		copied := run
		if job == "ingest" {
			out.IngestRun = &copied
		} else {
			out.PublishRun = &copied
		}
	}

	if date, err := pool.LatestDigestDate(ctx); err == nil {
		out.LatestDigestDate = date.UTC().Format("2006-01-02")
	} else if !errors.Is(err, db.ErrNoRows) {
		return statusOutput{}, fmt.Errorf("latest digest date: %w", err)
	}

	records, err := pool.ListSources(ctx, true)
	if err != nil {
		return statusOutput{}, fmt.Errorf("list sources: %w", err)
	}
	for _, rec := range records {
		if rec.HealthStatus != "healthy" {
			out.UnhealthySources = append(out.UnhealthySources, rec)
		}
	}

	return out, nil
}

func printRunLine(job string, run *db.JobRun) {
	if run == nil {
		fmt.Printf("%s: no runs\n", job)
		return
	}
	line := fmt.Sprintf("%s: %s started=%s", job, run.Status, run.StartedAt.UTC().Format(time.RFC3339))
	if run.FinishedAt != nil {
		line += " finished=" + run.FinishedAt.UTC().Format(time.RFC3339)
	}
	if len(run.Counts) > 0 {
		line += " counts=" + string(run.Counts)
	}
	fmt.Println(line)
}
