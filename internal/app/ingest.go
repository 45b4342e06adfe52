package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/aiscan/internal/cli"
	"horse.fit/aiscan/internal/config"
	"horse.fit/aiscan/internal/db"
	"horse.fit/aiscan/internal/ingest"
	"horse.fit/aiscan/internal/logging"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	buckets := fs.String("buckets", "", "Comma-separated bucket filter: MEDIA,PRACTICAL (empty runs all)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "ingest does not accept positional arguments")
		return 2
	}

	bucketFilter, err := parseBucketsFlag(*buckets)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	svc := ingest.NewService(pool, logger, ingestOptions(cfg))
	result, err := svc.Run(ctx, bucketFilter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}

	fmt.Printf("run_id=%d status=%s processed=%d failed=%d\n",
		result.RunID, result.Status, result.ProcessedCount, result.FailedCount)
	for _, sourceResult := range result.Results {
		if sourceResult.Error != "" {
			fmt.Printf("  %s: error=%s\n", sourceResult.SourceSlug, sourceResult.Error)
			continue
		}
		line := fmt.Sprintf("  %s: fetched=%d saved=%d", sourceResult.SourceSlug, sourceResult.Fetched, sourceResult.Saved)
		if sourceResult.FallbackProvider != "" {
			line += " fallback=" + sourceResult.FallbackProvider
		}
		fmt.Println(line)
	}

	return 0
}
