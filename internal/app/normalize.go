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
	"horse.fit/aiscan/internal/logging"
	"horse.fit/aiscan/internal/pipeline"
	"horse.fit/aiscan/internal/summarize"
)

func runNormalize(args []string) int {
	fs := flag.NewFlagSet("normalize", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	window := fs.Int("window", pipeline.NormalizeWindowHours, "Raw item lookback window in hours")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "normalize does not accept positional arguments")
		return 2
	}
	if *window <= 0 {
		fmt.Fprintln(os.Stderr, "--window must be a positive number of hours")
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

	llm := summarize.New(summarize.Options{
		Provider: cfg.SummarizerProvider,
		APIKey:   cfg.SummarizerAPIKey,
		BaseURL:  cfg.SummarizerBaseURL,
		Model:    cfg.SummarizerModel,
	}, logger)

	normalizer := pipeline.NewNormalizer(pool, logger, llm)
	count, err := normalizer.NormalizeRecent(ctx, *window)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Normalize failed: %v\n", err)
		return 1
	}

	fmt.Printf("normalized=%d window_hours=%d\n", count, *window)
	return 0
}
