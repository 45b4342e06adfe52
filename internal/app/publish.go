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

func runPublish(args []string) int {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 15*time.Minute, "Command timeout")
	date := fs.String("date", defaultUTCDayString(), "Digest date in YYYY-MM-DD (UTC)")
	mediaMax := fs.Int("media-max", -1, "Override the global MEDIA cap (-1 keeps the configured value)")
	practicalRatio := fs.Float64("practical-ratio", -1, "Override the practical target ratio (-1 keeps the configured value)")
	repeatWindow := fs.Int("repeat-window", -1, "Override the repeat window in days (-1 keeps the configured value)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "publish does not accept positional arguments")
		return 2
	}

	targetDay, err := parseUTCDate(*date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --date: %v\n", err)
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

	rankCfg := rankConfig(cfg)
	if *mediaMax >= 0 {
		rankCfg.MediaMax = *mediaMax
	}
	if *practicalRatio >= 0 {
		if *practicalRatio > 1 {
			fmt.Fprintln(os.Stderr, "--practical-ratio must be between 0 and 1")
			return 2
		}
		rankCfg.PracticalTargetRatio = *practicalRatio
	}
	if *repeatWindow >= 0 {
		if *repeatWindow == 0 {
			fmt.Fprintln(os.Stderr, "--repeat-window must be at least 1 day")
			return 2
		}
		rankCfg.RepeatWindowDays = *repeatWindow
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
	publisher := pipeline.NewPublisher(pool, logger, normalizer, rankCfg)

	result, err := publisher.Run(ctx, targetDay)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Publish failed: %v\n", err)
		return 1
	}

	fmt.Printf("run_id=%d date=%s normalized=%d digest=%d\n",
		result.RunID, result.DigestDate.Format("2006-01-02"), result.NormalizedCount, result.DigestCount)
	return 0
}
