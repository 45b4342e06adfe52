package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horse.fit/aiscan/internal/cli"
	"horse.fit/aiscan/internal/config"
	"horse.fit/aiscan/internal/db"
	"horse.fit/aiscan/internal/httpapi"
	"horse.fit/aiscan/internal/ingest"
	"horse.fit/aiscan/internal/logging"
	"horse.fit/aiscan/internal/pipeline"
	"horse.fit/aiscan/internal/summarize"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	addr := fs.String("addr", "", "Listen address (defaults to HTTP_ADDR)")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 5*time.Minute, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
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

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	ingestSvc := ingest.NewService(pool, logger, ingestOptions(cfg))
	llm := summarize.New(summarize.Options{
		Provider: cfg.SummarizerProvider,
		APIKey:   cfg.SummarizerAPIKey,
		BaseURL:  cfg.SummarizerBaseURL,
		Model:    cfg.SummarizerModel,
	}, logger)
	normalizer := pipeline.NewNormalizer(pool, logger, llm)

	ingestFn := func(runCtx context.Context, buckets []string) (ingest.Result, error) {
		return ingestSvc.Run(runCtx, buckets)
	}
	publishFn := func(runCtx context.Context, date time.Time, rankCfg pipeline.RankConfig) (pipeline.PublishResult, error) {
		return pipeline.NewPublisher(pool, logger, normalizer, rankCfg).Run(runCtx, date)
	}

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = cfg.HTTPAddr
	}

	if cfg.EnableScheduler {
		sched, err := newScheduler(cfg, logger, ingestFn, publishFn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start scheduler: %v\n", err)
			return 1
		}
		go sched.Run(ctx)
	}

	srv := httpapi.NewServer(pool, logger, httpapi.Options{
		Addr:            listenAddr,
		InternalAPIKey:  cfg.InternalAPIKey,
		BaseRank:        rankConfig(cfg),
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
	}, ingestFn, publishFn)

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("addr", listenAddr).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}
