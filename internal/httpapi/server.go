package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/aiscan/internal/db"
	"horse.fit/aiscan/internal/globaltime"
	"horse.fit/aiscan/internal/ingest"
	"horse.fit/aiscan/internal/pipeline"
)

// IngestFunc triggers one ingestion run, optionally restricted to the
// given source buckets.
type IngestFunc func(ctx context.Context, buckets []string) (ingest.Result, error)

// PublishFunc publishes the digest for one date with the given shape
// configuration.
type PublishFunc func(ctx context.Context, date time.Time, cfg pipeline.RankConfig) (pipeline.PublishResult, error)

type Options struct {
	Addr            string
	InternalAPIKey  string
	BaseRank        pipeline.RankConfig
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	pool    *db.Pool
	logger  zerolog.Logger
	opts    Options
	ingest  IngestFunc
	publish PublishFunc
}

// publicSource is the externally visible view of a source. Provider
// configuration and row identifiers stay private.
type publicSource struct {
	Slug          string     `json:"slug"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	Provider      string     `json:"provider"`
	Bucket        string     `json:"bucket"`
	Reliability   string     `json:"reliability"`
	Weight        float64    `json:"weight"`
	Enabled       bool       `json:"enabled"`
	HealthStatus  string     `json:"health_status"`
	FailureStreak int        `json:"failure_streak"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
}

type ingestRequest struct {
	SourceBuckets []string `json:"sourceBuckets"`
}

type publishRequest struct {
	Date                 string   `json:"date"`
	MediaMax             *int     `json:"mediaMax"`
	PracticalTargetRatio *float64 `json:"practicalTargetRatio"`
	RepeatWindowDays     *int     `json:"repeatWindowDays"`
}

func NewServer(pool *db.Pool, logger zerolog.Logger, opts Options, ingestFn IngestFunc, publishFn PublishFunc) *Server {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		addr = ":8080"
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		// Internal publish runs the whole pipeline inline.
		writeTimeout = 5 * time.Minute
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		pool:    pool,
		logger:  logger,
		ingest:  ingestFn,
		publish: publishFn,
		opts: Options{
			Addr:            addr,
			InternalAPIKey:  opts.InternalAPIKey,
			BaseRank:        opts.BaseRank,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.router()

	httpServer := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", s.opts.Addr).Msg("aiscan api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("aiscan api server stopped")
	return nil
}

func (s *Server) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/digest/latest", s.handleLatestDigest)
	api.GET("/digest/:date", s.handleDigestByDate)
	api.GET("/sources", s.handleSources)

	internal := api.Group("/internal", s.requireInternalKey)
	internal.POST("/ingest", s.handleInternalIngest)
	internal.POST("/publish", s.handleInternalPublish)

	return e
}

// requireInternalKey guards the trigger endpoints. The comparison is
// constant time so the key cannot be probed byte by byte.
func (s *Server) requireInternalKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		configured := strings.TrimSpace(s.opts.InternalAPIKey)
		if configured == "" {
			return fail(c, http.StatusServiceUnavailable, "Internal API key is not configured", nil)
		}

		presented := strings.TrimSpace(c.Request().Header.Get("x-internal-api-key"))
		if subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) != 1 {
			return fail(c, http.StatusUnauthorized, "Invalid internal API key", nil)
		}
		return next(c)
	}
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "aiscan",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleLatestDigest(c echo.Context) error {
	ctx := c.Request().Context()

	date, err := s.pool.LatestDigestDate(ctx)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "No digest published yet")
		}
		s.logger.Error().Err(err).Msg("query latest digest date failed")
		return internalError(c, "Failed to load digest")
	}

	return s.respondDigest(c, date)
}

func (s *Server) handleDigestByDate(c echo.Context) error {
	raw := strings.TrimSpace(c.Param("date"))
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return failValidation(c, map[string]string{"date": "must be YYYY-MM-DD"})
	}
	return s.respondDigest(c, date)
}

func (s *Server) respondDigest(c echo.Context, date time.Time) error {
	entries, err := s.pool.GetDigestByDate(c.Request().Context(), date)
	if err != nil {
		s.logger.Error().Err(err).Time("date", date).Msg("query digest failed")
		return internalError(c, "Failed to load digest")
	}
	if len(entries) == 0 {
		return failNotFound(c, "No digest for this date")
	}

	return success(c, map[string]any{
		"digest_date": date.UTC().Format("2006-01-02"),
		"count":       len(entries),
		"items":       entries,
	})
}

func (s *Server) handleSources(c echo.Context) error {
	records, err := s.pool.ListSources(c.Request().Context(), false)
	if err != nil {
		s.logger.Error().Err(err).Msg("query sources failed")
		return internalError(c, "Failed to load sources")
	}

	items := make([]publicSource, 0, len(records))
	for _, rec := range records {
		items = append(items, publicSource{
			Slug:          rec.Slug,
			Name:          rec.Name,
			URL:           rec.URL,
			Provider:      rec.Provider,
			Bucket:        rec.Bucket,
			Reliability:   rec.Reliability,
			Weight:        rec.Weight,
			Enabled:       rec.Enabled,
			HealthStatus:  rec.HealthStatus,
			FailureStreak: rec.FailureStreak,
			LastSuccessAt: rec.LastSuccessAt,
		})
	}

	return success(c, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func (s *Server) handleInternalIngest(c echo.Context) error {
	if s.ingest == nil {
		return fail(c, http.StatusServiceUnavailable, "Ingestion is not available", nil)
	}

	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON object"})
	}

	buckets := make([]string, 0, len(req.SourceBuckets))
	for _, bucket := range req.SourceBuckets {
		normalized := strings.ToUpper(strings.TrimSpace(bucket))
		if normalized == "" {
			continue
		}
		if normalized != "MEDIA" && normalized != "PRACTICAL" {
			return failValidation(c, map[string]string{"sourceBuckets": "entries must be MEDIA or PRACTICAL"})
		}
		buckets = append(buckets, normalized)
	}

	result, err := s.ingest(c.Request().Context(), buckets)
	if err != nil {
		s.logger.Error().Err(err).Msg("triggered ingest failed")
		return internalError(c, "Ingestion run failed")
	}
	return success(c, result)
}

func (s *Server) handleInternalPublish(c echo.Context) error {
	if s.publish == nil {
		return fail(c, http.StatusServiceUnavailable, "Publishing is not available", nil)
	}

	var req publishRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON object"})
	}

	date := globaltime.UTC()
	if raw := strings.TrimSpace(req.Date); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return failValidation(c, map[string]string{"date": "must be YYYY-MM-DD"})
		}
		date = parsed
	}

	cfg := s.opts.BaseRank
	if req.MediaMax != nil {
		if *req.MediaMax < 0 {
			return failValidation(c, map[string]string{"mediaMax": "must be >= 0"})
		}
		cfg.MediaMax = *req.MediaMax
	}
	if req.PracticalTargetRatio != nil {
		if *req.PracticalTargetRatio < 0 || *req.PracticalTargetRatio > 1 {
			return failValidation(c, map[string]string{"practicalTargetRatio": "must be between 0 and 1"})
		}
		cfg.PracticalTargetRatio = *req.PracticalTargetRatio
	}
	if req.RepeatWindowDays != nil {
		if *req.RepeatWindowDays < 1 {
			return failValidation(c, map[string]string{"repeatWindowDays": "must be >= 1"})
		}
		cfg.RepeatWindowDays = *req.RepeatWindowDays
	}

	result, err := s.publish(c.Request().Context(), date, cfg)
	if err != nil {
		s.logger.Error().Err(err).Msg("triggered publish failed")
		return internalError(c, "Publish run failed")
	}
	return success(c, result)
}
