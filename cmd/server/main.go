package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "torrentstream/discovery/internal/api/http"
	"torrentstream/discovery/internal/app"
	"torrentstream/discovery/internal/discovery"
	"torrentstream/discovery/internal/intent"
	"torrentstream/discovery/internal/lexicon"
	"torrentstream/discovery/internal/metrics"
	"torrentstream/discovery/internal/providers/openai"
	"torrentstream/discovery/internal/providers/tmdb"
	"torrentstream/discovery/internal/telemetry"
)

const serviceName = "discovery"

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), telemetry.OptionsFromEnv(serviceName, cfg.ServiceVersion))
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("discoverTimeout", cfg.DiscoverTimeout),
		slog.Int("defaultLimit", cfg.DefaultResultLimit),
		slog.Bool("hasTMDBKey", cfg.TMDBAPIKey != ""),
		slog.String("tmdbBaseURL", cfg.TMDBBaseURL),
		slog.Int("tmdbMaxConcurrency", cfg.TMDBMaxConcurrency),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("languageModel", cfg.LanguageModelEnabled()),
	)

	lx := lexicon.New()
	cache, closeCache := buildResponseCache(cfg, logger)
	defer closeCache()
	catalog := buildCatalog(cfg, cache, logger)
	extractor := intent.NewExtractor(lx,
		intent.WithLanguageModel(buildLanguageModel(cfg, lx, logger)),
		intent.WithLogger(logger),
		intent.WithTimeout(cfg.IntentTimeout),
	)
	service := discovery.NewService(extractor, catalog, lx,
		discovery.WithLogger(logger),
		discovery.WithDefaultLimit(cfg.DefaultResultLimit),
		discovery.WithTimeout(cfg.DiscoverTimeout),
	)

	handler := apihttp.NewServer(service,
		apihttp.WithLogger(logger),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.DiscoverTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("discovery service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Bool("catalogEnabled", catalog.Enabled()),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("discovery service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildCatalog(cfg app.Config, cache tmdb.ResponseCache, logger *slog.Logger) *tmdb.Client {
	if cfg.TMDBAPIKey == "" {
		logger.Warn("tmdb api key not configured, every query will return no results")
	}
	client := tmdb.NewClient(tmdb.Config{
		APIKey:            cfg.TMDBAPIKey,
		BaseURL:           cfg.TMDBBaseURL,
		Language:          cfg.TMDBLanguage,
		Client:            &http.Client{Timeout: 10 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Cache:             cache,
		CacheTTL:          cfg.TMDBCacheTTL,
		MaxConcurrency:    cfg.TMDBMaxConcurrency,
		RequestsPerSecond: cfg.TMDBRequestsPerSecond,
		Throttle:          tmdb.ThrottleConfig{DefaultWait: cfg.TMDBThrottleWait, MaxWait: 10 * cfg.TMDBThrottleWait},
		Logger:            logger,
	})
	logger.Info("tmdb client initialized", slog.Bool("enabled", client.Enabled()))
	return client
}

// buildResponseCache returns a nil cache unless Redis is configured and
// reachable. The returned func releases the Redis connection pool.
func buildResponseCache(cfg app.Config, logger *slog.Logger) (tmdb.ResponseCache, func()) {
	noop := func() {}
	if cfg.TMDBCacheDisabled {
		logger.Info("tmdb response cache disabled")
		return nil, noop
	}
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return nil, noop
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, tmdb responses will not be cached", slog.String("error", err.Error()))
		return nil, noop
	}
	cache := tmdb.NewRedisResponseCache(redis.NewClient(redisOpts))
	closeCache := func() {
		if err := cache.Close(); err != nil {
			logger.Warn("redis close failed", slog.String("error", err.Error()))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		logger.Warn("redis not reachable, tmdb responses will not be cached", slog.String("error", err.Error()))
		closeCache()
		return nil, noop
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return cache, closeCache
}

func buildLanguageModel(cfg app.Config, lx *lexicon.Lexicon, logger *slog.Logger) intent.LanguageModel {
	if !cfg.LanguageModelEnabled() {
		logger.Info("language model not configured, using keyword intent parser")
		return intent.NewKeywordModel(lx)
	}
	logger.Info("language model configured", slog.String("model", cfg.OpenAIModel))
	return openai.NewModel(openai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIModel,
		HTTPClient: &http.Client{Timeout: cfg.IntentTimeout + 2*time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Lexicon:    lx,
		Logger:     logger,
	})
}
