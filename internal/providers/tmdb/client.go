package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"torrentstream/discovery/internal/domain"
	"torrentstream/discovery/internal/metrics"
)

const (
	defaultBaseURL        = "https://api.themoviedb.org/3"
	defaultLanguage       = "en-US"
	defaultMaxConcurrency = 8
	defaultRequestsPerSec = 40
	defaultCacheTTL       = 7 * 24 * time.Hour
	genreMapTTL           = 12 * time.Hour
	sharedFetchTimeout    = 30 * time.Second
	maxBodyBytes          = 2 << 20
	catalogName           = "tmdb"
)

var (
	ErrDisabled       = errors.New("tmdb: no api key configured")
	ErrBlocked        = errors.New("tmdb: temporarily blocked after repeated failures")
	ErrThrottled      = errors.New("tmdb: throttled")
	ErrNotFound       = errors.New("tmdb: not found")
	ErrUpstreamStatus = errors.New("tmdb: unexpected status")
	ErrDecode         = errors.New("tmdb: decode response")
)

// Client is the catalog adapter. Every outbound attempt holds one permit of a
// per-instance semaphore and one token of the pacing limiter. Operations
// never return errors: failures are logged and produce empty results.
type Client struct {
	apiKey   string
	baseURL  string
	language string
	http     *http.Client
	cache    ResponseCache
	cacheTTL time.Duration
	throttle ThrottleConfig
	logger   *slog.Logger
	now      func() time.Time

	permits *semaphore.Weighted
	pacer   *rate.Limiter
	flight  singleflight.Group
	health  health

	genreMu   sync.Mutex
	genreMaps map[domain.MediaType]genreMapEntry
}

type genreMapEntry struct {
	ids       map[string]int
	fetchedAt time.Time
}

type Config struct {
	APIKey            string
	BaseURL           string
	Language          string
	Client            *http.Client
	Cache             ResponseCache
	CacheTTL          time.Duration
	MaxConcurrency    int
	RequestsPerSecond float64
	Throttle          ThrottleConfig
	Logger            *slog.Logger
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = defaultLanguage
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSec
	}
	throttle := cfg.Throttle
	defaults := DefaultThrottleConfig()
	if throttle.DefaultWait <= 0 {
		throttle.DefaultWait = defaults.DefaultWait
	}
	if throttle.MaxWait <= 0 {
		throttle.MaxWait = defaults.MaxWait
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		baseURL:   strings.TrimRight(baseURL, "/"),
		language:  language,
		http:      httpClient,
		cache:     cfg.Cache,
		cacheTTL:  cacheTTL,
		throttle:  throttle,
		logger:    logger,
		now:       time.Now,
		permits:   semaphore.NewWeighted(int64(maxConcurrency)),
		pacer:     rate.NewLimiter(rate.Limit(rps), maxConcurrency),
		genreMaps: make(map[domain.MediaType]genreMapEntry),
	}
}

func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

func (c *Client) Diagnostics() domain.CatalogDiagnostics {
	return c.health.snapshot(catalogName, c.Enabled())
}

// getJSON resolves one GET through the response cache, collapses identical
// in-flight requests and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, operation, path string, params url.Values, out any) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	if params == nil {
		params = url.Values{}
	}
	if params.Get("language") == "" {
		params.Set("language", c.language)
	}

	key := cacheKey(path, params)
	body, ok := c.cacheGet(ctx, key)
	if !ok {
		if blocked, until := c.health.blocked(c.now()); blocked {
			return fmt.Errorf("%w until %s", ErrBlocked, until.Format(time.RFC3339))
		}
		// The shared fetch outlives any single caller so one cancelled
		// request cannot fail the others waiting on the same key.
		detached := context.WithoutCancel(ctx)
		results := c.flight.DoChan(key, func() (any, error) {
			fetchCtx, cancel := context.WithTimeout(detached, sharedFetchTimeout)
			defer cancel()
			return c.fetch(fetchCtx, operation, path, params, key)
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-results:
			if res.Err != nil {
				return res.Err
			}
			body = res.Val.([]byte)
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, operation, err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, operation, path string, params url.Values, key string) ([]byte, error) {
	started := c.now()
	body, err := withThrottleRetry(ctx, c.throttle, c.health.throttled, func() ([]byte, error) {
		return c.attempt(ctx, path, params)
	})
	c.health.record(operation, err, c.now().Sub(started), c.now())
	if err != nil {
		return nil, err
	}
	c.cacheSet(ctx, key, body)
	return body, nil
}

// attempt holds a permit for a single round trip only, so a Retry-After
// wait does not pin the pool.
func (c *Client) attempt(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.permits.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.permits.Release(1)
	return c.do(ctx, path, params)
}

func (c *Client) do(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	for name, values := range params {
		query[name] = values
	}
	bearer := strings.HasPrefix(c.apiKey, "eyJ")
	if !bearer {
		query.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if bearer {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &throttleError{retryAfter: parseRetryAfter(resp.Header, c.now())}
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUpstreamStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func (c *Client) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Debug("catalog cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.Inc()
	return body, true
}

func (c *Client) cacheSet(ctx context.Context, key string, body []byte) {
	if c.cache == nil || len(body) == 0 {
		return
	}
	if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
		c.logger.Debug("catalog cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// warn logs a failed operation. Disabled catalogs and cancelled callers are
// expected and stay at debug level.
func (c *Client) warn(ctx context.Context, operation string, err error, attrs ...slog.Attr) {
	level := slog.LevelWarn
	if errors.Is(err, ErrDisabled) || errors.Is(err, ErrNotFound) || ctx.Err() != nil {
		level = slog.LevelDebug
	}
	args := make([]any, 0, len(attrs)+2)
	args = append(args, slog.String("operation", operation), slog.String("error", err.Error()))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	c.logger.Log(ctx, level, "catalog request failed", args...)
}
