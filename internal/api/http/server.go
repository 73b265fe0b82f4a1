package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"torrentstream/discovery/internal/domain"
)

type DiscoveryService interface {
	Discover(ctx context.Context, query string) domain.DiscoverResponse
	Suggest(ctx context.Context, query string, limit int) []domain.Suggestion
	CatalogDiagnostics() []domain.CatalogDiagnostics
}

type Server struct {
	discovery    DiscoveryService
	logger       *slog.Logger
	metrics      http.Handler
	rateRPS      float64
	rateBurst    int
	imageBaseURL string
	imageClient  *http.Client
}

const (
	maxQueryLength   = 500
	maxRequestBody   = 1 << 20
	defaultRateRPS   = 20
	defaultRateBurst = 40
)

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRateLimit sets the global ingress token bucket.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 {
			s.rateRPS = rps
		}
		if burst > 0 {
			s.rateBurst = burst
		}
	}
}

// WithMetricsHandler replaces the default promhttp handler, e.g. to serve a
// dedicated registry.
func WithMetricsHandler(handler http.Handler) ServerOption {
	return func(s *Server) {
		if handler != nil {
			s.metrics = handler
		}
	}
}

// WithImageUpstream points the poster proxy at a different image host.
func WithImageUpstream(baseURL string, client *http.Client) ServerOption {
	return func(s *Server) {
		if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
			s.imageBaseURL = baseURL
		}
		if client != nil {
			s.imageClient = client
		}
	}
}

func NewServer(discovery DiscoveryService, options ...ServerOption) *Server {
	server := &Server{
		discovery:    discovery,
		logger:       slog.Default(),
		metrics:      promhttp.Handler(),
		rateRPS:      defaultRateRPS,
		rateBurst:    defaultRateBurst,
		imageBaseURL: defaultImageBaseURL,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	if server.imageClient == nil {
		server.imageClient = newImageProxyClient(server.imageBaseURL)
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics)
	mux.HandleFunc("/catalog/health", s.handleCatalogHealth)
	mux.HandleFunc("/discover/suggest", s.handleSuggest)
	mux.HandleFunc("/discover/image", s.handleImageProxy)
	mux.HandleFunc("/discover", s.handleDiscover)
	traced := otelhttp.NewHandler(accessLogMiddleware(s.logger, mux), "discovery",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(s.rateRPS, s.rateBurst, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/discover" {
		http.NotFound(w, r)
		return
	}
	if s.discovery == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "discovery service is not configured")
		return
	}

	var query string
	switch r.Method {
	case http.MethodGet:
		query = r.URL.Query().Get("q")
	case http.MethodPost:
		var request domain.DiscoverRequest
		if err := decodeJSONBody(r, &request); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		query = request.Query
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query = clampQuery(strings.TrimSpace(query))

	started := time.Now()
	response := s.discovery.Discover(r.Context(), query)
	if query != "" {
		s.logger.Info("discover completed",
			slog.String("query", truncate(query, 80)),
			slog.Int("results", len(response.Results)),
			slog.Int64("elapsedMs", time.Since(started).Milliseconds()),
		)
	}
	if response.Results == nil {
		response = domain.EmptyDiscoverResponse()
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/discover/suggest" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.discovery == nil {
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
		return
	}

	query := clampQuery(strings.TrimSpace(r.URL.Query().Get("q")))
	if len(query) < 2 {
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
		return
	}
	limit, err := parsePositiveInt(r, "limit", 8)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}

	items := s.discovery.Suggest(r.Context(), query, limit)
	if items == nil {
		items = []domain.Suggestion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleCatalogHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/catalog/health" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.discovery == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "discovery service is not configured")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"checkedAt": time.Now().UTC(),
		"items":     s.discovery.CatalogDiagnostics(),
	})
}

// clampQuery cuts overlong discovery text at the last word boundary within
// maxQueryLength bytes.
func clampQuery(query string) string {
	if len(query) <= maxQueryLength {
		return query
	}
	cut := query[:maxQueryLength]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	if space := strings.LastIndexFunc(cut, unicode.IsSpace); space > 0 {
		cut = cut[:space]
	}
	return strings.TrimSpace(cut)
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
