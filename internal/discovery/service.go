package discovery

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"torrentstream/discovery/internal/domain"
	"torrentstream/discovery/internal/lexicon"
	"torrentstream/discovery/internal/metrics"
	"torrentstream/discovery/internal/telemetry"
)

const (
	defaultDiscoverTimeout = 20 * time.Second
	defaultSuggestLimit    = 8
	maxSuggestLimit        = 20
)

// Service answers free-text discovery queries. Discover never fails:
// every upstream problem degrades into fewer or zero results.
type Service struct {
	extractor    IntentExtractor
	catalog      Catalog
	orchestrator *Orchestrator
	ranker       *Ranker
	logger       *slog.Logger
	tracer       trace.Tracer
	defaultLimit int
	timeout      time.Duration
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithDefaultLimit(limit int) ServiceOption {
	return func(s *Service) {
		if limit > 0 {
			s.defaultLimit = limit
		}
	}
}

func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func WithRanker(ranker *Ranker) ServiceOption {
	return func(s *Service) {
		if ranker != nil {
			s.ranker = ranker
		}
	}
}

func NewService(extractor IntentExtractor, catalog Catalog, lx *lexicon.Lexicon, opts ...ServiceOption) *Service {
	if lx == nil {
		lx = lexicon.New()
	}
	s := &Service{
		extractor:    extractor,
		catalog:      catalog,
		logger:       slog.Default(),
		tracer:       telemetry.Tracer("discovery"),
		defaultLimit: DefaultResultLimit,
		timeout:      defaultDiscoverTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.ranker == nil {
		s.ranker = NewRanker(lx, WithReferenceYear(time.Now().Year()))
	}
	s.orchestrator = NewOrchestrator(catalog, lx, WithOrchestratorLogger(s.logger))
	return s
}

func (s *Service) Discover(ctx context.Context, query string) domain.DiscoverResponse {
	query = strings.TrimSpace(query)
	if query == "" {
		metrics.QueriesTotal.WithLabelValues(string(ModeNone)).Inc()
		metrics.QueryResults.Observe(0)
		return domain.EmptyDiscoverResponse()
	}

	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "discovery.Discover")
	defer span.End()

	_, intentSpan := s.tracer.Start(ctx, "discovery.intent")
	in := s.extractor.ExtractIntent(ctx, query)
	intentSpan.SetAttributes(
		attribute.Int("titles", len(in.Titles)),
		attribute.Int("genres", len(in.Genres)),
		attribute.Int("moods", len(in.Moods)),
		attribute.Int("people", len(in.People)),
		attribute.Bool("wants_similar", in.WantsSimilar),
	)
	intentSpan.End()

	retrieveCtx, retrieveSpan := s.tracer.Start(ctx, "discovery.retrieve")
	mode, hits := s.orchestrator.Retrieve(retrieveCtx, query, in)
	retrieveSpan.SetAttributes(
		attribute.String("mode", string(mode)),
		attribute.Int("hits", len(hits)),
	)
	retrieveSpan.End()

	_, rankSpan := s.tracer.Start(ctx, "discovery.rank")
	ranked := s.ranker.RankAndMerge(hits, in)
	resp := Assemble(ranked, in, s.defaultLimit)
	rankSpan.SetAttributes(attribute.Int("results", len(resp.Results)))
	rankSpan.End()

	elapsed := time.Since(started)
	span.SetAttributes(attribute.String("mode", string(mode)))
	metrics.QueriesTotal.WithLabelValues(string(mode)).Inc()
	metrics.QueryDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	metrics.QueryResults.Observe(float64(len(resp.Results)))

	s.logger.Info("discovery query served",
		slog.String("mode", string(mode)),
		slog.Int("hits", len(hits)),
		slog.Int("results", len(resp.Results)),
		slog.Duration("elapsed", elapsed),
	)
	return resp
}

// Suggest returns lightweight title suggestions for typeahead.
func (s *Service) Suggest(ctx context.Context, query string, limit int) []domain.Suggestion {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Suggestion{}
	}
	if limit <= 0 {
		limit = defaultSuggestLimit
	}
	if limit > maxSuggestLimit {
		limit = maxSuggestLimit
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out := make([]domain.Suggestion, 0, limit)
	for _, hit := range s.catalog.SearchMulti(ctx, query) {
		if len(out) == limit {
			break
		}
		out = append(out, domain.Suggestion{
			ID:        hit.ID,
			Title:     hit.Name,
			Year:      hit.Year,
			Poster:    PosterURL(hit.PosterPath),
			MediaType: hit.MediaType,
			Rating:    hit.Rating,
		})
	}
	return out
}

// CatalogDiagnostics exposes adapter health when the catalog reports it.
func (s *Service) CatalogDiagnostics() []domain.CatalogDiagnostics {
	reporter, ok := s.catalog.(interface {
		Diagnostics() domain.CatalogDiagnostics
	})
	if !ok {
		return []domain.CatalogDiagnostics{}
	}
	return []domain.CatalogDiagnostics{reporter.Diagnostics()}
}
