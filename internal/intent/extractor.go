package intent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"torrentstream/discovery/internal/domain"
	"torrentstream/discovery/internal/lexicon"
	"torrentstream/discovery/internal/metrics"
)

var (
	ErrUnusableOutput = errors.New("language model returned no usable intent")
	ErrNoModel        = errors.New("no language model configured")
)

// LanguageModel turns raw query text into a structured intent object.
// Implementations may fail for any reason; the Extractor absorbs it.
type LanguageModel interface {
	ExtractIntent(ctx context.Context, query string) (RawIntent, error)
}

// RawIntent is the loosely-typed structured output of a LanguageModel.
// Every field is optional.
type RawIntent struct {
	Titles            []string `json:"titles"`
	People            []string `json:"people"`
	Genres            []string `json:"genres"`
	Moods             []string `json:"moods"`
	Year              *int     `json:"year,omitempty"`
	YearFrom          *int     `json:"yearFrom,omitempty"`
	YearTo            *int     `json:"yearTo,omitempty"`
	RuntimeMaxMinutes *int     `json:"runtimeMaxMinutes,omitempty"`
	MediaTypes        []string `json:"mediaTypes"`
	Count             *int     `json:"count,omitempty"`
	WantsSimilar      bool     `json:"wantsSimilar"`
}

type Extractor struct {
	model   LanguageModel
	lexicon *lexicon.Lexicon
	logger  *slog.Logger
	timeout time.Duration
}

type Option func(*Extractor)

func WithLanguageModel(model LanguageModel) Option {
	return func(e *Extractor) {
		e.model = model
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithTimeout bounds a single language model call.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Extractor) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

func NewExtractor(lx *lexicon.Lexicon, opts ...Option) *Extractor {
	if lx == nil {
		lx = lexicon.New()
	}
	e := &Extractor{
		lexicon: lx,
		logger:  slog.Default(),
		timeout: 8 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// ExtractIntent never fails: any model error or unusable output yields the
// deterministic fallback intent.
func (e *Extractor) ExtractIntent(ctx context.Context, query string) domain.Intent {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Intent{}
	}

	raw, err := e.callModel(ctx, query)
	if err == nil {
		if extracted, ok := normalize(raw, query, e.lexicon); ok {
			metrics.IntentExtractionsTotal.WithLabelValues("model").Inc()
			return extracted
		}
		err = ErrUnusableOutput
	}

	outcome := "fallback_error"
	switch {
	case errors.Is(err, ErrNoModel):
		outcome = "fallback_no_model"
	case errors.Is(err, ErrUnusableOutput):
		outcome = "fallback_unusable"
	}
	metrics.IntentExtractionsTotal.WithLabelValues(outcome).Inc()
	e.logger.Debug("intent extraction fell back",
		slog.String("query", truncate(query, 80)),
		slog.String("reason", err.Error()),
	)
	return Fallback(query)
}

func (e *Extractor) callModel(ctx context.Context, query string) (raw RawIntent, err error) {
	if e.model == nil {
		return RawIntent{}, ErrNoModel
	}
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	defer func() {
		if recovered := recover(); recovered != nil {
			e.logger.Error("language model panicked", slog.Any("error", recovered))
			raw, err = RawIntent{}, ErrUnusableOutput
		}
	}()
	return e.model.ExtractIntent(callCtx, query)
}

// Fallback treats the whole query as a single title for both media types.
func Fallback(query string) domain.Intent {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Intent{}
	}
	return domain.Intent{
		Titles:         []string{query},
		People:         []string{},
		Genres:         []string{},
		Moods:          []string{},
		MediaTypes:     append([]domain.MediaType(nil), domain.AllMediaTypes...),
		RequestedCount: CountFromText(query),
	}
}

func truncate(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}
