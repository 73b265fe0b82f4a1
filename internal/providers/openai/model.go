package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"torrentstream/discovery/internal/intent"
	"torrentstream/discovery/internal/lexicon"
	"torrentstream/discovery/internal/metrics"
)

const defaultModel = "gpt-4o-mini"

var ErrLanguageModel = errors.New("language model request failed")

// Model is an intent.LanguageModel backed by an OpenAI-compatible chat
// completion endpoint returning a JSON object.
type Model struct {
	client *openai.Client
	model  string
	prompt string
	logger *slog.Logger
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Lexicon    *lexicon.Lexicon
	Logger     *slog.Logger
}

func NewModel(cfg Config) *Model {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	lx := cfg.Lexicon
	if lx == nil {
		lx = lexicon.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		prompt: systemPrompt(lx),
		logger: logger,
	}
}

func (m *Model) ExtractIntent(ctx context.Context, query string) (intent.RawIntent, error) {
	req := openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: m.prompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
		MaxTokens:   400,
	}

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(ctx, req)
	metrics.LanguageModelDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LanguageModelRequestsTotal.WithLabelValues("error").Inc()
		return intent.RawIntent{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		metrics.LanguageModelRequestsTotal.WithLabelValues("empty").Inc()
		return intent.RawIntent{}, fmt.Errorf("empty completion: %w", ErrLanguageModel)
	}

	raw, err := decodeIntent(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.LanguageModelRequestsTotal.WithLabelValues("invalid").Inc()
		m.logger.Debug("language model returned invalid json",
			slog.String("model", m.model),
			slog.String("error", err.Error()),
		)
		return intent.RawIntent{}, err
	}
	metrics.LanguageModelRequestsTotal.WithLabelValues("success").Inc()
	return raw, nil
}

// decodeIntent tolerates markdown code fences around the JSON object.
func decodeIntent(content string) (intent.RawIntent, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if content == "" {
		return intent.RawIntent{}, fmt.Errorf("empty content: %w", intent.ErrUnusableOutput)
	}
	var raw intent.RawIntent
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return intent.RawIntent{}, fmt.Errorf("decode intent: %v: %w", err, intent.ErrUnusableOutput)
	}
	return raw, nil
}

func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("language model API error %d: %s: %w",
			reqErr.HTTPStatusCode, strings.TrimSpace(string(reqErr.Body)), ErrLanguageModel)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("language model API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, ErrLanguageModel)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("language model request: %v: %w", err, ErrLanguageModel)
}

func systemPrompt(lx *lexicon.Lexicon) string {
	var b strings.Builder
	b.WriteString("You turn a movie or TV discovery request into a JSON object with these optional fields:\n")
	b.WriteString(`{"titles":[string],"people":[string],"genres":[string],"moods":[string],`)
	b.WriteString(`"year":int,"yearFrom":int,"yearTo":int,"runtimeMaxMinutes":int,`)
	b.WriteString(`"mediaTypes":["movie"|"tv"],"count":int,"wantsSimilar":bool}` + "\n")
	b.WriteString("Rules:\n")
	b.WriteString("- titles: specific movie or show names mentioned, original casing.\n")
	b.WriteString("- wantsSimilar: true when the user wants titles like or similar to the named titles.\n")
	b.WriteString("- people: actors or directors mentioned by name.\n")
	b.WriteString("- genres: pick from " + strings.Join(lx.GenreNames(), ", ") + ".\n")
	b.WriteString("- moods: pick from " + strings.Join(lx.MoodNames(), ", ") + ".\n")
	b.WriteString("- count: only when the user asks for a number of results.\n")
	b.WriteString("- omit anything not stated. Reply with the JSON object only.")
	return b.String()
}
