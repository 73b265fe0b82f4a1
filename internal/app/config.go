package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr           string
	DiscoverTimeout    time.Duration
	DefaultResultLimit int
	LogLevel           string
	LogFormat          string
	RateLimitRPS       float64
	RateLimitBurst     int

	TMDBAPIKey            string
	TMDBBaseURL           string
	TMDBLanguage          string
	TMDBMaxConcurrency    int
	TMDBRequestsPerSecond float64
	TMDBThrottleWait      time.Duration
	TMDBCacheTTL          time.Duration
	TMDBCacheDisabled     bool
	RedisURL              string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	IntentTimeout time.Duration

	ServiceVersion string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8090"),
		DiscoverTimeout:    time.Duration(getEnvInt("DISCOVER_TIMEOUT_SECONDS", 20)) * time.Second,
		DefaultResultLimit: getEnvInt("DISCOVER_DEFAULT_LIMIT", 20),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		RateLimitRPS:       getEnvFloat("HTTP_RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getEnvInt("HTTP_RATE_LIMIT_BURST", 40),

		TMDBAPIKey:            strings.TrimSpace(os.Getenv("TMDB_API_KEY")),
		TMDBBaseURL:           getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBLanguage:          getEnv("TMDB_LANGUAGE", "en-US"),
		TMDBMaxConcurrency:    getEnvInt("TMDB_MAX_CONCURRENCY", 8),
		TMDBRequestsPerSecond: getEnvFloat("TMDB_REQUESTS_PER_SECOND", 40),
		TMDBThrottleWait:      time.Duration(getEnvInt("TMDB_THROTTLE_WAIT_MS", 1000)) * time.Millisecond,
		TMDBCacheTTL:          time.Duration(getEnvInt("TMDB_CACHE_TTL_DAYS", 7)) * 24 * time.Hour,
		TMDBCacheDisabled:     getEnvBool("TMDB_CACHE_DISABLED", false),
		RedisURL:              getEnv("REDIS_URL", ""),

		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		IntentTimeout: time.Duration(getEnvInt("INTENT_TIMEOUT_SECONDS", 8)) * time.Second,

		ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
	}
}

// LanguageModelEnabled reports whether an OpenAI-compatible endpoint is configured.
func (c Config) LanguageModelEnabled() bool {
	return c.OpenAIAPIKey != ""
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
