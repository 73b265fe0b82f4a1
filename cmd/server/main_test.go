package main

import (
	"io"
	"log/slog"
	"testing"

	"torrentstream/discovery/internal/app"
)

func TestBuildResponseCacheSkipsUnusableRedis(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := map[string]app.Config{
		"disabled":    {RedisURL: "redis://127.0.0.1:1/0", TMDBCacheDisabled: true},
		"unset":       {},
		"invalid":     {RedisURL: "::not a url"},
		"unreachable": {RedisURL: "redis://127.0.0.1:1/0"},
	}
	for name, cfg := range cases {
		cache, closeCache := buildResponseCache(cfg, logger)
		if cache != nil {
			t.Fatalf("%s: expected no cache, got %T", name, cache)
		}
		if closeCache == nil {
			t.Fatalf("%s: expected a close func", name)
		}
		closeCache()
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := parseLogLevel(raw); got != want {
			t.Fatalf("%q: expected %s, got %s", raw, want, got)
		}
	}
}
