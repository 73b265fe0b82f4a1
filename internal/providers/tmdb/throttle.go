package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const headerRetryAfter = "Retry-After"

// ThrottleConfig controls the single retry after an HTTP 429.
type ThrottleConfig struct {
	// DefaultWait applies when the response carries no usable Retry-After.
	DefaultWait time.Duration
	// MaxWait caps any advertised Retry-After.
	MaxWait time.Duration
}

func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		DefaultWait: time.Second,
		MaxWait:     10 * time.Second,
	}
}

type throttleError struct {
	retryAfter time.Duration
}

func (e *throttleError) Error() string {
	if e.retryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", ErrThrottled, e.retryAfter)
	}
	return ErrThrottled.Error()
}

func (e *throttleError) Unwrap() error {
	return ErrThrottled
}

// withThrottleRetry runs fn and, when it was throttled, waits once and runs
// it again. A second throttle is returned as is.
func withThrottleRetry(ctx context.Context, cfg ThrottleConfig, onThrottle func(), fn func() ([]byte, error)) ([]byte, error) {
	body, err := fn()
	var throttled *throttleError
	if !errors.As(err, &throttled) {
		return body, err
	}
	if onThrottle != nil {
		onThrottle()
	}

	wait := throttled.retryAfter
	if wait <= 0 {
		wait = cfg.DefaultWait
	}
	if cfg.MaxWait > 0 && wait > cfg.MaxWait {
		wait = cfg.MaxWait
	}

	timer := time.NewTimer(wait)
	select {
	case <-ctx.Done():
		timer.Stop()
		return nil, ctx.Err()
	case <-timer.C:
	}

	body, err = fn()
	if errors.As(err, &throttled) && onThrottle != nil {
		onThrottle()
	}
	return body, err
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(header http.Header, now time.Time) time.Duration {
	value := strings.TrimSpace(header.Get(headerRetryAfter))
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := at.Sub(now); wait > 0 {
			return wait
		}
	}
	return 0
}
