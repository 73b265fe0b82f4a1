package tmdb

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"torrentstream/discovery/internal/domain"
	"torrentstream/discovery/internal/metrics"
)

const (
	catalogFailureThreshold = 3
	catalogBlockBase        = 2 * time.Minute
	catalogBlockMax         = 15 * time.Minute
)

// health tracks consecutive failures and blocks the catalog for an
// exponentially growing window once the threshold is reached.
type health struct {
	mu                  sync.Mutex
	consecutiveFailures int
	blockedUntil        time.Time
	lastError           string
	lastSuccessAt       time.Time
	lastFailureAt       time.Time
	lastLatency         time.Duration
	lastOperation       string
	totalRequests       int64
	totalFailures       int64
	throttledCount      int64
}

func (h *health) blocked(now time.Time) (bool, time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.blockedUntil.IsZero() || now.After(h.blockedUntil) {
		return false, time.Time{}
	}
	return true, h.blockedUntil
}

func (h *health) throttled() {
	h.mu.Lock()
	h.throttledCount++
	h.mu.Unlock()
	metrics.CatalogThrottledTotal.Inc()
}

func (h *health) record(operation string, err error, latency time.Duration, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.totalRequests++
	h.lastOperation = operation
	if latency > 0 {
		h.lastLatency = latency
		metrics.CatalogRequestDuration.WithLabelValues(operation).Observe(latency.Seconds())
	}

	if err == nil || errors.Is(err, ErrNotFound) {
		h.consecutiveFailures = 0
		h.blockedUntil = time.Time{}
		h.lastError = ""
		h.lastSuccessAt = now
		status := "ok"
		if err != nil {
			status = "not_found"
		}
		metrics.CatalogRequestsTotal.WithLabelValues(operation, status).Inc()
		metrics.CatalogAvailable.Set(1)
		return
	}

	h.consecutiveFailures++
	h.totalFailures++
	h.lastFailureAt = now
	h.lastError = err.Error()

	status := "error"
	switch {
	case errors.Is(err, ErrThrottled):
		status = "throttled"
	case isTimeoutLikeError(err):
		status = "timeout"
	}
	metrics.CatalogRequestsTotal.WithLabelValues(operation, status).Inc()

	if h.consecutiveFailures >= catalogFailureThreshold {
		h.blockedUntil = now.Add(exponentialBlockDuration(h.consecutiveFailures))
		metrics.CatalogAvailable.Set(0)
	}
}

// exponentialBlockDuration is base × 2^(failures - threshold), capped at 15min.
func exponentialBlockDuration(consecutiveFailures int) time.Duration {
	exponent := consecutiveFailures - catalogFailureThreshold
	if exponent < 0 {
		exponent = 0
	}
	d := catalogBlockBase
	for i := 0; i < exponent; i++ {
		d *= 2
		if d > catalogBlockMax {
			return catalogBlockMax
		}
	}
	return d
}

func isTimeoutLikeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "timeout") || strings.Contains(value, "deadline exceeded")
}

func (h *health) snapshot(name string, enabled bool) domain.CatalogDiagnostics {
	h.mu.Lock()
	defer h.mu.Unlock()

	item := domain.CatalogDiagnostics{
		Name:                name,
		Enabled:             enabled,
		ConsecutiveFailures: h.consecutiveFailures,
		LastError:           h.lastError,
		LastLatencyMS:       h.lastLatency.Milliseconds(),
		LastOperation:       h.lastOperation,
		TotalRequests:       h.totalRequests,
		TotalFailures:       h.totalFailures,
		ThrottledCount:      h.throttledCount,
	}
	if !h.blockedUntil.IsZero() {
		blockedUntil := h.blockedUntil
		item.BlockedUntil = &blockedUntil
	}
	if !h.lastSuccessAt.IsZero() {
		lastSuccessAt := h.lastSuccessAt
		item.LastSuccessAt = &lastSuccessAt
	}
	if !h.lastFailureAt.IsZero() {
		lastFailureAt := h.lastFailureAt
		item.LastFailureAt = &lastFailureAt
	}
	return item
}
