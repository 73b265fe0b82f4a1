package discovery

import (
	"math"
	"strings"

	"torrentstream/discovery/internal/domain"
)

const (
	PosterBaseURL = "https://image.tmdb.org/t/p/w500"

	DefaultResultLimit = 20
)

// Assemble maps ranked items onto the wire shape. The requested count wins
// over defaultLimit; the results slice is never nil.
func Assemble(items []domain.RankedItem, in domain.Intent, defaultLimit int) domain.DiscoverResponse {
	limit := defaultLimit
	if in.RequestedCount > 0 {
		limit = in.RequestedCount
	}
	if limit <= 0 {
		limit = DefaultResultLimit
	}
	if len(items) > limit {
		items = items[:limit]
	}

	resp := domain.DiscoverResponse{Results: make([]domain.Result, 0, len(items))}
	for _, item := range items {
		hit := item.Hit
		resp.Results = append(resp.Results, domain.Result{
			CatalogID:      hit.ID,
			Name:           hit.Name,
			MediaType:      hit.MediaType,
			ThumbnailURL:   PosterURL(hit.PosterPath),
			Rating:         hit.Rating,
			Overview:       hit.Overview,
			Year:           hit.Year,
			RelevanceScore: roundScore(item.Score),
			Reasoning:      item.Reasoning,
		})
	}
	return resp
}

// PosterURL turns a catalog poster path into an absolute image URL.
func PosterURL(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return PosterBaseURL + path
}

func roundScore(score float64) float64 {
	return math.Round(score*100) / 100
}
