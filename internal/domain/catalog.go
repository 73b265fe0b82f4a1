package domain

import (
	"strconv"
	"time"
)

// HitSource names the retrieval path that produced a hit.
type HitSource string

const (
	SourceExact          HitSource = "exact"
	SourceTitle          HitSource = "title"
	SourceSimilar        HitSource = "similar"
	SourceRecommendation HitSource = "recommendation"
	SourcePerson         HitSource = "person"
	SourceGenre          HitSource = "genre"
	SourceFallback       HitSource = "fallback"
)

// Signals carries retrieval-side evidence consumed by ranking only.
type Signals struct {
	Source   HitSource
	GenreIDs []int
	// GenreOverlap counts requested catalog genre ids present in GenreIDs.
	GenreOverlap       int
	TitleSimilarity    float64
	PersonIDs          []int
	VoteCount          int
	Popularity         float64
	RuntimeMinutes     int
	RuntimeFiltered    bool
	MatchedAllGenres   bool
	GenreUnionFallback bool
	SeedTitle          string
}

// SearchHit is one unscored candidate from a single catalog call.
type SearchHit struct {
	ID         int
	MediaType  MediaType
	Name       string
	Overview   string
	Rating     float64
	Year       int
	PosterPath string
	Signals    Signals
}

// HitKey is the deduplication identity of a hit.
type HitKey struct {
	MediaType MediaType
	ID        int
}

func (k HitKey) String() string {
	return string(k.MediaType) + ":" + strconv.Itoa(k.ID)
}

func (h SearchHit) Key() HitKey {
	return HitKey{MediaType: h.MediaType, ID: h.ID}
}

// RankedItem is a scored, explained hit. Only the ranker builds these.
type RankedItem struct {
	Hit       SearchHit
	Score     float64
	Reasoning string
}

// DiscoverQuery is the parameter bag for a catalog discovery call.
type DiscoverQuery struct {
	MediaType     MediaType
	GenreIDs      []int
	MatchAnyGenre bool
	PersonIDs     []int
	YearFrom      int
	YearTo        int
	RuntimeMin    int
	RuntimeMax    int
	MinVoteCount  int
	SortBy        string
}

const DefaultDiscoverSort = "popularity.desc"

type Person struct {
	ID         int
	Name       string
	Popularity float64
}

type TitleDetails struct {
	ID             int
	MediaType      MediaType
	Name           string
	Genres         []string
	GenreIDs       []int
	RuntimeMinutes int
	VoteCount      int
}

// CatalogDiagnostics is the health snapshot of the catalog adapter.
type CatalogDiagnostics struct {
	Name                string     `json:"name"`
	Enabled             bool       `json:"enabled"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	BlockedUntil        *time.Time `json:"blockedUntil,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs,omitempty"`
	LastOperation       string     `json:"lastOperation,omitempty"`
	TotalRequests       int64      `json:"totalRequests,omitempty"`
	TotalFailures       int64      `json:"totalFailures,omitempty"`
	ThrottledCount      int64      `json:"throttledCount,omitempty"`
}
