package discovery

import (
	"context"

	"torrentstream/discovery/internal/domain"
)

// Catalog is the external title catalog. Implementations never fail: any
// upstream problem yields an empty result.
type Catalog interface {
	SearchMulti(ctx context.Context, text string) []domain.SearchHit
	SearchMovie(ctx context.Context, text string, year int) []domain.SearchHit
	SearchTV(ctx context.Context, text string, year int) []domain.SearchHit
	SearchPerson(ctx context.Context, name string) []domain.Person
	FindExactTitle(ctx context.Context, title string, mediaTypes []domain.MediaType) (domain.SearchHit, bool)
	Discover(ctx context.Context, query domain.DiscoverQuery) []domain.SearchHit
	GetSimilar(ctx context.Context, mediaType domain.MediaType, id int) []domain.SearchHit
	GetRecommendations(ctx context.Context, mediaType domain.MediaType, id int) []domain.SearchHit
	GetGenreMap(ctx context.Context, mediaType domain.MediaType) map[string]int
	GetDetails(ctx context.Context, mediaType domain.MediaType, id int) (domain.TitleDetails, bool)
}

// IntentExtractor turns a query into an Intent and never fails.
type IntentExtractor interface {
	ExtractIntent(ctx context.Context, query string) domain.Intent
}

// Mode is the retrieval strategy chosen for an intent.
type Mode string

const (
	ModeNone       Mode = "none"
	ModeExactTitle Mode = "exact_title"
	ModeSimilar    Mode = "similar"
	ModeGenreMood  Mode = "genre_mood"
	ModePeople     Mode = "people"
	ModeFallback   Mode = "fallback"
)

// SelectMode picks the first matching mode in priority order.
func SelectMode(in domain.Intent) Mode {
	hasFacets := len(in.Genres) > 0 || len(in.Moods) > 0
	switch {
	case len(in.Titles) == 1 && !hasFacets && len(in.People) == 0 && !in.WantsSimilar:
		return ModeExactTitle
	case len(in.Titles) > 0 && in.WantsSimilar:
		return ModeSimilar
	case len(in.Titles) == 0 && hasFacets:
		return ModeGenreMood
	case len(in.Titles) == 0 && len(in.People) > 0:
		return ModePeople
	default:
		return ModeFallback
	}
}
