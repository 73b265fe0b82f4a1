package discovery

import (
	"context"
	"sync"

	"torrentstream/discovery/internal/domain"
	"torrentstream/discovery/internal/lexicon"
)

// fakeCatalog is an in-memory Catalog that records every call. Like the
// real adapter it returns nothing once the context is done.
type fakeCatalog struct {
	mu    sync.Mutex
	calls []string

	multi       map[string][]domain.SearchHit
	movies      map[string][]domain.SearchHit
	shows       map[string][]domain.SearchHit
	people      map[string][]domain.Person
	exact       map[string]domain.SearchHit
	similar     map[domain.HitKey][]domain.SearchHit
	recommended map[domain.HitKey][]domain.SearchHit
	genres      map[domain.MediaType]map[string]int
	details     map[domain.HitKey]domain.TitleDetails
	discover    func(domain.DiscoverQuery) []domain.SearchHit

	queries []domain.DiscoverQuery
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		multi:       map[string][]domain.SearchHit{},
		movies:      map[string][]domain.SearchHit{},
		shows:       map[string][]domain.SearchHit{},
		people:      map[string][]domain.Person{},
		exact:       map[string]domain.SearchHit{},
		similar:     map[domain.HitKey][]domain.SearchHit{},
		recommended: map[domain.HitKey][]domain.SearchHit{},
		genres:      map[domain.MediaType]map[string]int{},
		details:     map[domain.HitKey]domain.TitleDetails{},
	}
}

func (f *fakeCatalog) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeCatalog) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeCatalog) countCalls(call string) int {
	count := 0
	for _, recorded := range f.recorded() {
		if recorded == call {
			count++
		}
	}
	return count
}

func (f *fakeCatalog) discoverQueries() []domain.DiscoverQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.DiscoverQuery(nil), f.queries...)
}

func copyHits(hits []domain.SearchHit) []domain.SearchHit {
	return append([]domain.SearchHit(nil), hits...)
}

func (f *fakeCatalog) SearchMulti(ctx context.Context, text string) []domain.SearchHit {
	f.record("SearchMulti")
	if ctx.Err() != nil {
		return nil
	}
	return copyHits(f.multi[lexicon.Fold(text)])
}

func (f *fakeCatalog) SearchMovie(ctx context.Context, text string, _ int) []domain.SearchHit {
	f.record("SearchMovie")
	if ctx.Err() != nil {
		return nil
	}
	return copyHits(f.movies[lexicon.Fold(text)])
}

func (f *fakeCatalog) SearchTV(ctx context.Context, text string, _ int) []domain.SearchHit {
	f.record("SearchTV")
	if ctx.Err() != nil {
		return nil
	}
	return copyHits(f.shows[lexicon.Fold(text)])
}

func (f *fakeCatalog) SearchPerson(ctx context.Context, name string) []domain.Person {
	f.record("SearchPerson")
	if ctx.Err() != nil {
		return nil
	}
	return append([]domain.Person(nil), f.people[lexicon.Fold(name)]...)
}

func (f *fakeCatalog) FindExactTitle(ctx context.Context, title string, mediaTypes []domain.MediaType) (domain.SearchHit, bool) {
	f.record("FindExactTitle")
	if ctx.Err() != nil {
		return domain.SearchHit{}, false
	}
	hit, ok := f.exact[lexicon.Fold(title)]
	if !ok {
		return domain.SearchHit{}, false
	}
	if len(mediaTypes) > 0 {
		allowed := false
		for _, mediaType := range mediaTypes {
			if mediaType == hit.MediaType {
				allowed = true
			}
		}
		if !allowed {
			return domain.SearchHit{}, false
		}
	}
	return hit, true
}

func (f *fakeCatalog) Discover(ctx context.Context, query domain.DiscoverQuery) []domain.SearchHit {
	f.record("Discover")
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if ctx.Err() != nil || f.discover == nil {
		return nil
	}
	return copyHits(f.discover(query))
}

func (f *fakeCatalog) GetSimilar(ctx context.Context, mediaType domain.MediaType, id int) []domain.SearchHit {
	f.record("GetSimilar")
	if ctx.Err() != nil {
		return nil
	}
	return copyHits(f.similar[domain.HitKey{MediaType: mediaType, ID: id}])
}

func (f *fakeCatalog) GetRecommendations(ctx context.Context, mediaType domain.MediaType, id int) []domain.SearchHit {
	f.record("GetRecommendations")
	if ctx.Err() != nil {
		return nil
	}
	return copyHits(f.recommended[domain.HitKey{MediaType: mediaType, ID: id}])
}

func (f *fakeCatalog) GetGenreMap(ctx context.Context, mediaType domain.MediaType) map[string]int {
	f.record("GetGenreMap")
	if ctx.Err() != nil {
		return map[string]int{}
	}
	out := make(map[string]int, len(f.genres[mediaType]))
	for name, id := range f.genres[mediaType] {
		out[name] = id
	}
	return out
}

func (f *fakeCatalog) GetDetails(ctx context.Context, mediaType domain.MediaType, id int) (domain.TitleDetails, bool) {
	f.record("GetDetails")
	if ctx.Err() != nil {
		return domain.TitleDetails{}, false
	}
	details, ok := f.details[domain.HitKey{MediaType: mediaType, ID: id}]
	return details, ok
}

type stubExtractor struct {
	intent domain.Intent
	calls  int
}

func (s *stubExtractor) ExtractIntent(context.Context, string) domain.Intent {
	s.calls++
	return s.intent
}

func movie(id int, name string, rating float64, year int) domain.SearchHit {
	return domain.SearchHit{ID: id, MediaType: domain.MediaTypeMovie, Name: name, Rating: rating, Year: year}
}

func show(id int, name string, rating float64, year int) domain.SearchHit {
	return domain.SearchHit{ID: id, MediaType: domain.MediaTypeTV, Name: name, Rating: rating, Year: year}
}

func withGenres(hit domain.SearchHit, ids ...int) domain.SearchHit {
	hit.Signals.GenreIDs = ids
	return hit
}

func containsInt(values []int, want int) bool {
	for _, value := range values {
		if value == want {
			return true
		}
	}
	return false
}

func hasAllInts(values []int, want ...int) bool {
	for _, id := range want {
		if !containsInt(values, id) {
			return false
		}
	}
	return true
}
