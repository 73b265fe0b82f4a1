package discovery

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"torrentstream/discovery/internal/domain"
	"torrentstream/discovery/internal/intent"
	"torrentstream/discovery/internal/lexicon"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newKeywordService(catalog Catalog) *Service {
	lx := lexicon.New()
	extractor := intent.NewExtractor(lx,
		intent.WithLanguageModel(intent.NewKeywordModel(lx)),
		intent.WithLogger(discardLogger()),
	)
	return NewService(extractor, catalog, lx,
		WithLogger(discardLogger()),
		WithRanker(NewRanker(lx, WithReferenceYear(2024))),
	)
}

func resultNames(resp domain.DiscoverResponse) []string {
	names := make([]string, 0, len(resp.Results))
	for _, result := range resp.Results {
		names = append(names, result.Name)
	}
	return names
}

func TestDiscoverExactTitle(t *testing.T) {
	catalog := newFakeCatalog()
	inception := movie(27205, "Inception", 8.4, 2010)
	inception.PosterPath = "/inception.jpg"
	inception.Signals.Source = domain.SourceExact
	catalog.exact["inception"] = inception

	resp := newKeywordService(catalog).Discover(context.Background(), "Inception")

	if len(resp.Results) != 1 {
		t.Fatalf("expected exactly one result, got %v", resultNames(resp))
	}
	got := resp.Results[0]
	if got.CatalogID != 27205 || got.Name != "Inception" || got.MediaType != domain.MediaTypeMovie {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got.ThumbnailURL != "https://image.tmdb.org/t/p/w500/inception.jpg" {
		t.Fatalf("unexpected thumbnail: %s", got.ThumbnailURL)
	}
	if calls := catalog.recorded(); len(calls) != 1 || calls[0] != "FindExactTitle" {
		t.Fatalf("expected only the exact lookup, got %v", calls)
	}
}

func TestDiscoverMoviesLikeLaLaLand(t *testing.T) {
	catalog := newFakeCatalog()
	seed := movie(313369, "La La Land", 7.9, 2016)
	catalog.movies["la la land"] = []domain.SearchHit{seed}
	catalog.similar[seed.Key()] = []domain.SearchHit{
		movie(244786, "Whiplash", 8.4, 2014),
		movie(1, "Forgettable", 5.2, 2016),
		show(2, "Glee", 6.8, 2009),
	}
	catalog.recommended[seed.Key()] = []domain.SearchHit{
		movie(244786, "Whiplash", 8.4, 2014),
		movie(198277, "Begin Again", 7.3, 2013),
		seed,
	}

	resp := newKeywordService(catalog).Discover(context.Background(), "movies like La La Land")

	names := resultNames(resp)
	if len(names) != 2 || names[0] != "Whiplash" || names[1] != "Begin Again" {
		t.Fatalf("expected Whiplash then Begin Again, got %v", names)
	}
	if !strings.Contains(resp.Results[0].Reasoning, "is similar to La La Land") {
		t.Fatalf("unexpected reasoning: %q", resp.Results[0].Reasoning)
	}
	for _, result := range resp.Results {
		if result.MediaType != domain.MediaTypeMovie || result.Rating < similarMinRating {
			t.Fatalf("unexpected result: %+v", result)
		}
	}
}

func TestDiscoverTopFiveHorrorMovies(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.genres[domain.MediaTypeMovie] = movieGenreMap()
	catalog.discover = func(q domain.DiscoverQuery) []domain.SearchHit {
		hits := make([]domain.SearchHit, 0, 8)
		for i := 0; i < 8; i++ {
			hits = append(hits, withGenres(movie(100+i, "Night "+string(rune('A'+i)), 8.0-0.2*float64(i), 1980), 27))
		}
		return hits
	}

	resp := newKeywordService(catalog).Discover(context.Background(), "top 5 horror movies")

	if len(resp.Results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(resp.Results))
	}
	if resp.Results[0].CatalogID != 100 {
		t.Fatalf("expected the best rated first, got %+v", resp.Results[0])
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].RelevanceScore > resp.Results[i-1].RelevanceScore {
			t.Fatalf("expected descending scores, got %v", resp.Results)
		}
	}
	queries := catalog.discoverQueries()
	if len(queries) != 1 {
		t.Fatalf("expected a single movie discovery, got %d", len(queries))
	}
	q := queries[0]
	if q.MediaType != domain.MediaTypeMovie || len(q.GenreIDs) != 1 || q.GenreIDs[0] != 27 || q.MatchAnyGenre {
		t.Fatalf("unexpected discover query: %+v", q)
	}
}

func TestDiscoverEmptyQuery(t *testing.T) {
	catalog := newFakeCatalog()
	extractor := &stubExtractor{}
	service := NewService(extractor, catalog, nil, WithLogger(discardLogger()))

	for _, query := range []string{"", "   \t"} {
		resp := service.Discover(context.Background(), query)
		if resp.Results == nil || len(resp.Results) != 0 {
			t.Fatalf("expected empty non-nil results, got %#v", resp.Results)
		}
		body, err := json.Marshal(resp)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(body) != `{"results":[]}` {
			t.Fatalf("expected empty results array, got %s", body)
		}
	}
	if extractor.calls != 0 || len(catalog.recorded()) != 0 {
		t.Fatalf("expected no calls, got extractor=%d catalog=%v", extractor.calls, catalog.recorded())
	}
}

func TestDiscoverGrittyCrimeDramas(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.genres[domain.MediaTypeMovie] = movieGenreMap()
	catalog.genres[domain.MediaTypeTV] = map[string]int{"crime": 80, "drama": 18, "mystery": 9648}
	catalog.discover = func(q domain.DiscoverQuery) []domain.SearchHit {
		mk := func(id int, name string, genres ...int) domain.SearchHit {
			hit := domain.SearchHit{ID: id, MediaType: q.MediaType, Name: name, Rating: 7.8, Year: 2008}
			hit.Signals.GenreIDs = genres
			return hit
		}
		shared := []domain.SearchHit{mk(1, "The Wire", 80, 18), mk(3, "Zodiac", 80, 18, 53)}
		if q.MatchAnyGenre {
			return append(shared, mk(5, "Se7en", 53))
		}
		switch q.GenreIDs[0] {
		case 80:
			return append(shared, mk(2, "Ronin", 80))
		case 18:
			return append(shared, mk(4, "Moonlight", 18))
		}
		return nil
	}

	resp := newKeywordService(catalog).Discover(context.Background(), "gritty crime dramas")

	if len(resp.Results) != 4 {
		t.Fatalf("expected the two shared titles per media type, got %v", resultNames(resp))
	}
	for _, result := range resp.Results {
		if result.CatalogID != 1 && result.CatalogID != 3 {
			t.Fatalf("unexpected title outside the intersection: %+v", result)
		}
		if !strings.Contains(result.Reasoning, "matches every genre you asked for") &&
			!strings.Contains(result.Reasoning, "is tagged with your genres") {
			t.Fatalf("expected genre reasoning, got %q", result.Reasoning)
		}
	}
}

func TestDiscoverCancelledContextReturnsEmpty(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.genres[domain.MediaTypeMovie] = movieGenreMap()
	extractor := &stubExtractor{intent: domain.Intent{Genres: []string{"horror"}}}
	service := NewService(extractor, catalog, nil, WithLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := service.Discover(ctx, "horror")

	if resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("expected empty results, got %+v", resp.Results)
	}
}

func TestDiscoverHonoursDefaultLimit(t *testing.T) {
	catalog := newFakeCatalog()
	hits := make([]domain.SearchHit, 0, 30)
	for i := 1; i <= 30; i++ {
		hits = append(hits, movie(i, "Heat", 7.0, 2000))
	}
	catalog.multi["heat ronin"] = hits
	extractor := &stubExtractor{intent: domain.Intent{Titles: []string{"Heat", "Ronin"}}}

	resp := NewService(extractor, catalog, nil, WithLogger(discardLogger()), WithDefaultLimit(7)).
		Discover(context.Background(), "heat ronin")
	if len(resp.Results) != 7 {
		t.Fatalf("expected 7 results, got %d", len(resp.Results))
	}
}

func TestSuggest(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.multi["dune"] = []domain.SearchHit{
		{ID: 438631, MediaType: domain.MediaTypeMovie, Name: "Dune", Year: 2021, PosterPath: "/dune.jpg", Rating: 7.8},
		{ID: 841, MediaType: domain.MediaTypeMovie, Name: "Dune", Year: 1984},
		{ID: 90228, MediaType: domain.MediaTypeTV, Name: "Dune: Prophecy", Year: 2024},
	}
	service := NewService(&stubExtractor{}, catalog, nil, WithLogger(discardLogger()))

	got := service.Suggest(context.Background(), "dune", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].Poster != "https://image.tmdb.org/t/p/w500/dune.jpg" || got[1].Poster != "" {
		t.Fatalf("unexpected posters: %+v", got)
	}
	if empty := service.Suggest(context.Background(), " ", 5); empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty suggestions, got %#v", empty)
	}
}

func TestAssemble(t *testing.T) {
	items := []domain.RankedItem{
		{Hit: domain.SearchHit{ID: 1, MediaType: domain.MediaTypeMovie, Name: "One", PosterPath: "/one.jpg"}, Score: 87.456, Reasoning: "Because it is one."},
		{Hit: domain.SearchHit{ID: 2, MediaType: domain.MediaTypeTV, Name: "Two"}, Score: 50.001},
		{Hit: domain.SearchHit{ID: 3, MediaType: domain.MediaTypeTV, Name: "Three"}, Score: 10},
	}

	resp := Assemble(items, domain.Intent{RequestedCount: 2}, 20)
	if len(resp.Results) != 2 {
		t.Fatalf("expected requested count to apply, got %d", len(resp.Results))
	}
	if resp.Results[0].RelevanceScore != 87.46 || resp.Results[1].RelevanceScore != 50 {
		t.Fatalf("expected rounded scores, got %+v", resp.Results)
	}
	if resp.Results[0].ThumbnailURL != PosterBaseURL+"/one.jpg" || resp.Results[1].ThumbnailURL != "" {
		t.Fatalf("unexpected thumbnails: %+v", resp.Results)
	}
	if got := Assemble(items, domain.Intent{}, 1); len(got.Results) != 1 {
		t.Fatalf("expected default limit, got %d", len(got.Results))
	}
	if got := Assemble(nil, domain.Intent{}, 20); got.Results == nil {
		t.Fatalf("expected non-nil results")
	}
}

func TestCatalogDiagnosticsWithoutReporter(t *testing.T) {
	service := NewService(&stubExtractor{}, newFakeCatalog(), nil)
	if got := service.CatalogDiagnostics(); len(got) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", got)
	}
}
