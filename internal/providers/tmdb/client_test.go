package tmdb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"torrentstream/discovery/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*Config)) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := Config{
		APIKey:            "test-key",
		BaseURL:           server.URL,
		Client:            server.Client(),
		RequestsPerSecond: 1000,
		Throttle:          ThrottleConfig{DefaultWait: time.Millisecond, MaxWait: 5 * time.Millisecond},
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewClient(cfg)
}

func TestSearchMultiParsesMoviesAndTVOnly(t *testing.T) {
	var gotQuery, gotKey, gotLanguage string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/multi" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("query")
		gotKey = r.URL.Query().Get("api_key")
		gotLanguage = r.URL.Query().Get("language")
		_, _ = io.WriteString(w, `{"page":1,"results":[
			{"id":27205,"media_type":"movie","title":"Inception","overview":"Dreams.","vote_average":8.4,"vote_count":35000,"popularity":90.5,"release_date":"2010-07-15","poster_path":"/inc.jpg","genre_ids":[28,878]},
			{"id":525,"media_type":"person","name":"Leonardo DiCaprio"},
			{"id":1,"media_type":"tv","name":"Inception: The Series","first_air_date":"2020-01-01","vote_average":5.1}
		]}`)
	}, nil)

	hits := client.SearchMulti(context.Background(), " Inception ")
	if gotQuery != "Inception" || gotKey != "test-key" || gotLanguage != "en-US" {
		t.Fatalf("unexpected params query=%q key=%q language=%q", gotQuery, gotKey, gotLanguage)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	first := hits[0]
	if first.ID != 27205 || first.MediaType != domain.MediaTypeMovie || first.Name != "Inception" {
		t.Fatalf("unexpected first hit: %+v", first)
	}
	if first.Year != 2010 || first.Rating != 8.4 || first.PosterPath != "/inc.jpg" {
		t.Fatalf("unexpected first hit fields: %+v", first)
	}
	if first.Signals.VoteCount != 35000 || len(first.Signals.GenreIDs) != 2 {
		t.Fatalf("unexpected signals: %+v", first.Signals)
	}
	if hits[1].MediaType != domain.MediaTypeTV || hits[1].Year != 2020 {
		t.Fatalf("unexpected tv hit: %+v", hits[1])
	}
}

func TestThrottledRequestIsRetriedOnce(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"results":[{"id":7,"title":"Heat","release_date":"1995-12-15"}]}`)
	}, nil)

	hits := client.SearchMovie(context.Background(), "Heat", 0)
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
	if len(hits) != 1 || hits[0].Name != "Heat" || hits[0].MediaType != domain.MediaTypeMovie {
		t.Fatalf("expected Heat after retry, got %+v", hits)
	}
	if diag := client.Diagnostics(); diag.ThrottledCount != 1 {
		t.Fatalf("expected throttled count 1, got %d", diag.ThrottledCount)
	}
}

func TestSecondThrottleYieldsEmptyResult(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, nil)

	hits := client.SearchTV(context.Background(), "Dark", 0)
	if len(hits) != 0 {
		t.Fatalf("expected empty result, got %d hits", len(hits))
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected exactly one retry (2 calls), got %d", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	header := http.Header{}
	header.Set("Retry-After", "3")
	if got := parseRetryAfter(header, now); got != 3*time.Second {
		t.Fatalf("expected 3s, got %s", got)
	}
	header.Set("Retry-After", now.Add(5*time.Second).Format(http.TimeFormat))
	if got := parseRetryAfter(header, now); got != 5*time.Second {
		t.Fatalf("expected 5s, got %s", got)
	}
	header.Set("Retry-After", "soon")
	if got := parseRetryAfter(header, now); got != 0 {
		t.Fatalf("expected 0 for garbage, got %s", got)
	}
}

func TestPermitPoolCapsConcurrentRequests(t *testing.T) {
	var inFlight, peak atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		current := inFlight.Add(1)
		for {
			prev := peak.Load()
			if current <= prev || peak.CompareAndSwap(prev, current) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = io.WriteString(w, `{"results":[]}`)
	}, func(cfg *Config) {
		cfg.MaxConcurrency = 2
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client.SearchMovie(context.Background(), fmt.Sprintf("title %d", i), 0)
		}(i)
	}
	wg.Wait()
	if got := peak.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent requests, got %d", got)
	}
}

func TestDiscoverBuildsQueryParameters(t *testing.T) {
	var got map[string]string
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		got = map[string]string{}
		for key := range r.URL.Query() {
			got[key] = r.URL.Query().Get(key)
		}
		_, _ = io.WriteString(w, `{"results":[{"id":11,"title":"Alien","release_date":"1979-05-25","vote_average":8.1}]}`)
	}, nil)

	hits := client.Discover(context.Background(), domain.DiscoverQuery{
		MediaType:     domain.MediaTypeMovie,
		GenreIDs:      []int{27, 878},
		MatchAnyGenre: true,
		PersonIDs:     []int{5},
		YearFrom:      1970,
		YearTo:        1989,
		RuntimeMax:    120,
		MinVoteCount:  50,
	})

	if path != "/discover/movie" {
		t.Fatalf("expected /discover/movie, got %s", path)
	}
	want := map[string]string{
		"with_genres":              "27|878",
		"with_people":              "5",
		"primary_release_date.gte": "1970-01-01",
		"primary_release_date.lte": "1989-12-31",
		"with_runtime.lte":         "120",
		"vote_count.gte":           "50",
		"sort_by":                  domain.DefaultDiscoverSort,
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("param %s: expected %q, got %q", key, value, got[key])
		}
	}
	if len(hits) != 1 || !hits[0].Signals.RuntimeFiltered || len(hits[0].Signals.PersonIDs) != 1 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestDiscoverTVWithPeopleUsesCredits(t *testing.T) {
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = io.WriteString(w, `{
			"cast":[
				{"id":1,"name":"Old Show","first_air_date":"1990-01-01","vote_count":500,"popularity":3},
				{"id":2,"name":"Big Show","first_air_date":"2015-01-01","vote_count":900,"popularity":50},
				{"id":3,"name":"Tiny Show","first_air_date":"2016-01-01","vote_count":2,"popularity":80}
			],
			"crew":[
				{"id":2,"name":"Big Show","first_air_date":"2015-01-01","vote_count":900,"popularity":50},
				{"id":4,"name":"Other Show","first_air_date":"2012-01-01","vote_count":40,"popularity":10}
			]
		}`)
	}, nil)

	hits := client.Discover(context.Background(), domain.DiscoverQuery{
		MediaType:    domain.MediaTypeTV,
		PersonIDs:    []int{17419},
		YearFrom:     2000,
		MinVoteCount: 10,
	})
	if path != "/person/17419/tv_credits" {
		t.Fatalf("expected tv credits path, got %s", path)
	}
	if len(hits) != 2 || hits[0].ID != 2 || hits[1].ID != 4 {
		t.Fatalf("expected [2 4] by popularity, got %+v", hits)
	}
	if hits[0].MediaType != domain.MediaTypeTV || hits[0].Signals.PersonIDs[0] != 17419 {
		t.Fatalf("unexpected hit: %+v", hits[0])
	}
}

func TestGetGenreMapFoldsNamesAndMemoises(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/genre/tv/list" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"genres":[{"id":10765,"name":"Sci-Fi & Fantasy"},{"id":80,"name":"Crime"}]}`)
	}, nil)

	first := client.GetGenreMap(context.Background(), domain.MediaTypeTV)
	second := client.GetGenreMap(context.Background(), domain.MediaTypeTV)
	if first["sci fi fantasy"] != 10765 || first["crime"] != 80 {
		t.Fatalf("unexpected genre map: %v", first)
	}
	if len(second) != 2 {
		t.Fatalf("expected memoised map, got %v", second)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
}

func TestFindExactTitle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("query") {
		case "Amelie":
			_, _ = io.WriteString(w, `{"results":[
				{"id":9,"media_type":"movie","title":"Amélie","original_title":"Le Fabuleux Destin d'Amélie Poulain"}
			]}`)
		case "Dark Knight":
			_, _ = io.WriteString(w, `{"results":[
				{"id":155,"media_type":"movie","title":"The Dark Knight"},
				{"id":49026,"media_type":"movie","title":"The Dark Knight Rises"}
			]}`)
		default:
			_, _ = io.WriteString(w, `{"results":[{"id":3,"media_type":"movie","title":"Completely Different"}]}`)
		}
	}, nil)

	hit, ok := client.FindExactTitle(context.Background(), "Amelie", nil)
	if !ok || hit.ID != 9 || hit.Signals.Source != domain.SourceExact {
		t.Fatalf("expected exact match, got %+v (%v)", hit, ok)
	}

	hit, ok = client.FindExactTitle(context.Background(), "Dark Knight", nil)
	if !ok || hit.ID != 155 || hit.Signals.Source != domain.SourceTitle {
		t.Fatalf("expected closest title match 155, got %+v (%v)", hit, ok)
	}
	if hit.Signals.TitleSimilarity <= 0.5 || hit.Signals.TitleSimilarity >= 1 {
		t.Fatalf("unexpected similarity %v", hit.Signals.TitleSimilarity)
	}

	if _, ok := client.FindExactTitle(context.Background(), "Nothing Alike", nil); ok {
		t.Fatalf("expected no match")
	}

	if _, ok := client.FindExactTitle(context.Background(), "Amelie", []domain.MediaType{domain.MediaTypeTV}); ok {
		t.Fatalf("expected movie candidate to be filtered out for tv-only lookup")
	}
}

func TestRepeatedFailuresBlockCatalog(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	for i := 0; i < catalogFailureThreshold; i++ {
		client.SearchMovie(context.Background(), fmt.Sprintf("q%d", i), 0)
	}
	client.SearchMovie(context.Background(), "after block", 0)

	if got := calls.Load(); got != catalogFailureThreshold {
		t.Fatalf("expected %d upstream calls, got %d", catalogFailureThreshold, got)
	}
	diag := client.Diagnostics()
	if diag.BlockedUntil == nil || diag.ConsecutiveFailures != catalogFailureThreshold {
		t.Fatalf("expected blocked catalog, got %+v", diag)
	}
	if !strings.Contains(diag.LastError, "500") {
		t.Fatalf("expected last error to mention status, got %q", diag.LastError)
	}
}

func TestExponentialBlockDuration(t *testing.T) {
	cases := map[int]time.Duration{
		1: 2 * time.Minute,
		3: 2 * time.Minute,
		4: 4 * time.Minute,
		5: 8 * time.Minute,
		6: 15 * time.Minute,
		9: 15 * time.Minute,
	}
	for failures, want := range cases {
		if got := exponentialBlockDuration(failures); got != want {
			t.Fatalf("failures=%d: expected %s, got %s", failures, want, got)
		}
	}
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.items[key]
	return body, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, body []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = body
	return nil
}

func TestResponseCacheServesRepeatedRequests(t *testing.T) {
	var calls atomic.Int32
	cache := &memoryCache{items: map[string][]byte{}}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"results":[{"id":1,"title":"Up","release_date":"2009-05-28"}]}`)
	}, func(cfg *Config) {
		cfg.Cache = cache
	})

	first := client.GetSimilar(context.Background(), domain.MediaTypeMovie, 14160)
	second := client.GetSimilar(context.Background(), domain.MediaTypeMovie, 14160)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one hit from both calls, got %d and %d", len(first), len(second))
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
	if _, ok := cache.items["/movie/14160/similar?language=en-US&page=1"]; !ok {
		t.Fatalf("expected credential-free cache key, got %v", cache.items)
	}
}

func TestDisabledClientMakesNoRequests(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, func(cfg *Config) {
		cfg.APIKey = ""
	})

	if hits := client.SearchMulti(context.Background(), "anything"); len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
	if _, ok := client.GetDetails(context.Background(), domain.MediaTypeMovie, 1); ok {
		t.Fatalf("expected no details")
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no upstream calls, got %d", calls.Load())
	}
}

func TestGetDetailsRuntime(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tv/1396" {
			_, _ = io.WriteString(w, `{"id":1396,"name":"Breaking Bad","episode_run_time":[47],"genres":[{"id":18,"name":"Drama"}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":313369,"title":"La La Land","runtime":128,"vote_count":16000,"genres":[{"id":35,"name":"Comedy"},{"id":10749,"name":"Romance"}]}`)
	}, nil)

	movie, ok := client.GetDetails(context.Background(), domain.MediaTypeMovie, 313369)
	if !ok || movie.RuntimeMinutes != 128 || len(movie.Genres) != 2 || movie.Name != "La La Land" {
		t.Fatalf("unexpected movie details: %+v", movie)
	}
	show, ok := client.GetDetails(context.Background(), domain.MediaTypeTV, 1396)
	if !ok || show.RuntimeMinutes != 47 || show.GenreIDs[0] != 18 {
		t.Fatalf("unexpected tv details: %+v", show)
	}
}

func TestSearchPersonSkipsInvalidIDs(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/person" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("query")
		_, _ = io.WriteString(w, `{"results":[
			{"id":525,"name":"Christopher Nolan","popularity":12.5},
			{"id":0,"name":"Nobody"}
		]}`)
	}, nil)

	people := client.SearchPerson(context.Background(), "  Christopher Nolan ")
	if gotQuery != "Christopher Nolan" {
		t.Fatalf("expected trimmed query, got %q", gotQuery)
	}
	if len(people) != 1 || people[0].ID != 525 || people[0].Popularity != 12.5 {
		t.Fatalf("unexpected people: %+v", people)
	}
	if empty := client.SearchPerson(context.Background(), "   "); empty != nil {
		t.Fatalf("expected nil for blank name, got %+v", empty)
	}
}

func TestCancelledCallerDoesNotFailSharedRequest(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(150 * time.Millisecond)
		_, _ = io.WriteString(w, `{"results":[{"id":27205,"media_type":"movie","title":"Inception","release_date":"2010-07-15"}]}`)
	}, nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan []domain.SearchHit, 1)
	go func() {
		firstDone <- client.SearchMulti(firstCtx, "Inception")
	}()
	<-started

	secondDone := make(chan []domain.SearchHit, 1)
	go func() {
		secondDone <- client.SearchMulti(context.Background(), "Inception")
	}()
	time.Sleep(30 * time.Millisecond)
	cancelFirst()

	if hits := <-firstDone; len(hits) != 0 {
		t.Fatalf("expected no hits for the cancelled caller, got %d", len(hits))
	}
	if hits := <-secondDone; len(hits) != 1 {
		t.Fatalf("expected 1 hit for the live caller, got %d", len(hits))
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected identical requests to share one upstream call, got %d", got)
	}
	if diag := client.Diagnostics(); diag.ConsecutiveFailures != 0 {
		t.Fatalf("expected no recorded failures, got %d", diag.ConsecutiveFailures)
	}
}

func TestThrottleWaitReleasesPermit(t *testing.T) {
	var slowCalls atomic.Int32
	throttled := make(chan struct{}, 1)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "Slow" && slowCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			throttled <- struct{}{}
			return
		}
		_, _ = io.WriteString(w, `{"results":[{"id":1,"title":"`+r.URL.Query().Get("query")+`"}]}`)
	}, func(cfg *Config) {
		cfg.MaxConcurrency = 1
		cfg.Throttle = ThrottleConfig{DefaultWait: 400 * time.Millisecond, MaxWait: time.Second}
	})

	slowDone := make(chan []domain.SearchHit, 1)
	go func() {
		slowDone <- client.SearchMovie(context.Background(), "Slow", 0)
	}()
	<-throttled

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if hits := client.SearchMovie(ctx, "Fast", 0); len(hits) != 1 {
		t.Fatalf("expected the permit to be free during the retry wait, got %d hits", len(hits))
	}
	if hits := <-slowDone; len(hits) != 1 {
		t.Fatalf("expected the throttled request to succeed on retry, got %d hits", len(hits))
	}
}
