package tmdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"torrentstream/discovery/internal/domain"
	"torrentstream/discovery/internal/lexicon"
)

const exactTitleMinSimilarity = 0.5

func (c *Client) SearchMulti(ctx context.Context, text string) []domain.SearchHit {
	return toHits(c.searchMultiItems(ctx, text), "")
}

func (c *Client) searchMultiItems(ctx context.Context, text string) []listItem {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var resp pagedResponse
	params := url.Values{
		"query":         {text},
		"include_adult": {"false"},
		"page":          {"1"},
	}
	if err := c.getJSON(ctx, "search_multi", "/search/multi", params, &resp); err != nil {
		c.warn(ctx, "search_multi", err, slog.String("query", text))
		return nil
	}
	return resp.Results
}

// SearchMovie searches movie titles; year narrows by primary release year when non-zero.
func (c *Client) SearchMovie(ctx context.Context, text string, year int) []domain.SearchHit {
	return c.searchTitles(ctx, "search_movie", "/search/movie", "primary_release_year", domain.MediaTypeMovie, text, year)
}

// SearchTV searches TV titles; year narrows by first air year when non-zero.
func (c *Client) SearchTV(ctx context.Context, text string, year int) []domain.SearchHit {
	return c.searchTitles(ctx, "search_tv", "/search/tv", "first_air_date_year", domain.MediaTypeTV, text, year)
}

func (c *Client) searchTitles(ctx context.Context, operation, path, yearParam string, mediaType domain.MediaType, text string, year int) []domain.SearchHit {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	params := url.Values{
		"query":         {text},
		"include_adult": {"false"},
		"page":          {"1"},
	}
	if year > 0 {
		params.Set(yearParam, strconv.Itoa(year))
	}
	var resp pagedResponse
	if err := c.getJSON(ctx, operation, path, params, &resp); err != nil {
		c.warn(ctx, operation, err, slog.String("query", text))
		return nil
	}
	return toHits(resp.Results, mediaType)
}

func (c *Client) SearchPerson(ctx context.Context, name string) []domain.Person {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	params := url.Values{
		"query":         {name},
		"include_adult": {"false"},
		"page":          {"1"},
	}
	var resp personSearchResponse
	if err := c.getJSON(ctx, "search_person", "/search/person", params, &resp); err != nil {
		c.warn(ctx, "search_person", err, slog.String("name", name))
		return nil
	}
	people := make([]domain.Person, 0, len(resp.Results))
	for _, item := range resp.Results {
		if item.ID <= 0 {
			continue
		}
		people = append(people, domain.Person{ID: item.ID, Name: item.Name, Popularity: item.Popularity})
	}
	return people
}

// FindExactTitle looks the title up through multi search. A candidate whose
// folded display or original title equals the folded query is an exact
// match; otherwise the closest candidate above the similarity floor is
// returned as a title match.
func (c *Client) FindExactTitle(ctx context.Context, title string, mediaTypes []domain.MediaType) (domain.SearchHit, bool) {
	folded := lexicon.Fold(title)
	if folded == "" {
		return domain.SearchHit{}, false
	}

	var best domain.SearchHit
	bestScore := 0.0
	for _, item := range c.searchMultiItems(ctx, title) {
		hit, ok := item.hit("")
		if !ok || !allowsMediaType(mediaTypes, hit.MediaType) {
			continue
		}
		original := item.originalTitle()
		if lexicon.Fold(hit.Name) == folded || (original != "" && lexicon.Fold(original) == folded) {
			hit.Signals.Source = domain.SourceExact
			hit.Signals.TitleSimilarity = 1
			return hit, true
		}
		score := lexicon.TokenSimilarity(title, hit.Name)
		if original != "" {
			if alt := lexicon.TokenSimilarity(title, original); alt > score {
				score = alt
			}
		}
		if score > bestScore {
			best = hit
			bestScore = score
		}
	}
	if bestScore <= exactTitleMinSimilarity {
		return domain.SearchHit{}, false
	}
	best.Signals.Source = domain.SourceTitle
	best.Signals.TitleSimilarity = bestScore
	return best, true
}

// Discover runs a catalog discovery query. TV discovery has no people
// filter upstream, so person queries for TV walk the people's TV credits.
func (c *Client) Discover(ctx context.Context, query domain.DiscoverQuery) []domain.SearchHit {
	switch query.MediaType {
	case domain.MediaTypeMovie:
		return c.discover(ctx, "/discover/movie", "primary_release_date", query)
	case domain.MediaTypeTV:
		if len(query.PersonIDs) > 0 {
			return c.personTVCredits(ctx, query)
		}
		return c.discover(ctx, "/discover/tv", "first_air_date", query)
	default:
		return nil
	}
}

func (c *Client) discover(ctx context.Context, path, dateParam string, query domain.DiscoverQuery) []domain.SearchHit {
	params := url.Values{
		"include_adult": {"false"},
		"page":          {"1"},
	}
	sortBy := strings.TrimSpace(query.SortBy)
	if sortBy == "" {
		sortBy = domain.DefaultDiscoverSort
	}
	params.Set("sort_by", sortBy)
	if len(query.GenreIDs) > 0 {
		separator := ","
		if query.MatchAnyGenre {
			separator = "|"
		}
		params.Set("with_genres", joinInts(query.GenreIDs, separator))
	}
	if len(query.PersonIDs) > 0 && query.MediaType == domain.MediaTypeMovie {
		params.Set("with_people", joinInts(query.PersonIDs, ","))
	}
	if query.YearFrom > 0 {
		params.Set(dateParam+".gte", fmt.Sprintf("%04d-01-01", query.YearFrom))
	}
	if query.YearTo > 0 {
		params.Set(dateParam+".lte", fmt.Sprintf("%04d-12-31", query.YearTo))
	}
	runtimeFiltered := false
	if query.MediaType == domain.MediaTypeMovie {
		if query.RuntimeMin > 0 {
			params.Set("with_runtime.gte", strconv.Itoa(query.RuntimeMin))
		}
		if query.RuntimeMax > 0 {
			params.Set("with_runtime.lte", strconv.Itoa(query.RuntimeMax))
			runtimeFiltered = true
		}
	}
	if query.MinVoteCount > 0 {
		params.Set("vote_count.gte", strconv.Itoa(query.MinVoteCount))
	}

	operation := "discover_" + string(query.MediaType)
	var resp pagedResponse
	if err := c.getJSON(ctx, operation, path, params, &resp); err != nil {
		c.warn(ctx, operation, err, slog.String("params", params.Encode()))
		return nil
	}
	hits := toHits(resp.Results, query.MediaType)
	for i := range hits {
		hits[i].Signals.PersonIDs = append([]int(nil), query.PersonIDs...)
		hits[i].Signals.RuntimeFiltered = runtimeFiltered
	}
	return hits
}

const personCreditsLimit = 20

func (c *Client) personTVCredits(ctx context.Context, query domain.DiscoverQuery) []domain.SearchHit {
	seen := make(map[int]struct{})
	var items []listItem
	for _, personID := range query.PersonIDs {
		var resp creditsResponse
		path := fmt.Sprintf("/person/%d/tv_credits", personID)
		if err := c.getJSON(ctx, "person_tv_credits", path, nil, &resp); err != nil {
			c.warn(ctx, "person_tv_credits", err, slog.Int("person_id", personID))
			continue
		}
		for _, item := range append(resp.Cast, resp.Crew...) {
			if _, exists := seen[item.ID]; exists {
				continue
			}
			if !creditMatches(item, query) {
				continue
			}
			seen[item.ID] = struct{}{}
			items = append(items, item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Popularity > items[j].Popularity
	})
	if len(items) > personCreditsLimit {
		items = items[:personCreditsLimit]
	}
	hits := toHits(items, domain.MediaTypeTV)
	for i := range hits {
		hits[i].Signals.PersonIDs = append([]int(nil), query.PersonIDs...)
	}
	return hits
}

func creditMatches(item listItem, query domain.DiscoverQuery) bool {
	year := item.year()
	if query.YearFrom > 0 && (year == 0 || year < query.YearFrom) {
		return false
	}
	if query.YearTo > 0 && (year == 0 || year > query.YearTo) {
		return false
	}
	if query.MinVoteCount > 0 && item.VoteCount < query.MinVoteCount {
		return false
	}
	if len(query.GenreIDs) == 0 {
		return true
	}
	have := make(map[int]struct{}, len(item.GenreIDs))
	for _, id := range item.GenreIDs {
		have[id] = struct{}{}
	}
	matched := 0
	for _, id := range query.GenreIDs {
		if _, ok := have[id]; ok {
			matched++
		}
	}
	if query.MatchAnyGenre {
		return matched > 0
	}
	return matched == len(query.GenreIDs)
}

func (c *Client) GetSimilar(ctx context.Context, mediaType domain.MediaType, id int) []domain.SearchHit {
	return c.related(ctx, "similar", mediaType, id)
}

func (c *Client) GetRecommendations(ctx context.Context, mediaType domain.MediaType, id int) []domain.SearchHit {
	return c.related(ctx, "recommendations", mediaType, id)
}

func (c *Client) related(ctx context.Context, kind string, mediaType domain.MediaType, id int) []domain.SearchHit {
	if id <= 0 || (mediaType != domain.MediaTypeMovie && mediaType != domain.MediaTypeTV) {
		return nil
	}
	operation := kind + "_" + string(mediaType)
	path := fmt.Sprintf("/%s/%d/%s", mediaType, id, kind)
	var resp pagedResponse
	if err := c.getJSON(ctx, operation, path, url.Values{"page": {"1"}}, &resp); err != nil {
		c.warn(ctx, operation, err, slog.Int("id", id))
		return nil
	}
	return toHits(resp.Results, mediaType)
}

// GetGenreMap returns folded catalog genre name -> genre id for a media type.
// The vocabulary changes rarely, so it is memoised per client.
func (c *Client) GetGenreMap(ctx context.Context, mediaType domain.MediaType) map[string]int {
	if mediaType != domain.MediaTypeMovie && mediaType != domain.MediaTypeTV {
		return map[string]int{}
	}
	now := c.now()
	c.genreMu.Lock()
	entry, ok := c.genreMaps[mediaType]
	c.genreMu.Unlock()
	if ok && now.Sub(entry.fetchedAt) < genreMapTTL {
		return copyGenreMap(entry.ids)
	}

	operation := "genres_" + string(mediaType)
	var resp genreListResponse
	if err := c.getJSON(ctx, operation, fmt.Sprintf("/genre/%s/list", mediaType), nil, &resp); err != nil {
		c.warn(ctx, operation, err)
		return map[string]int{}
	}
	ids := make(map[string]int, len(resp.Genres))
	for _, genre := range resp.Genres {
		if name := lexicon.Fold(genre.Name); name != "" && genre.ID > 0 {
			ids[name] = genre.ID
		}
	}
	if len(ids) > 0 {
		c.genreMu.Lock()
		c.genreMaps[mediaType] = genreMapEntry{ids: ids, fetchedAt: now}
		c.genreMu.Unlock()
	}
	return copyGenreMap(ids)
}

func (c *Client) GetDetails(ctx context.Context, mediaType domain.MediaType, id int) (domain.TitleDetails, bool) {
	if id <= 0 || (mediaType != domain.MediaTypeMovie && mediaType != domain.MediaTypeTV) {
		return domain.TitleDetails{}, false
	}
	operation := "details_" + string(mediaType)
	var resp detailsResponse
	if err := c.getJSON(ctx, operation, fmt.Sprintf("/%s/%d", mediaType, id), nil, &resp); err != nil {
		c.warn(ctx, operation, err, slog.Int("id", id))
		return domain.TitleDetails{}, false
	}
	if resp.ID == 0 {
		resp.ID = id
	}
	return resp.details(mediaType), true
}

func toHits(items []listItem, fallbackType domain.MediaType) []domain.SearchHit {
	hits := make([]domain.SearchHit, 0, len(items))
	for _, item := range items {
		if hit, ok := item.hit(fallbackType); ok {
			hits = append(hits, hit)
		}
	}
	return hits
}

func allowsMediaType(allowed []domain.MediaType, mediaType domain.MediaType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, item := range allowed {
		if item == mediaType {
			return true
		}
	}
	return false
}

func joinInts(values []int, separator string) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		parts = append(parts, strconv.Itoa(value))
	}
	return strings.Join(parts, separator)
}

func copyGenreMap(ids map[string]int) map[string]int {
	out := make(map[string]int, len(ids))
	for name, id := range ids {
		out[name] = id
	}
	return out
}
