package discovery

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"torrentstream/discovery/internal/domain"
	"torrentstream/discovery/internal/lexicon"
)

const (
	similarMinRating   = 6.0
	genreMinVoteCount  = 50
	peopleMinVoteCount = 10
	runtimeEnrichLimit = 10
)

// Orchestrator picks a retrieval mode for an intent and fans out the
// catalog calls it needs. Branches never fail; a branch whose calls come
// back empty simply contributes no hits.
type Orchestrator struct {
	catalog Catalog
	lexicon *lexicon.Lexicon
	logger  *slog.Logger
}

type OrchestratorOption func(*Orchestrator)

func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func NewOrchestrator(catalog Catalog, lx *lexicon.Lexicon, opts ...OrchestratorOption) *Orchestrator {
	if lx == nil {
		lx = lexicon.New()
	}
	o := &Orchestrator{
		catalog: catalog,
		lexicon: lx,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Retrieve runs the mode selected for the intent and returns raw,
// unranked hits. query is the original text used by the fallback mode.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, in domain.Intent) (Mode, []domain.SearchHit) {
	mode := SelectMode(in)
	var hits []domain.SearchHit
	switch mode {
	case ModeExactTitle:
		hits = o.exactTitle(ctx, in)
	case ModeSimilar:
		hits = o.similar(ctx, in)
	case ModeGenreMood:
		hits = o.genreMood(ctx, in)
	case ModePeople:
		hits = o.people(ctx, in)
	default:
		hits = o.fallback(ctx, query, in)
	}

	if in.RuntimeMaxMinutes > 0 && (mode == ModeExactTitle || mode == ModeSimilar || mode == ModeFallback) {
		hits = o.enrichRuntime(ctx, hits)
	}
	o.logger.Debug("retrieval finished",
		slog.String("mode", string(mode)),
		slog.Int("hits", len(hits)),
	)
	return mode, hits
}

func (o *Orchestrator) exactTitle(ctx context.Context, in domain.Intent) []domain.SearchHit {
	hit, ok := o.catalog.FindExactTitle(ctx, in.Titles[0], in.MediaTypes)
	if !ok {
		return nil
	}
	if hit.Signals.Source == "" {
		hit.Signals.Source = domain.SourceExact
	}
	return []domain.SearchHit{hit}
}

func (o *Orchestrator) similar(ctx context.Context, in domain.Intent) []domain.SearchHit {
	wanted, single := in.SingleMediaType()
	col := newCollector()
	var seedMu sync.Mutex
	seeds := make(map[domain.HitKey]struct{})

	g, gctx := errgroup.WithContext(ctx)
	for i, title := range in.Titles {
		g.Go(func() error {
			seed, ok := o.seed(gctx, title, wanted, single)
			if !ok {
				o.logger.Debug("no seed title found", slog.String("title", title))
				return nil
			}
			seedMu.Lock()
			seeds[seed.Key()] = struct{}{}
			seedMu.Unlock()

			var similar, recommended []domain.SearchHit
			inner, ictx := errgroup.WithContext(gctx)
			inner.Go(func() error {
				similar = o.catalog.GetSimilar(ictx, seed.MediaType, seed.ID)
				return nil
			})
			inner.Go(func() error {
				recommended = o.catalog.GetRecommendations(ictx, seed.MediaType, seed.ID)
				return nil
			})
			_ = inner.Wait()

			hits := make([]domain.SearchHit, 0, len(similar)+len(recommended))
			hits = append(hits, tagHits(similar, domain.SourceSimilar, seed.Name)...)
			hits = append(hits, tagHits(recommended, domain.SourceRecommendation, seed.Name)...)
			col.add(i, hits)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.SearchHit, 0)
	for _, hit := range col.flatten() {
		if hit.Rating < similarMinRating {
			continue
		}
		if _, isSeed := seeds[hit.Key()]; isSeed {
			continue
		}
		if single && hit.MediaType != wanted {
			continue
		}
		out = append(out, hit)
	}
	return out
}

// seed resolves a title to the catalog entry used for similarity lookups.
// Movies are searched first unless only TV was requested.
func (o *Orchestrator) seed(ctx context.Context, title string, wanted domain.MediaType, single bool) (domain.SearchHit, bool) {
	order := []domain.MediaType{domain.MediaTypeMovie, domain.MediaTypeTV}
	if single && wanted == domain.MediaTypeTV {
		order = []domain.MediaType{domain.MediaTypeTV, domain.MediaTypeMovie}
	}
	folded := lexicon.Fold(title)
	for _, mediaType := range order {
		var results []domain.SearchHit
		if mediaType == domain.MediaTypeMovie {
			results = o.catalog.SearchMovie(ctx, title, 0)
		} else {
			results = o.catalog.SearchTV(ctx, title, 0)
		}
		if len(results) == 0 {
			continue
		}
		for _, candidate := range results {
			if lexicon.Fold(candidate.Name) == folded {
				return candidate, true
			}
		}
		return results[0], true
	}
	return domain.SearchHit{}, false
}

func (o *Orchestrator) genreMood(ctx context.Context, in domain.Intent) []domain.SearchHit {
	personIDs := o.resolvePeople(ctx, in.People)
	col := newCollector()
	g, gctx := errgroup.WithContext(ctx)
	for i, mediaType := range in.EffectiveMediaTypes() {
		g.Go(func() error {
			col.add(i, o.genreMoodFor(gctx, mediaType, in, personIDs))
			return nil
		})
	}
	_ = g.Wait()
	return col.flatten()
}

// genreMoodFor runs one discovery per explicit genre plus one OR-discovery
// for mood-derived genres and intersects them. An empty intersection falls
// back to a single discovery over the union of every requested genre.
func (o *Orchestrator) genreMoodFor(ctx context.Context, mediaType domain.MediaType, in domain.Intent, personIDs []int) []domain.SearchHit {
	genreMap := o.catalog.GetGenreMap(ctx, mediaType)
	if len(genreMap) == 0 {
		return nil
	}

	var sets [][]int
	requested := make([]int, 0, len(in.Genres)+len(in.Moods))
	seen := make(map[int]struct{})
	addRequested := func(id int) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		requested = append(requested, id)
	}

	explicit := make(map[int]struct{})
	for _, genre := range in.Genres {
		id, ok := o.catalogGenreID(genreMap, genre)
		if !ok {
			o.logger.Debug("genre has no catalog id",
				slog.String("genre", genre),
				slog.String("media_type", string(mediaType)),
			)
			continue
		}
		if _, dup := explicit[id]; dup {
			continue
		}
		explicit[id] = struct{}{}
		sets = append(sets, []int{id})
		addRequested(id)
	}

	var moodIDs []int
	moodSeen := make(map[int]struct{})
	for _, mood := range in.Moods {
		for _, genre := range o.lexicon.MoodGenres(mood) {
			id, ok := o.catalogGenreID(genreMap, genre)
			if !ok {
				continue
			}
			if _, dup := moodSeen[id]; dup {
				continue
			}
			moodSeen[id] = struct{}{}
			moodIDs = append(moodIDs, id)
			addRequested(id)
		}
	}
	if len(moodIDs) > 0 {
		sets = append(sets, moodIDs)
	}
	if len(sets) == 0 {
		return nil
	}

	base := domain.DiscoverQuery{
		MediaType:    mediaType,
		PersonIDs:    personIDs,
		YearFrom:     in.YearFrom,
		YearTo:       in.YearTo,
		MinVoteCount: genreMinVoteCount,
		SortBy:       domain.DefaultDiscoverSort,
	}
	if mediaType == domain.MediaTypeMovie {
		base.RuntimeMax = in.RuntimeMaxMinutes
	}

	results := make([][]domain.SearchHit, len(sets))
	g, gctx := errgroup.WithContext(ctx)
	for i, set := range sets {
		g.Go(func() error {
			query := base
			query.GenreIDs = set
			query.MatchAnyGenre = len(set) > 1
			results[i] = o.catalog.Discover(gctx, query)
			return nil
		})
	}
	_ = g.Wait()

	hits := intersectHits(results)
	for i := range hits {
		hits[i].Signals.MatchedAllGenres = true
	}
	if len(hits) == 0 && len(sets) > 1 {
		query := base
		query.GenreIDs = requested
		query.MatchAnyGenre = true
		hits = o.catalog.Discover(ctx, query)
		for i := range hits {
			hits[i].Signals.GenreUnionFallback = true
		}
	}

	for i := range hits {
		hits[i].Signals.Source = domain.SourceGenre
		hits[i].Signals.GenreOverlap = countOverlap(hits[i].Signals.GenreIDs, seen)
	}
	return hits
}

// catalogGenreID maps a genre name onto the media type's catalog genre id
// using the lexicon's catalog names in preference order.
func (o *Orchestrator) catalogGenreID(genreMap map[string]int, name string) (int, bool) {
	if canonical, ok := o.lexicon.CanonicalGenre(name); ok {
		if genre, ok := o.lexicon.Genre(canonical); ok {
			for _, catalogName := range genre.CatalogNames {
				if id, ok := genreMap[lexicon.Fold(catalogName)]; ok {
					return id, true
				}
			}
		}
	}
	id, ok := genreMap[lexicon.Fold(name)]
	return id, ok
}

func (o *Orchestrator) resolvePeople(ctx context.Context, names []string) []int {
	if len(names) == 0 {
		return nil
	}
	ids := make([]int, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			if people := o.catalog.SearchPerson(gctx, name); len(people) > 0 {
				ids[i] = people[0].ID
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	return out
}

func (o *Orchestrator) people(ctx context.Context, in domain.Intent) []domain.SearchHit {
	mediaTypes := in.EffectiveMediaTypes()
	col := newCollector()
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range in.People {
		g.Go(func() error {
			people := o.catalog.SearchPerson(gctx, name)
			if len(people) == 0 {
				o.logger.Debug("person not found", slog.String("name", name))
				return nil
			}
			personID := people[0].ID

			inner, ictx := errgroup.WithContext(gctx)
			for j, mediaType := range mediaTypes {
				inner.Go(func() error {
					query := domain.DiscoverQuery{
						MediaType:    mediaType,
						PersonIDs:    []int{personID},
						YearFrom:     in.YearFrom,
						YearTo:       in.YearTo,
						MinVoteCount: peopleMinVoteCount,
						SortBy:       domain.DefaultDiscoverSort,
					}
					if mediaType == domain.MediaTypeMovie {
						query.RuntimeMax = in.RuntimeMaxMinutes
					}
					col.add(i*len(mediaTypes)+j, tagHits(o.catalog.Discover(ictx, query), domain.SourcePerson, ""))
					return nil
				})
			}
			_ = inner.Wait()
			return nil
		})
	}
	_ = g.Wait()
	return col.flatten()
}

func (o *Orchestrator) fallback(ctx context.Context, query string, in domain.Intent) []domain.SearchHit {
	text := strings.TrimSpace(query)
	if text == "" {
		text = strings.Join(in.Titles, " ")
	}
	out := make([]domain.SearchHit, 0)
	for _, hit := range o.catalog.SearchMulti(ctx, text) {
		if hit.MediaType != domain.MediaTypeMovie && hit.MediaType != domain.MediaTypeTV {
			continue
		}
		if !in.AllowsMediaType(hit.MediaType) {
			continue
		}
		hit.Signals.Source = domain.SourceFallback
		out = append(out, hit)
	}
	return out
}

// enrichRuntime fills in runtimes for the first movie hits so the runtime
// ceiling can be scored.
func (o *Orchestrator) enrichRuntime(ctx context.Context, hits []domain.SearchHit) []domain.SearchHit {
	out := append([]domain.SearchHit(nil), hits...)
	targets := make([]int, 0, runtimeEnrichLimit)
	for i, hit := range out {
		if len(targets) == runtimeEnrichLimit {
			break
		}
		if hit.MediaType == domain.MediaTypeMovie && hit.Signals.RuntimeMinutes == 0 {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, index := range targets {
		g.Go(func() error {
			details, ok := o.catalog.GetDetails(gctx, domain.MediaTypeMovie, out[index].ID)
			if ok && details.RuntimeMinutes > 0 {
				out[index].Signals.RuntimeMinutes = details.RuntimeMinutes
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func tagHits(hits []domain.SearchHit, source domain.HitSource, seedTitle string) []domain.SearchHit {
	out := make([]domain.SearchHit, 0, len(hits))
	for _, hit := range hits {
		hit.Signals.Source = source
		if seedTitle != "" {
			hit.Signals.SeedTitle = seedTitle
		}
		out = append(out, hit)
	}
	return out
}

// intersectHits keeps hits of the first set whose key is present in every set.
func intersectHits(sets [][]domain.SearchHit) []domain.SearchHit {
	if len(sets) == 0 {
		return nil
	}
	out := make([]domain.SearchHit, 0, len(sets[0]))
	for _, hit := range sets[0] {
		inAll := true
		for _, other := range sets[1:] {
			if !containsKey(other, hit.Key()) {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, hit)
		}
	}
	return out
}

func containsKey(hits []domain.SearchHit, key domain.HitKey) bool {
	for _, hit := range hits {
		if hit.Key() == key {
			return true
		}
	}
	return false
}

func countOverlap(ids []int, requested map[int]struct{}) int {
	count := 0
	for _, id := range ids {
		if _, ok := requested[id]; ok {
			count++
		}
	}
	return count
}

// collector merges branch results under a mutex. flatten returns them in
// slot order so retrieval output does not depend on goroutine scheduling.
type collector struct {
	mu    sync.Mutex
	slots map[int][]domain.SearchHit
}

func newCollector() *collector {
	return &collector{slots: make(map[int][]domain.SearchHit)}
}

func (c *collector) add(slot int, hits []domain.SearchHit) {
	if len(hits) == 0 {
		return
	}
	c.mu.Lock()
	c.slots[slot] = append(c.slots[slot], hits...)
	c.mu.Unlock()
}

func (c *collector) flatten() []domain.SearchHit {
	c.mu.Lock()
	defer c.mu.Unlock()
	slots := make([]int, 0, len(c.slots))
	for slot := range c.slots {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	out := make([]domain.SearchHit, 0)
	for _, slot := range slots {
		out = append(out, c.slots[slot]...)
	}
	return out
}
