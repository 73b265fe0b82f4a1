package discovery

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"torrentstream/discovery/internal/domain"
	"torrentstream/discovery/internal/lexicon"
)

const (
	defaultMaxRanked = 50

	titleSimilarityWeight = 10.0
	keywordMatchPoints    = 8.0
	keywordMatchMax       = 24.0
	genreOverlapPoints    = 10.0
	allGenresPoints       = 6.0
	personMentionPoints   = 10.0
	personSourcePoints    = 20.0
	yearInRangePoints     = 15.0
	yearNearPoints        = 8.0
	yearLoosePoints       = 3.0
	recentPoints          = 3.0
	runtimePoints         = 4.0
	ratingMaxPoints       = 20.0
	ratingScale           = 3.5
	reasonFragments       = 3
)

var sourceWeights = map[domain.HitSource]float64{
	domain.SourceExact:          100,
	domain.SourceTitle:          80,
	domain.SourceSimilar:        60,
	domain.SourceRecommendation: 56,
	domain.SourcePerson:         44,
	domain.SourceGenre:          40,
	domain.SourceFallback:       20,
}

// Ranker scores, deduplicates and orders hits. It is pure: the same hits
// and intent always produce the same output.
type Ranker struct {
	lexicon       *lexicon.Lexicon
	referenceYear int
	maxResults    int
}

type RankerOption func(*Ranker)

// WithReferenceYear sets the year "recent" is measured against.
func WithReferenceYear(year int) RankerOption {
	return func(r *Ranker) {
		r.referenceYear = year
	}
}

func WithMaxResults(limit int) RankerOption {
	return func(r *Ranker) {
		if limit > 0 {
			r.maxResults = limit
		}
	}
}

func NewRanker(lx *lexicon.Lexicon, opts ...RankerOption) *Ranker {
	if lx == nil {
		lx = lexicon.New()
	}
	r := &Ranker{lexicon: lx, maxResults: defaultMaxRanked}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type contribution struct {
	points   float64
	fragment string
}

// RankAndMerge scores every hit, keeps the best-scoring hit per
// (media type, id), sorts and truncates.
func (r *Ranker) RankAndMerge(hits []domain.SearchHit, in domain.Intent) []domain.RankedItem {
	if len(hits) == 0 {
		return []domain.RankedItem{}
	}

	terms := r.requestedTerms(in)
	best := make(map[domain.HitKey]int, len(hits))
	items := make([]domain.RankedItem, 0, len(hits))
	for _, hit := range hits {
		item := r.score(hit, in, terms)
		key := hit.Key()
		if index, exists := best[key]; exists {
			if item.Score > items[index].Score {
				items[index] = item
			}
			continue
		}
		best[key] = len(items)
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return rankedLess(items[i], items[j])
	})
	if len(items) > r.maxResults {
		items = items[:r.maxResults]
	}
	return items
}

func rankedLess(left, right domain.RankedItem) bool {
	if cmp := compareFloat64(left.Score, right.Score); cmp != 0 {
		return cmp > 0
	}
	if cmp := compareFloat64(left.Hit.Rating, right.Hit.Rating); cmp != 0 {
		return cmp > 0
	}
	if cmp := compareInt(left.Hit.Signals.VoteCount, right.Hit.Signals.VoteCount); cmp != 0 {
		return cmp > 0
	}
	if cmp := compareFloat64(left.Hit.Signals.Popularity, right.Hit.Signals.Popularity); cmp != 0 {
		return cmp > 0
	}
	if cmp := compareInt(left.Hit.Year, right.Hit.Year); cmp != 0 {
		return cmp > 0
	}
	if left.Hit.ID != right.Hit.ID {
		return left.Hit.ID < right.Hit.ID
	}
	return left.Hit.MediaType < right.Hit.MediaType
}

func compareFloat64(left, right float64) int {
	switch {
	case left > right:
		return 1
	case left < right:
		return -1
	default:
		return 0
	}
}

func compareInt(left, right int) int {
	switch {
	case left > right:
		return 1
	case left < right:
		return -1
	default:
		return 0
	}
}

type requestedTerm struct {
	name     string
	keywords []string
}

func (r *Ranker) requestedTerms(in domain.Intent) []requestedTerm {
	terms := make([]requestedTerm, 0, len(in.Genres)+len(in.Moods))
	add := func(name string, keywords []string) {
		if len(keywords) == 0 {
			keywords = []string{lexicon.Fold(name)}
		}
		terms = append(terms, requestedTerm{name: name, keywords: keywords})
	}
	for _, genre := range in.Genres {
		canonical, ok := r.lexicon.CanonicalGenre(genre)
		if !ok {
			canonical = genre
		}
		add(genre, r.lexicon.Keywords(canonical))
	}
	for _, mood := range in.Moods {
		canonical, ok := r.lexicon.CanonicalMood(mood)
		if !ok {
			canonical = mood
		}
		add(mood, r.lexicon.Keywords(canonical))
	}
	return terms
}

func (r *Ranker) score(hit domain.SearchHit, in domain.Intent, terms []requestedTerm) domain.RankedItem {
	text := lexicon.Fold(hit.Name + " " + hit.Overview)
	parts := []contribution{
		sourceContribution(hit, in),
		termContribution(text, terms),
		genreIDContribution(hit),
		allGenresContribution(hit),
		peopleContribution(hit, in, text),
		r.yearContribution(hit, in),
		runtimeContribution(hit, in),
		ratingContribution(hit),
	}

	total := 0.0
	for _, part := range parts {
		total += part.points
	}
	return domain.RankedItem{
		Hit:       hit,
		Score:     total,
		Reasoning: reasoning(parts),
	}
}

func sourceContribution(hit domain.SearchHit, in domain.Intent) contribution {
	points := sourceWeights[hit.Signals.Source]
	switch hit.Signals.Source {
	case domain.SourceExact:
		return contribution{points, "matches the title you asked for"}
	case domain.SourceTitle:
		return contribution{points + titleSimilarityWeight*clamp01(hit.Signals.TitleSimilarity), "closely matches the title you asked for"}
	case domain.SourceSimilar:
		return contribution{points, "is similar to " + seedOr(hit)}
	case domain.SourceRecommendation:
		return contribution{points, "is recommended for fans of " + seedOr(hit)}
	case domain.SourceGenre:
		if hit.Signals.GenreUnionFallback {
			return contribution{points, "is the closest match across " + joinWords(append(append([]string(nil), in.Genres...), in.Moods...))}
		}
		return contribution{points, "fits " + joinWords(append(append([]string(nil), in.Genres...), in.Moods...))}
	case domain.SourcePerson:
		// The people factor explains person hits.
		return contribution{points, ""}
	case domain.SourceFallback:
		return contribution{points, "matches your search"}
	default:
		return contribution{points, ""}
	}
}

func seedOr(hit domain.SearchHit) string {
	if hit.Signals.SeedTitle != "" {
		return hit.Signals.SeedTitle
	}
	return "what you liked"
}

func termContribution(text string, terms []requestedTerm) contribution {
	points := 0.0
	var matched []string
	for _, term := range terms {
		if !lexicon.MatchesAny(text, term.keywords) {
			continue
		}
		points += keywordMatchPoints
		matched = append(matched, term.name)
	}
	if points > keywordMatchMax {
		points = keywordMatchMax
	}
	if len(matched) == 0 {
		return contribution{}
	}
	return contribution{points, "has " + joinWords(matched) + " themes"}
}

func genreIDContribution(hit domain.SearchHit) contribution {
	if hit.Signals.GenreOverlap == 0 {
		return contribution{}
	}
	return contribution{genreOverlapPoints, "is tagged with your genres"}
}

func allGenresContribution(hit domain.SearchHit) contribution {
	if !hit.Signals.MatchedAllGenres {
		return contribution{}
	}
	return contribution{allGenresPoints, "matches every genre you asked for"}
}

func peopleContribution(hit domain.SearchHit, in domain.Intent, text string) contribution {
	points := 0.0
	var mentioned []string
	for _, person := range in.People {
		folded := lexicon.Fold(person)
		if folded == "" {
			continue
		}
		if lexicon.MatchesAny(text, []string{folded}) {
			points += personMentionPoints
			mentioned = append(mentioned, person)
		}
	}
	if hit.Signals.Source == domain.SourcePerson {
		points += personSourcePoints
		if len(in.People) > 0 {
			return contribution{points, "features " + joinWords(in.People)}
		}
		return contribution{points, "features the people you named"}
	}
	if len(mentioned) == 0 {
		return contribution{}
	}
	return contribution{points, "mentions " + joinWords(mentioned)}
}

func (r *Ranker) yearContribution(hit domain.SearchHit, in domain.Intent) contribution {
	if hit.Year <= 0 {
		return contribution{}
	}
	if !in.HasYearConstraint() {
		if r.referenceYear > 0 && absInt(r.referenceYear-hit.Year) <= 3 {
			return contribution{recentPoints, "is recent"}
		}
		return contribution{}
	}

	from, to := in.YearFrom, in.YearTo
	if from <= 0 {
		from = math.MinInt32
	}
	if to <= 0 {
		to = math.MaxInt32
	}
	year := strconv.Itoa(hit.Year)
	if hit.Year >= from && hit.Year <= to {
		return contribution{yearInRangePoints, "was released in " + year}
	}
	distance := from - hit.Year
	if hit.Year > to {
		distance = hit.Year - to
	}
	switch {
	case distance <= 2:
		return contribution{yearNearPoints, "was released close to your time frame (" + year + ")"}
	case distance <= 5:
		return contribution{yearLoosePoints, "was released near your time frame (" + year + ")"}
	default:
		return contribution{}
	}
}

func runtimeContribution(hit domain.SearchHit, in domain.Intent) contribution {
	limit := in.RuntimeMaxMinutes
	if limit <= 0 {
		return contribution{}
	}
	runtime := hit.Signals.RuntimeMinutes
	if runtime > 0 && runtime <= limit {
		return contribution{runtimePoints, fmt.Sprintf("runs %d minutes", runtime)}
	}
	if runtime == 0 && hit.Signals.RuntimeFiltered {
		return contribution{runtimePoints, fmt.Sprintf("runs under %d minutes", limit)}
	}
	return contribution{}
}

// ratingContribution is monotonic in rating and saturates towards 20.
func ratingContribution(hit domain.SearchHit) contribution {
	if hit.Rating <= 0 {
		return contribution{}
	}
	points := ratingMaxPoints * (1 - math.Exp(-hit.Rating/ratingScale))
	return contribution{points, fmt.Sprintf("is rated %.1f/10", hit.Rating)}
}

// reasoning joins the fragments of the largest contributions.
func reasoning(parts []contribution) string {
	candidates := make([]contribution, 0, len(parts))
	for _, part := range parts {
		if part.fragment != "" {
			candidates = append(candidates, part)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].points > candidates[j].points
	})
	if len(candidates) > reasonFragments {
		candidates = candidates[:reasonFragments]
	}
	if len(candidates) == 0 {
		return "Because it matches your search."
	}
	fragments := make([]string, 0, len(candidates))
	for _, part := range candidates {
		fragments = append(fragments, part.fragment)
	}
	return "Because it " + joinWords(fragments) + "."
}

// joinWords renders "a", "a and b", "a, b and c".
func joinWords(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	default:
		return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
	}
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func absInt(value int) int {
	if value < 0 {
		return -value
	}
	return value
}
