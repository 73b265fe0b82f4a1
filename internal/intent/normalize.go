package intent

import (
	"regexp"
	"strconv"
	"strings"

	"torrentstream/discovery/internal/domain"
	"torrentstream/discovery/internal/lexicon"
)

const maxRequestedCount = 100

// Ordered: the first pattern that matches decides the count.
var countPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\btop\s+(\d+)\b`),
	regexp.MustCompile(`(?i)\bbest\s+(\d+)\b`),
	regexp.MustCompile(`(?i)\bgive\s+me\s+(\d+)\b`),
	regexp.MustCompile(`(?i)\bshow\s+me\s+(\d+)\b`),
	regexp.MustCompile(`(?i)\bfind\s+(\d+)\b`),
	regexp.MustCompile(`(?i)\b(\d+)\s+movies\b`),
	regexp.MustCompile(`(?i)\b(\d+)\s+shows\b`),
}

// CountFromText returns the requested result count mentioned in text, or 0
// when none is mentioned or the number is outside 1..100.
func CountFromText(text string) int {
	for _, pattern := range countPatterns {
		match := pattern.FindStringSubmatch(text)
		if len(match) < 2 {
			continue
		}
		return clampCount(match[1])
	}
	return 0
}

func clampCount(raw string) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 || value > maxRequestedCount {
		return 0
	}
	return value
}

func validCount(value *int) (int, bool) {
	if value == nil || *value < 1 || *value > maxRequestedCount {
		return 0, false
	}
	return *value, true
}

// normalize converts model output into an Intent. It reports false when the
// output carries no title, person, genre or mood.
func normalize(raw RawIntent, query string, lx *lexicon.Lexicon) (domain.Intent, bool) {
	out := domain.Intent{
		Titles:       dedupeFold(raw.Titles),
		People:       dedupeFold(raw.People),
		Genres:       []string{},
		Moods:        []string{},
		WantsSimilar: raw.WantsSimilar,
	}

	genreSeen := make(map[string]struct{})
	moodSeen := make(map[string]struct{})
	addGenre := func(name string) {
		if _, ok := genreSeen[name]; ok {
			return
		}
		genreSeen[name] = struct{}{}
		out.Genres = append(out.Genres, name)
	}
	addMood := func(name string) {
		if _, ok := moodSeen[name]; ok {
			return
		}
		moodSeen[name] = struct{}{}
		out.Moods = append(out.Moods, name)
	}

	for _, item := range raw.Genres {
		folded := lexicon.Fold(item)
		if folded == "" {
			continue
		}
		if name, ok := lx.CanonicalGenre(folded); ok {
			addGenre(name)
			continue
		}
		// Models regularly file moods under genres.
		if name, ok := lx.CanonicalMood(folded); ok {
			addMood(name)
			continue
		}
		addGenre(folded)
	}
	for _, item := range raw.Moods {
		folded := lexicon.Fold(item)
		if folded == "" {
			continue
		}
		if name, ok := lx.CanonicalMood(folded); ok {
			addMood(name)
			continue
		}
		if name, ok := lx.CanonicalGenre(folded); ok {
			addGenre(name)
			continue
		}
		addMood(folded)
	}

	mediaSeen := make(map[domain.MediaType]struct{})
	for _, item := range raw.MediaTypes {
		mediaType, ok := domain.NormalizeMediaType(item)
		if !ok {
			continue
		}
		if _, exists := mediaSeen[mediaType]; exists {
			continue
		}
		mediaSeen[mediaType] = struct{}{}
		out.MediaTypes = append(out.MediaTypes, mediaType)
	}
	if len(out.MediaTypes) == 0 {
		out.MediaTypes = append([]domain.MediaType(nil), domain.AllMediaTypes...)
	}

	out.YearFrom = positive(raw.YearFrom)
	out.YearTo = positive(raw.YearTo)
	if year := positive(raw.Year); year > 0 {
		if out.YearFrom == 0 {
			out.YearFrom = year
		}
		if out.YearTo == 0 {
			out.YearTo = year
		}
	}
	if out.YearFrom > 0 && out.YearTo > 0 && out.YearFrom > out.YearTo {
		out.YearFrom, out.YearTo = out.YearTo, out.YearFrom
	}
	out.RuntimeMaxMinutes = positive(raw.RuntimeMaxMinutes)

	if count, ok := validCount(raw.Count); ok {
		out.RequestedCount = count
	} else {
		out.RequestedCount = CountFromText(query)
	}

	return out, out.HasSignal()
}

func positive(value *int) int {
	if value == nil || *value <= 0 {
		return 0
	}
	return *value
}

// dedupeFold trims values and drops case- and accent-insensitive duplicates,
// keeping the first spelling seen.
func dedupeFold(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.Join(strings.Fields(value), " ")
		key := lexicon.Fold(value)
		if key == "" {
			continue
		}
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, value)
	}
	return out
}
