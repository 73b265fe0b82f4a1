// Package lexicon holds the read-only vocabulary shared by intent extraction,
// retrieval and ranking: canonical genres, their aliases and keyword sets,
// catalog genre names, and the mood to genre table.
//
// A Lexicon is built once with New and never mutated afterwards, so it is
// safe to share between goroutines.
package lexicon

import (
	"sort"
	"strings"
)

type Genre struct {
	Name string
	// CatalogNames are the catalog vocabulary names in preference order;
	// retrieval uses the first one present in a media type's genre map.
	CatalogNames []string
	Aliases      []string
	Keywords     []string
}

type Mood struct {
	Name     string
	Aliases  []string
	Genres   []string
	Keywords []string
}

type Lexicon struct {
	genres     map[string]Genre
	moods      map[string]Mood
	genreAlias map[string]string
	moodAlias  map[string]string
	genreNames []string
	moodNames  []string
}

func New() *Lexicon {
	return build(defaultGenres(), defaultMoods())
}

func build(genres []Genre, moods []Mood) *Lexicon {
	lx := &Lexicon{
		genres:     make(map[string]Genre, len(genres)),
		moods:      make(map[string]Mood, len(moods)),
		genreAlias: make(map[string]string),
		moodAlias:  make(map[string]string),
	}
	for _, genre := range genres {
		name := Fold(genre.Name)
		genre.Name = name
		genre.Keywords = foldAll(genre.Keywords)
		lx.genres[name] = genre
		lx.genreAlias[name] = name
		for _, alias := range genre.Aliases {
			lx.genreAlias[Fold(alias)] = name
		}
		lx.genreNames = append(lx.genreNames, name)
	}
	// Catalog names only fill gaps so "Mystery" listed under horror for TV
	// never shadows the mystery genre itself.
	for _, genre := range genres {
		for _, catalogName := range genre.CatalogNames {
			if _, exists := lx.genreAlias[Fold(catalogName)]; !exists {
				lx.genreAlias[Fold(catalogName)] = Fold(genre.Name)
			}
		}
	}
	for _, mood := range moods {
		name := Fold(mood.Name)
		mood.Name = name
		keywords := append([]string{mood.Name}, mood.Keywords...)
		for _, genreName := range mood.Genres {
			keywords = append(keywords, lx.genres[Fold(genreName)].Keywords...)
		}
		mood.Keywords = uniqueStrings(foldAll(keywords))
		mood.Genres = foldAll(mood.Genres)
		lx.moods[name] = mood
		lx.moodAlias[name] = name
		for _, alias := range mood.Aliases {
			lx.moodAlias[Fold(alias)] = name
		}
		lx.moodNames = append(lx.moodNames, name)
	}
	sort.Strings(lx.genreNames)
	sort.Strings(lx.moodNames)
	return lx
}

// CanonicalGenre resolves a genre name or alias. Plural forms ending in "s"
// are retried in singular form.
func (lx *Lexicon) CanonicalGenre(raw string) (string, bool) {
	return lookupAlias(lx.genreAlias, raw)
}

func (lx *Lexicon) CanonicalMood(raw string) (string, bool) {
	return lookupAlias(lx.moodAlias, raw)
}

func (lx *Lexicon) Genre(name string) (Genre, bool) {
	genre, ok := lx.genres[Fold(name)]
	return genre, ok
}

func (lx *Lexicon) Mood(name string) (Mood, bool) {
	mood, ok := lx.moods[Fold(name)]
	return mood, ok
}

// MoodGenres returns the canonical genres a mood maps to.
func (lx *Lexicon) MoodGenres(mood string) []string {
	m, ok := lx.Mood(mood)
	if !ok {
		return nil
	}
	return append([]string(nil), m.Genres...)
}

// Keywords returns the keyword set for a genre or mood name.
func (lx *Lexicon) Keywords(term string) []string {
	if genre, ok := lx.Genre(term); ok {
		return genre.Keywords
	}
	if mood, ok := lx.Mood(term); ok {
		return mood.Keywords
	}
	return nil
}

func (lx *Lexicon) GenreNames() []string {
	return append([]string(nil), lx.genreNames...)
}

func (lx *Lexicon) MoodNames() []string {
	return append([]string(nil), lx.moodNames...)
}

// GenreAliases returns every phrase that resolves to a genre, longest first.
func (lx *Lexicon) GenreAliases() []string {
	return sortedPhrases(lx.genreAlias)
}

// MoodAliases returns every phrase that resolves to a mood, longest first.
func (lx *Lexicon) MoodAliases() []string {
	return sortedPhrases(lx.moodAlias)
}

// MatchesAny reports whether folded text contains any keyword on word boundaries.
func MatchesAny(foldedText string, keywords []string) bool {
	if foldedText == "" {
		return false
	}
	padded := " " + foldedText + " "
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(padded, " "+keyword+" ") {
			return true
		}
	}
	return false
}

func lookupAlias(aliases map[string]string, raw string) (string, bool) {
	key := Fold(raw)
	if key == "" {
		return "", false
	}
	if name, ok := aliases[key]; ok {
		return name, true
	}
	if strings.HasSuffix(key, "s") {
		if name, ok := aliases[strings.TrimSuffix(key, "s")]; ok {
			return name, true
		}
	}
	return "", false
}

func sortedPhrases(aliases map[string]string) []string {
	out := make([]string, 0, len(aliases))
	for phrase := range aliases {
		out = append(out, phrase)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

func foldAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if folded := Fold(value); folded != "" {
			out = append(out, folded)
		}
	}
	return out
}

func uniqueStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, exists := seen[item]; exists {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
