package intent

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"torrentstream/discovery/internal/domain"
	"torrentstream/discovery/internal/lexicon"
)

const namePattern = `\p{Lu}[\p{L}'.\-]*(?:\s+\p{Lu}[\p{L}'.\-]*)+`

var (
	runtimePattern     = regexp.MustCompile(`(?i)\b(?:under|less\s+than|shorter\s+than|at\s+most|no\s+longer\s+than|max(?:imum)?|within|below)\s+(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|minutes?|mins?|m)\b`)
	yearRangePattern   = regexp.MustCompile(`(?i)\b(?:(?:from|between)\s+)?((?:19|20)\d{2})\s*(?:-|to|and|until|through)\s*((?:19|20)\d{2})\b`)
	decadePattern      = regexp.MustCompile(`(?i)\b(?:the\s+)?((?:19|20)?\d0)'?s\b`)
	yearAfterPattern   = regexp.MustCompile(`(?i)\b(after|since)\s+((?:19|20)\d{2})\b`)
	yearBeforePattern  = regexp.MustCompile(`(?i)\b(before|until)\s+((?:19|20)\d{2})\b`)
	yearSinglePattern  = regexp.MustCompile(`(?i)\b(?:in|from|of)\s+((?:19|20)\d{2})\b`)
	yearBarePattern    = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	similarPattern     = regexp.MustCompile(`(?i)\b(?:similar\s+to|like|in\s+the\s+vein\s+of|along\s+the\s+lines\s+of|reminds?\s+me\s+of)\s+(.+)$`)
	peoplePattern      = regexp.MustCompile(`\b(?i:starring|featuring|with|by|directed\s+by)\s+(` + namePattern + `(?:\s*(?:,|\band\b|&)\s*` + namePattern + `)*)`)
	peopleSplitPattern = regexp.MustCompile(`\s*(?:,|\band\b|&)\s*`)
	titleSplitPattern  = regexp.MustCompile(`(?i)\s*(?:,|\bor\b)\s*`)
)

var fillerWords = map[string]struct{}{
	"a": {}, "an": {}, "any": {}, "some": {}, "good": {}, "great": {}, "best": {}, "top": {},
	"give": {}, "me": {}, "show": {}, "find": {}, "recommend": {}, "recommendations": {},
	"suggest": {}, "please": {}, "i": {}, "id": {}, "d": {}, "want": {}, "to": {}, "watch": {},
	"looking": {}, "for": {}, "something": {}, "anything": {}, "stuff": {}, "tonight": {},
	"movie": {}, "movies": {}, "film": {}, "films": {}, "tv": {}, "series": {}, "shows": {},
	"new": {}, "that": {}, "are": {}, "is": {}, "what": {}, "about": {}, "with": {}, "from": {},
	"in": {}, "of": {}, "can": {}, "you": {}, "need": {}, "ones": {}, "one": {}, "popular": {},
}

// Stripped only at the end of a title or when nothing else is left.
var weakWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {},
}

type phraseKind int

const (
	phraseGenre phraseKind = iota
	phraseMood
)

type phrase struct {
	kind      phraseKind
	canonical string
	length    int
	pattern   *regexp.Regexp
}

// KeywordModel is a rule-based LanguageModel. It understands the common
// shapes of discovery queries without any outbound call and returns
// ErrUnusableOutput when it recognises nothing.
type KeywordModel struct {
	phrases    []phrase
	knownWords map[string]struct{}
}

func NewKeywordModel(lx *lexicon.Lexicon) *KeywordModel {
	if lx == nil {
		lx = lexicon.New()
	}
	m := &KeywordModel{knownWords: make(map[string]struct{})}
	for word := range fillerWords {
		m.knownWords[word] = struct{}{}
	}
	add := func(kind phraseKind, alias, canonical string) {
		words := strings.Fields(alias)
		if len(words) == 0 {
			return
		}
		quoted := make([]string, 0, len(words))
		for _, word := range words {
			quoted = append(quoted, regexp.QuoteMeta(word))
			m.knownWords[word] = struct{}{}
		}
		m.phrases = append(m.phrases, phrase{
			kind:      kind,
			canonical: canonical,
			length:    len(alias),
			pattern:   regexp.MustCompile(`(?i)\b` + strings.Join(quoted, `[\s\-]*`) + `s?\b`),
		})
	}
	for _, alias := range lx.GenreAliases() {
		if canonical, ok := lx.CanonicalGenre(alias); ok {
			add(phraseGenre, alias, canonical)
		}
	}
	for _, alias := range lx.MoodAliases() {
		if canonical, ok := lx.CanonicalMood(alias); ok {
			add(phraseMood, alias, canonical)
		}
	}
	sort.SliceStable(m.phrases, func(i, j int) bool {
		return m.phrases[i].length > m.phrases[j].length
	})
	return m
}

func (m *KeywordModel) ExtractIntent(ctx context.Context, query string) (RawIntent, error) {
	if err := ctx.Err(); err != nil {
		return RawIntent{}, err
	}
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return RawIntent{}, ErrUnusableOutput
	}

	raw := RawIntent{}
	raw.MediaTypes = detectMediaTypes(query)
	if count := CountFromText(query); count > 0 {
		raw.Count = &count
	}

	rest := stripCounts(query)
	rest = m.extractRuntime(rest, &raw)
	rest = extractYears(rest, &raw)
	rest = extractPeople(rest, &raw)
	rest = m.extractSimilar(rest, &raw)
	rest = m.extractPhrases(rest, &raw)
	// A bare year only counts once something else was recognised, so
	// titles such as "1917" stay titles.
	if len(raw.Genres) > 0 || len(raw.Moods) > 0 || len(raw.People) > 0 {
		rest = extractBareYear(rest, &raw)
	}

	if len(raw.Genres) == 0 && len(raw.Moods) == 0 && len(raw.People) == 0 && !raw.WantsSimilar {
		if title := cleanTitle(rest); title != "" {
			raw.Titles = append(raw.Titles, title)
		}
	}

	if len(raw.Titles) == 0 && len(raw.People) == 0 && len(raw.Genres) == 0 && len(raw.Moods) == 0 {
		return RawIntent{}, ErrUnusableOutput
	}
	return raw, nil
}

func detectMediaTypes(query string) []string {
	var out []string
	seen := make(map[domain.MediaType]struct{})
	tokens := lexicon.Tokens(query)
	for i, token := range tokens {
		candidate := token
		if token == "tv" && i+1 < len(tokens) {
			candidate = token + " " + tokens[i+1]
		}
		mediaType, ok := domain.NormalizeMediaType(candidate)
		if !ok {
			mediaType, ok = domain.NormalizeMediaType(token)
		}
		if !ok {
			continue
		}
		// "show me ..." is a request, not a media type.
		if token == "show" && i+1 < len(tokens) && tokens[i+1] == "me" {
			continue
		}
		if _, exists := seen[mediaType]; exists {
			continue
		}
		seen[mediaType] = struct{}{}
		out = append(out, string(mediaType))
	}
	return out
}

func (m *KeywordModel) extractRuntime(rest string, raw *RawIntent) string {
	match := runtimePattern.FindStringSubmatch(rest)
	if len(match) < 3 {
		return rest
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil || value <= 0 {
		return rest
	}
	minutes := value
	if strings.HasPrefix(strings.ToLower(match[2]), "h") {
		minutes = value * 60
	}
	runtime := int(minutes + 0.5)
	raw.RuntimeMaxMinutes = &runtime
	return runtimePattern.ReplaceAllString(rest, " ")
}

func extractYears(rest string, raw *RawIntent) string {
	if match := yearRangePattern.FindStringSubmatch(rest); len(match) == 3 {
		from, _ := strconv.Atoi(match[1])
		to, _ := strconv.Atoi(match[2])
		raw.YearFrom, raw.YearTo = &from, &to
		return yearRangePattern.ReplaceAllString(rest, " ")
	}
	if match := decadePattern.FindStringSubmatch(rest); len(match) == 2 {
		decade, _ := strconv.Atoi(match[1])
		if decade < 100 {
			if decade >= 30 {
				decade += 1900
			} else {
				decade += 2000
			}
		}
		end := decade + 9
		raw.YearFrom, raw.YearTo = &decade, &end
		return decadePattern.ReplaceAllString(rest, " ")
	}

	found := false
	if match := yearAfterPattern.FindStringSubmatch(rest); len(match) == 3 {
		year, _ := strconv.Atoi(match[2])
		if strings.EqualFold(match[1], "after") {
			year++
		}
		raw.YearFrom = &year
		rest = yearAfterPattern.ReplaceAllString(rest, " ")
		found = true
	}
	if match := yearBeforePattern.FindStringSubmatch(rest); len(match) == 3 {
		year, _ := strconv.Atoi(match[2])
		if strings.EqualFold(match[1], "before") {
			year--
		}
		raw.YearTo = &year
		rest = yearBeforePattern.ReplaceAllString(rest, " ")
		found = true
	}
	if found {
		return rest
	}
	if match := yearSinglePattern.FindStringSubmatch(rest); len(match) == 2 {
		year, _ := strconv.Atoi(match[1])
		raw.Year = &year
		return yearSinglePattern.ReplaceAllString(rest, " ")
	}
	return rest
}

// stripCounts removes count phrases whose number is a valid count, leaving
// "best 2019" and the like for year extraction.
func stripCounts(text string) string {
	for _, pattern := range countPatterns {
		text = pattern.ReplaceAllStringFunc(text, func(match string) string {
			sub := pattern.FindStringSubmatch(match)
			if len(sub) < 2 || clampCount(sub[1]) == 0 {
				return match
			}
			return " "
		})
	}
	return text
}

func extractBareYear(rest string, raw *RawIntent) string {
	if raw.Year != nil || raw.YearFrom != nil || raw.YearTo != nil {
		return rest
	}
	match := yearBarePattern.FindStringSubmatch(rest)
	if len(match) < 2 {
		return rest
	}
	year, _ := strconv.Atoi(match[1])
	raw.Year = &year
	return strings.Replace(rest, match[0], " ", 1)
}

func extractPeople(rest string, raw *RawIntent) string {
	matches := peoplePattern.FindAllStringSubmatch(rest, -1)
	if len(matches) == 0 {
		return rest
	}
	for _, match := range matches {
		for _, name := range peopleSplitPattern.Split(match[1], -1) {
			name = strings.TrimSpace(name)
			if name != "" {
				raw.People = append(raw.People, name)
			}
		}
	}
	return peoplePattern.ReplaceAllString(rest, " ")
}

func (m *KeywordModel) extractSimilar(rest string, raw *RawIntent) string {
	loc := similarPattern.FindStringSubmatchIndex(rest)
	if len(loc) < 4 {
		return rest
	}
	var titles []string
	for _, part := range titleSplitPattern.Split(rest[loc[2]:loc[3]], -1) {
		title := cleanTitle(part)
		if title == "" || m.isVocabulary(title) {
			continue
		}
		titles = append(titles, title)
	}
	if len(titles) == 0 {
		return rest
	}
	raw.Titles = append(raw.Titles, titles...)
	raw.WantsSimilar = true
	return rest[:loc[0]]
}

// extractPhrases pulls genre and mood phrases out of rest, longest first.
// A capitalised match wedged against an unknown capitalised word is taken
// to be part of a title ("The Dark Knight") and left alone.
func (m *KeywordModel) extractPhrases(rest string, raw *RawIntent) string {
	genreSeen := make(map[string]struct{})
	moodSeen := make(map[string]struct{})
	for _, p := range m.phrases {
		spans := p.pattern.FindAllStringIndex(rest, -1)
		if len(spans) == 0 {
			continue
		}
		var b strings.Builder
		last := 0
		matched := false
		for _, span := range spans {
			if m.insideProperName(rest, span[0], span[1]) {
				continue
			}
			b.WriteString(rest[last:span[0]])
			b.WriteString(" ")
			last = span[1]
			matched = true
		}
		if !matched {
			continue
		}
		b.WriteString(rest[last:])
		rest = b.String()

		switch p.kind {
		case phraseGenre:
			if _, ok := genreSeen[p.canonical]; !ok {
				genreSeen[p.canonical] = struct{}{}
				raw.Genres = append(raw.Genres, p.canonical)
			}
		case phraseMood:
			if _, ok := moodSeen[p.canonical]; !ok {
				moodSeen[p.canonical] = struct{}{}
				raw.Moods = append(raw.Moods, p.canonical)
			}
		}
	}
	return rest
}

func (m *KeywordModel) insideProperName(text string, start, end int) bool {
	if !startsUpper(text[start:end]) {
		return false
	}
	before := strings.Fields(text[:start])
	if len(before) > 0 && m.isUnknownCapitalised(before[len(before)-1]) {
		return true
	}
	after := strings.Fields(text[end:])
	if len(after) > 0 && m.isUnknownCapitalised(after[0]) {
		return true
	}
	return false
}

func (m *KeywordModel) isUnknownCapitalised(word string) bool {
	if !startsUpper(word) {
		return false
	}
	for _, token := range lexicon.Tokens(word) {
		if _, ok := m.knownWords[token]; !ok {
			return true
		}
	}
	return false
}

// isVocabulary reports whether text is nothing but genre or mood words.
func (m *KeywordModel) isVocabulary(text string) bool {
	tokens := lexicon.Tokens(text)
	if len(tokens) == 0 {
		return true
	}
	for _, token := range tokens {
		if _, ok := m.knownWords[token]; !ok {
			return false
		}
	}
	return true
}

func startsUpper(text string) bool {
	r, _ := utf8.DecodeRuneInString(text)
	return unicode.IsUpper(r)
}

// cleanTitle trims filler words and punctuation from both ends of text.
func cleanTitle(text string) string {
	words := strings.Fields(text)
	isFiller := func(word string, trailing bool) bool {
		tokens := lexicon.Tokens(word)
		if len(tokens) == 0 {
			return true
		}
		for _, token := range tokens {
			if _, ok := fillerWords[token]; ok {
				continue
			}
			if _, ok := weakWords[token]; ok && trailing {
				continue
			}
			return false
		}
		return true
	}
	for len(words) > 0 && isFiller(words[0], false) {
		words = words[1:]
	}
	for len(words) > 0 && isFiller(words[len(words)-1], true) {
		words = words[:len(words)-1]
	}
	if len(words) == 0 {
		return ""
	}
	title := strings.Join(words, " ")
	return strings.TrimFunc(title, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '!' && r != ')')
	})
}
