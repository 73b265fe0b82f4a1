package domain

import "strings"

type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// AllMediaTypes is the media type set used when a query names none.
var AllMediaTypes = []MediaType{MediaTypeMovie, MediaTypeTV}

// NormalizeMediaType maps loose user/model wording onto a MediaType.
// The boolean is false for tokens that name neither movies nor TV.
func NormalizeMediaType(raw string) (MediaType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "movie", "movies", "film", "films", "feature", "cinema":
		return MediaTypeMovie, true
	case "tv", "show", "shows", "series", "tv show", "tv shows", "tv series", "tvshow", "serial", "miniseries":
		return MediaTypeTV, true
	default:
		return "", false
	}
}

// Intent is the structured reading of a free-text query.
// Zero integers mean "not specified".
type Intent struct {
	Titles            []string    `json:"titles"`
	People            []string    `json:"people"`
	Genres            []string    `json:"genres"`
	Moods             []string    `json:"moods"`
	YearFrom          int         `json:"yearFrom,omitempty"`
	YearTo            int         `json:"yearTo,omitempty"`
	RuntimeMaxMinutes int         `json:"runtimeMaxMinutes,omitempty"`
	MediaTypes        []MediaType `json:"mediaTypes"`
	RequestedCount    int         `json:"requestedCount,omitempty"`
	WantsSimilar      bool        `json:"wantsSimilar"`
}

func (i Intent) HasYearConstraint() bool {
	return i.YearFrom > 0 || i.YearTo > 0
}

// SingleMediaType reports the media type when exactly one was requested.
func (i Intent) SingleMediaType() (MediaType, bool) {
	if len(i.MediaTypes) != 1 {
		return "", false
	}
	return i.MediaTypes[0], true
}

// EffectiveMediaTypes returns the requested media types, or both when none were named.
func (i Intent) EffectiveMediaTypes() []MediaType {
	if len(i.MediaTypes) == 0 {
		return append([]MediaType(nil), AllMediaTypes...)
	}
	return append([]MediaType(nil), i.MediaTypes...)
}

func (i Intent) AllowsMediaType(mediaType MediaType) bool {
	if len(i.MediaTypes) == 0 {
		return true
	}
	for _, allowed := range i.MediaTypes {
		if allowed == mediaType {
			return true
		}
	}
	return false
}

// HasSignal reports whether anything beyond the count/media filters was extracted.
func (i Intent) HasSignal() bool {
	return len(i.Titles) > 0 || len(i.People) > 0 || len(i.Genres) > 0 || len(i.Moods) > 0
}
