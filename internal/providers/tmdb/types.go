package tmdb

import (
	"strconv"
	"strings"

	"torrentstream/discovery/internal/domain"
)

type listItem struct {
	ID            int     `json:"id"`
	Title         string  `json:"title,omitempty"`
	Name          string  `json:"name,omitempty"`
	OriginalTitle string  `json:"original_title,omitempty"`
	OriginalName  string  `json:"original_name,omitempty"`
	Overview      string  `json:"overview,omitempty"`
	PosterPath    string  `json:"poster_path,omitempty"`
	VoteAverage   float64 `json:"vote_average,omitempty"`
	VoteCount     int     `json:"vote_count,omitempty"`
	Popularity    float64 `json:"popularity,omitempty"`
	ReleaseDate   string  `json:"release_date,omitempty"`
	FirstAirDate  string  `json:"first_air_date,omitempty"`
	MediaType     string  `json:"media_type,omitempty"`
	GenreIDs      []int   `json:"genre_ids,omitempty"`
}

func (r listItem) displayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

func (r listItem) originalTitle() string {
	if r.OriginalTitle != "" {
		return r.OriginalTitle
	}
	return r.OriginalName
}

func (r listItem) year() int {
	date := r.ReleaseDate
	if date == "" {
		date = r.FirstAirDate
	}
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// hit converts a list entry to a SearchHit. fallbackType is used when the
// endpoint does not tag entries with a media type.
func (r listItem) hit(fallbackType domain.MediaType) (domain.SearchHit, bool) {
	mediaType := fallbackType
	if r.MediaType != "" {
		switch strings.ToLower(r.MediaType) {
		case "movie":
			mediaType = domain.MediaTypeMovie
		case "tv":
			mediaType = domain.MediaTypeTV
		default:
			return domain.SearchHit{}, false
		}
	}
	if mediaType == "" || r.ID <= 0 {
		return domain.SearchHit{}, false
	}
	name := strings.TrimSpace(r.displayTitle())
	if name == "" {
		return domain.SearchHit{}, false
	}
	return domain.SearchHit{
		ID:         r.ID,
		MediaType:  mediaType,
		Name:       name,
		Overview:   strings.TrimSpace(r.Overview),
		Rating:     clampRating(r.VoteAverage),
		Year:       r.year(),
		PosterPath: strings.TrimSpace(r.PosterPath),
		Signals: domain.Signals{
			GenreIDs:   append([]int(nil), r.GenreIDs...),
			VoteCount:  r.VoteCount,
			Popularity: r.Popularity,
		},
	}, true
}

func clampRating(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 10 {
		return 10
	}
	return value
}

type pagedResponse struct {
	Page    int        `json:"page"`
	Results []listItem `json:"results"`
}

type personItem struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Popularity float64 `json:"popularity"`
}

type personSearchResponse struct {
	Results []personItem `json:"results"`
}

type creditsResponse struct {
	Cast []listItem `json:"cast"`
	Crew []listItem `json:"crew"`
}

type genreListResponse struct {
	Genres []genreItem `json:"genres"`
}

type genreItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type detailsResponse struct {
	ID             int         `json:"id"`
	Title          string      `json:"title,omitempty"`
	Name           string      `json:"name,omitempty"`
	Runtime        int         `json:"runtime,omitempty"`
	EpisodeRunTime []int       `json:"episode_run_time,omitempty"`
	Genres         []genreItem `json:"genres"`
	VoteCount      int         `json:"vote_count,omitempty"`
}

func (d detailsResponse) details(mediaType domain.MediaType) domain.TitleDetails {
	out := domain.TitleDetails{
		ID:        d.ID,
		MediaType: mediaType,
		Name:      d.Title,
		VoteCount: d.VoteCount,
	}
	if out.Name == "" {
		out.Name = d.Name
	}
	out.RuntimeMinutes = d.Runtime
	if out.RuntimeMinutes == 0 && len(d.EpisodeRunTime) > 0 {
		out.RuntimeMinutes = d.EpisodeRunTime[0]
	}
	for _, genre := range d.Genres {
		out.Genres = append(out.Genres, genre.Name)
		out.GenreIDs = append(out.GenreIDs, genre.ID)
	}
	return out
}
