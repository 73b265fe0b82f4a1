package domain

type DiscoverRequest struct {
	Query string `json:"query"`
}

type Result struct {
	CatalogID      int       `json:"catalogId"`
	Name           string    `json:"name"`
	MediaType      MediaType `json:"mediaType"`
	ThumbnailURL   string    `json:"thumbnailUrl,omitempty"`
	Rating         float64   `json:"rating,omitempty"`
	Overview       string    `json:"overview,omitempty"`
	Year           int       `json:"year,omitempty"`
	RelevanceScore float64   `json:"relevanceScore"`
	Reasoning      string    `json:"reasoning"`
}

// DiscoverResponse always carries a non-nil Results slice so it encodes as [].
type DiscoverResponse struct {
	Results []Result `json:"results"`
}

func EmptyDiscoverResponse() DiscoverResponse {
	return DiscoverResponse{Results: []Result{}}
}

type Suggestion struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Year      int       `json:"year,omitempty"`
	Poster    string    `json:"poster,omitempty"`
	MediaType MediaType `json:"mediaType"`
	Rating    float64   `json:"rating,omitempty"`
}
