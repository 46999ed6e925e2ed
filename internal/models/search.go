package models

// SearchResult is one hit of an OMDb free-text search. Never persisted.
type SearchResult struct {
	Title  string    `json:"Title"`
	Year   string    `json:"Year"`
	ImdbID string    `json:"imdbID"`
	Type   MediaType `json:"Type"`
	Poster string    `json:"Poster"`
}

// CreateInput builds the create payload for this result.
func (r SearchResult) CreateInput(watched bool) MediaCreate {
	return MediaCreate{
		Title:     r.Title,
		MediaType: r.Type,
		Watched:   watched,
		Thumbnail: r.Poster,
		Year:      r.Year,
		ImdbID:    r.ImdbID,
	}
}

// Rating is a single external rating, e.g. {"Rotten Tomatoes", "92%"}.
type Rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// ExternalMetadata is the detailed OMDb record for a title (lookup by id or title).
type ExternalMetadata struct {
	Title        string   `json:"Title"`
	Year         string   `json:"Year"`
	Rated        string   `json:"Rated,omitempty"`
	Released     string   `json:"Released,omitempty"`
	Runtime      string   `json:"Runtime"`
	Genre        string   `json:"Genre"`
	Director     string   `json:"Director"`
	Writer       string   `json:"Writer"`
	Actors       string   `json:"Actors"`
	Plot         string   `json:"Plot"`
	Language     string   `json:"Language"`
	Country      string   `json:"Country"`
	Poster       string   `json:"Poster"`
	Ratings      []Rating `json:"Ratings"`
	Metascore    string   `json:"Metascore"`
	ImdbRating   string   `json:"imdbRating"`
	ImdbVotes    string   `json:"imdbVotes"`
	ImdbID       string   `json:"imdbID"`
	Type         string   `json:"Type"`
	TotalSeasons string   `json:"totalSeasons,omitempty"`
}

// TMDBFindResult is the first match of a TMDB /find lookup.
type TMDBFindResult struct {
	ID           int     `json:"id"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	VoteAverage  float64 `json:"vote_average"`
}

// DisplayTitle returns the movie title or, for series, the show name.
func (r TMDBFindResult) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}
