package models

import "time"

// Media is one title in the user's to-watch or watched list.
type Media struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	MediaType          MediaType `json:"mediaType"`
	Watched            bool      `json:"watched"`
	DateWatched        string    `json:"dateWatched"`
	DateWatchedSeasons []string  `json:"dateWatchedSeasons"`
	Rating             float64   `json:"rating"`
	Ratings            string    `json:"ratings"` // JSON-encoded []Rating as returned by OMDb
	Tags               []Tag     `json:"tags"`
	Thumbnail          string    `json:"thumbnail"`
	Year               string    `json:"year,omitempty"`
	ImdbID             string    `json:"imdbID"`
	Version            int32     `json:"version"`
	CreatedAt          time.Time `json:"createdAt"`
}

// HasTag reports whether the entry carries tag.
func (m Media) HasTag(tag Tag) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MediaCreate is the payload for POST /v1/movies.
type MediaCreate struct {
	Title              string    `json:"title"`
	MediaType          MediaType `json:"mediaType"`
	Watched            bool      `json:"watched"`
	DateWatched        string    `json:"dateWatched"`
	DateWatchedSeasons []string  `json:"dateWatchedSeasons,omitempty"`
	Rating             float64   `json:"rating"`
	Ratings            string    `json:"ratings,omitempty"`
	Tags               []Tag     `json:"tags,omitempty"`
	Thumbnail          string    `json:"thumbnail"`
	Year               string    `json:"year,omitempty"`
	ImdbID             string    `json:"imdbID"`
}

// MediaUpdate holds the mutable fields of an entry for PUT /v1/movies/{id}.
// Pointer fields: nil = don't change, non-nil = set.
type MediaUpdate struct {
	DateWatched        *string   `json:"dateWatched,omitempty"`
	DateWatchedSeasons *[]string `json:"dateWatchedSeasons,omitempty"`
	Tags               *[]Tag    `json:"tags,omitempty"`
	Rating             *float64  `json:"rating,omitempty"`
	Ratings            *string   `json:"ratings,omitempty"`
	Version            *int32    `json:"version,omitempty"` // optional optimistic-lock check
}

// Empty reports whether the update changes nothing.
func (u MediaUpdate) Empty() bool {
	return u.DateWatched == nil && u.DateWatchedSeasons == nil && u.Tags == nil &&
		u.Rating == nil && u.Ratings == nil
}

// Apply copies the set fields of u onto m.
func (u MediaUpdate) Apply(m *Media) {
	if u.DateWatched != nil {
		m.DateWatched = *u.DateWatched
	}
	if u.DateWatchedSeasons != nil {
		m.DateWatchedSeasons = append([]string(nil), (*u.DateWatchedSeasons)...)
	}
	if u.Tags != nil {
		m.Tags = append([]Tag(nil), (*u.Tags)...)
	}
	if u.Rating != nil {
		m.Rating = *u.Rating
	}
	if u.Ratings != nil {
		m.Ratings = *u.Ratings
	}
}

// WatchedInput moves an entry from the to-watch list into the watched list.
type WatchedInput struct {
	DateWatched        string   `json:"dateWatched"`
	DateWatchedSeasons []string `json:"dateWatchedSeasons,omitempty"`
	Rating             float64  `json:"rating"`
}
