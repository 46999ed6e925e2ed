package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voyagen/watchvault/internal/validator"
)

func TestValidateCreate(t *testing.T) {
	v := validator.New()
	ValidateCreate(v, MediaCreate{Title: "Alien", MediaType: MediaTypeMovie, Tags: []Tag{TagHalloween}})
	assert.True(t, v.Valid(), v.Errors)

	v = validator.New()
	ValidateCreate(v, MediaCreate{
		Title:     strings.Repeat("x", 501),
		MediaType: MediaTypeAll,
		Watched:   true,
		Rating:    11,
		Tags:      []Tag{TagChristmas, TagChristmas, "easter"},
	})
	assert.Equal(t, "must not be more than 500 bytes long", v.Errors["title"])
	assert.Contains(t, v.Errors, "mediaType")
	assert.Contains(t, v.Errors, "dateWatched")
	assert.Contains(t, v.Errors, "rating")
	assert.Contains(t, v.Errors, "tags")

	v = validator.New()
	ValidateCreate(v, MediaCreate{MediaType: MediaTypeSeries, DateWatched: "24/12/2023", DateWatchedSeasons: []string{"2023-01-01", "soon"}})
	assert.Equal(t, "must be provided", v.Errors["title"])
	assert.Contains(t, v.Errors, "dateWatched")
	assert.Contains(t, v.Errors, "dateWatchedSeasons[1]")
	assert.NotContains(t, v.Errors, "dateWatchedSeasons[0]")
}

func TestValidateUpdate(t *testing.T) {
	v := validator.New()
	ValidateUpdate(v, MediaUpdate{})
	assert.Contains(t, v.Errors, "body")

	rating := -1.0
	v = validator.New()
	ValidateUpdate(v, MediaUpdate{Rating: &rating})
	assert.Contains(t, v.Errors, "rating")

	tags := []Tag{}
	v = validator.New()
	ValidateUpdate(v, MediaUpdate{Tags: &tags})
	assert.True(t, v.Valid())
}

func TestValidateWatched(t *testing.T) {
	v := validator.New()
	ValidateWatched(v, WatchedInput{DateWatched: "2024-05-01", Rating: 8})
	assert.True(t, v.Valid())

	v = validator.New()
	ValidateWatched(v, WatchedInput{})
	assert.Contains(t, v.Errors, "dateWatched")
}
