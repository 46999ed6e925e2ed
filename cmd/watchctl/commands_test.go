package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/watchvault/internal/models"
	"github.com/voyagen/watchvault/internal/viewstate"
)

func TestParseFlagsInterleaved(t *testing.T) {
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	rating := fs.Float64("rating", 0, "")
	date := fs.String("date", "", "")

	rest, err := parseFlags(fs, []string{"abc", "-rating", "8", "def", "-date", "2024-01-02"})
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "def"}, rest)
	assert.Equal(t, 8.0, *rating)
	assert.Equal(t, "2024-01-02", *date)
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []models.Tag{}, parseTags("none"))
	assert.Equal(t, []models.Tag{}, parseTags(" "))
	assert.Equal(t, []models.Tag{models.TagChristmas, models.TagHalloween}, parseTags("christmas, halloween,"))
}

func TestCheckSortOffered(t *testing.T) {
	assert.NoError(t, checkSortOffered(models.ListToWatch, viewstate.Sort{Key: viewstate.SortRTRating}))
	assert.NoError(t, checkSortOffered(models.ListWatched, viewstate.Sort{Key: viewstate.SortRating, Desc: true}))
	assert.Error(t, checkSortOffered(models.ListWatched, viewstate.Sort{Key: viewstate.SortIMDbRating}))
}

func TestOneArg(t *testing.T) {
	id, err := oneArg("x", []string{" 42 "})
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	_, err = oneArg("x", nil)
	assert.Error(t, err)
	_, err = oneArg("x", []string{"a", "b"})
	assert.Error(t, err)
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "filter bad; sort worse", formatErrors(map[string]string{"sort": "worse", "filter": "bad"}))
}
