package omdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("apikey") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"Response":"False","Error":"Invalid API key!"}`))
			return
		}
		assert.Equal(t, "watchvault-test", r.Header.Get("User-Agent"))
		switch {
		case q.Get("s") == "alien":
			_, _ = w.Write([]byte(`{"Search":[{"Title":"Alien","Year":"1979","imdbID":"tt0078748","Type":"movie","Poster":"p.jpg"}],"totalResults":"1","Response":"True"}`))
		case q.Get("s") == "star trek":
			_, _ = w.Write([]byte(`{"Search":[` +
				`{"Title":"Star Trek","Year":"2009","imdbID":"tt0796366","Type":"movie"},` +
				`{"Title":"Star Trek: The Next Generation","Year":"1987–1994","imdbID":"tt0092455","Type":"series"},` +
				`{"Title":"The Trouble with Tribbles","Year":"1967","imdbID":"tt0708480","Type":"episode"},` +
				`{"Title":"Star Trek: Bridge Crew","Year":"2017","imdbID":"tt5765150","Type":"game"}` +
				`],"totalResults":"4","Response":"True"}`))
		case q.Has("s"):
			_, _ = w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
		case q.Get("i") == "tt0078748" || q.Get("t") == "Alien":
			_, _ = w.Write([]byte(`{"Title":"Alien","Year":"1979","Runtime":"117 min","Ratings":[{"Source":"Rotten Tomatoes","Value":"93%"}],"imdbRating":"8.5","imdbID":"tt0078748","Type":"movie","Response":"True"}`))
		default:
			_, _ = w.Write([]byte(`{"Response":"False","Error":"Incorrect IMDb ID."}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient("k", srv.URL+"/", "watchvault-test", 0)

	results, err := c.Search(context.Background(), "alien")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "tt0078748", results[0].ImdbID)
	assert.Equal(t, "movie", string(results[0].Type))
}

func TestSearchKeepsMoviesAndSeries(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient("k", srv.URL+"/", "watchvault-test", 0)

	results, err := c.Search(context.Background(), "star trek")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "tt0796366", results[0].ImdbID)
	assert.Equal(t, "tt0092455", results[1].ImdbID)
}

func TestSearchErrorFlagIsEmpty(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient("k", srv.URL+"/", "watchvault-test", 0)

	results, err := c.Search(context.Background(), "qwertyuiop")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	results, err = c.Search(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestByIDAndTitle(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient("k", srv.URL+"/", "watchvault-test", 0)
	ctx := context.Background()

	md, err := c.ByID(ctx, "tt0078748")
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, "117 min", md.Runtime)
	require.Len(t, md.Ratings, 1)
	assert.Equal(t, "93%", md.Ratings[0].Value)

	md, err = c.ByTitle(ctx, "Alien")
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, "8.5", md.ImdbRating)

	md, err = c.ByID(ctx, "tt0000000")
	require.NoError(t, err)
	assert.Nil(t, md)
}

func TestHTTPErrorAndMissingKey(t *testing.T) {
	srv := newTestServer(t)

	_, err := NewClient("bad", srv.URL+"/", "watchvault-test", 0).Search(context.Background(), "alien")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key!")

	_, err = NewClient("", srv.URL+"/", "", 0).ByID(context.Background(), "tt0078748")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
