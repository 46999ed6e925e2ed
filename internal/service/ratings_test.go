package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/watchvault/internal/cache"
	"github.com/voyagen/watchvault/internal/models"
	"github.com/voyagen/watchvault/internal/ratings"
	"github.com/voyagen/watchvault/internal/store"
)

type fakeMetadata struct {
	mu    sync.Mutex
	calls []string
	data  map[string]*models.ExternalMetadata
	fail  map[string]bool
}

func (f *fakeMetadata) ByID(_ context.Context, imdbID string) (*models.ExternalMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, imdbID)
	if f.fail[imdbID] {
		return nil, errors.New("upstream down")
	}
	return f.data[imdbID], nil
}

type fakeLocker struct{ held bool }

func (l *fakeLocker) Lock(context.Context, time.Duration) (func(), error) {
	if l.held {
		return nil, cache.ErrLocked
	}
	l.held = true
	return func() { l.held = false }, nil
}

func TestRefreshRatingsAll(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	alien, err := s.InsertMedia(ctx, models.MediaCreate{Title: "Alien", MediaType: models.MediaTypeMovie, ImdbID: "tt0078748"})
	require.NoError(t, err)
	broken, err := s.InsertMedia(ctx, models.MediaCreate{Title: "Broken", MediaType: models.MediaTypeMovie, ImdbID: "tt0000001"})
	require.NoError(t, err)
	_, err = s.InsertMedia(ctx, models.MediaCreate{Title: "Home video", MediaType: models.MediaTypeMovie})
	require.NoError(t, err)

	md := &fakeMetadata{
		data: map[string]*models.ExternalMetadata{
			"tt0078748": {Ratings: []models.Rating{{Source: "Rotten Tomatoes", Value: "93%"}}},
		},
		fail: map[string]bool{"tt0000001": true},
	}
	r := &Refresher{Store: s, Metadata: md, Locker: &fakeLocker{}, Concurrency: 2}

	res, err := r.RefreshRatings(ctx, cache.RatingsJob{All: true})
	require.NoError(t, err)
	assert.Equal(t, RefreshResult{Checked: 2, Updated: 1, Failed: 1}, res)

	got, err := s.GetMedia(ctx, alien.ID)
	require.NoError(t, err)
	score, ok := ratings.Score(got.Ratings, ratings.SourceRottenTomatoes)
	require.True(t, ok)
	assert.Equal(t, 93.0, score)

	got, err = s.GetMedia(ctx, broken.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Ratings)

	// a second run finds nothing new
	res, err = r.RefreshRatings(ctx, cache.RatingsJob{MediaIDs: []string{alien.ID, "gone"}})
	require.NoError(t, err)
	assert.Equal(t, RefreshResult{Checked: 1}, res)
}

func TestRefreshRatingsLocked(t *testing.T) {
	r := &Refresher{Store: store.NewMemory(), Metadata: &fakeMetadata{}, Locker: &fakeLocker{held: true}}
	_, err := r.RefreshRatings(context.Background(), cache.RatingsJob{All: true})
	assert.ErrorIs(t, err, ErrRefreshRunning)
}

func TestTargetedRefreshIgnoresLock(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	m, err := s.InsertMedia(ctx, models.MediaCreate{Title: "Alien", MediaType: models.MediaTypeMovie, ImdbID: "tt0078748"})
	require.NoError(t, err)

	md := &fakeMetadata{data: map[string]*models.ExternalMetadata{
		"tt0078748": {Ratings: []models.Rating{{Source: "Internet Movie Database", Value: "8.5/10"}}},
	}}
	r := &Refresher{Store: s, Metadata: md, Locker: &fakeLocker{held: true}}

	res, err := r.RefreshRatings(ctx, cache.RatingsJob{MediaIDs: []string{m.ID}, Reason: "created"})
	require.NoError(t, err)
	assert.Equal(t, RefreshResult{Checked: 1, Updated: 1}, res)
}
