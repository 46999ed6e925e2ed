package listview

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/watchvault/internal/client"
	"github.com/voyagen/watchvault/internal/models"
	"github.com/voyagen/watchvault/internal/viewstate"
)

// fakeBackend keeps entries in memory and counts list fetches.
type fakeBackend struct {
	mu      sync.Mutex
	items   map[string]models.Media
	nextID  int
	fetches int
	failAll error

	// block, when set, is called at the start of every FetchList.
	block func(ctx context.Context, n int) error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{items: make(map[string]models.Media)}
}

func (f *fakeBackend) FetchList(ctx context.Context, kind models.ListKind, opts client.ListOptions) ([]models.Media, error) {
	f.mu.Lock()
	f.fetches++
	n := f.fetches
	block := f.block
	f.mu.Unlock()

	if block != nil {
		if err := block(ctx, n); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	out := []models.Media{}
	for i := 1; i <= f.nextID; i++ {
		m, ok := f.items[strconv.Itoa(i)]
		if !ok || m.Watched != kind.Watched() {
			continue
		}
		if opts.MediaType != "" && m.MediaType != opts.MediaType {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeBackend) Create(_ context.Context, in models.MediaCreate) (*models.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.nextID++
	m := models.Media{
		ID: strconv.Itoa(f.nextID), Title: in.Title, MediaType: in.MediaType, Watched: in.Watched,
		DateWatched: in.DateWatched, Rating: in.Rating, Ratings: in.Ratings, Tags: in.Tags, ImdbID: in.ImdbID,
	}
	f.items[m.ID] = m
	return &m, nil
}

func (f *fakeBackend) Update(_ context.Context, id string, u models.MediaUpdate) (*models.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	m, ok := f.items[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	u.Apply(&m)
	f.items[id] = m
	return &m, nil
}

func (f *fakeBackend) Delete(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return "", f.failAll
	}
	if _, ok := f.items[id]; !ok {
		return "", client.ErrNotFound
	}
	delete(f.items, id)
	return "Movie with id " + id + " successfully deleted", nil
}

func (f *fakeBackend) MarkWatched(_ context.Context, id string, in models.WatchedInput) (*models.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	m, ok := f.items[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	m.Watched = true
	m.DateWatched = in.DateWatched
	m.Rating = in.Rating
	f.items[id] = m
	return &m, nil
}

func (f *fakeBackend) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func newController(t *testing.T, b Backend) *Controller {
	t.Helper()
	c, err := New(b, 0)
	require.NoError(t, err)
	return c
}

var alien = models.SearchResult{Title: "Alien", Year: "1979", ImdbID: "tt0078748", Type: models.MediaTypeMovie}

func TestLoadEmptyIsNotAnError(t *testing.T) {
	b := newFakeBackend()
	c := newController(t, b)

	v, err := c.Load(context.Background(), models.ListWatched, viewstate.DefaultParams())
	require.NoError(t, err)
	assert.True(t, v.Empty())
	assert.Equal(t, 0, v.Total)

	b.failAll = errors.New("connection refused")
	c.Invalidate(models.ListWatched)
	_, err = c.Load(context.Background(), models.ListWatched, viewstate.DefaultParams())
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
}

func TestLoadUsesQueryCache(t *testing.T) {
	b := newFakeBackend()
	c := newController(t, b)
	ctx := context.Background()

	_, err := c.Load(ctx, models.ListToWatch, viewstate.DefaultParams())
	require.NoError(t, err)

	// search and tag filters are derived locally from the cached list
	p := viewstate.DefaultParams()
	p.Search = "x"
	p.Filter = models.TagHalloween
	_, err = c.Load(ctx, models.ListToWatch, p)
	require.NoError(t, err)
	assert.Equal(t, 1, b.fetchCount())

	// a different server sort is a different query
	p.Sort = viewstate.Sort{Key: viewstate.SortTitle}
	_, err = c.Load(ctx, models.ListToWatch, p)
	require.NoError(t, err)
	assert.Equal(t, 2, b.fetchCount())

	// client-side sorts share one unsorted query
	p.Sort = viewstate.Sort{Key: viewstate.SortRTRating, Desc: true}
	_, err = c.Load(ctx, models.ListToWatch, p)
	require.NoError(t, err)
	assert.Equal(t, 3, b.fetchCount())
	p.Sort = viewstate.Sort{Key: viewstate.SortIMDbRating}
	_, err = c.Load(ctx, models.ListToWatch, p)
	require.NoError(t, err)
	assert.Equal(t, 3, b.fetchCount())
}

func TestAddToWatchInvalidates(t *testing.T) {
	b := newFakeBackend()
	c := newController(t, b)
	ctx := context.Background()

	v, err := c.Load(ctx, models.ListToWatch, viewstate.DefaultParams())
	require.NoError(t, err)
	require.True(t, v.Empty())

	m, err := c.AddToWatch(ctx, alien)
	require.NoError(t, err)
	assert.False(t, m.Watched)
	assert.Zero(t, m.Rating)

	v, err = c.Load(ctx, models.ListToWatch, viewstate.DefaultParams())
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "tt0078748", v.Items[0].ImdbID)
}

func TestAddWatched(t *testing.T) {
	b := newFakeBackend()
	c := newController(t, b)
	ctx := context.Background()

	m, err := c.AddWatched(ctx, alien, "2024-10-31", 9)
	require.NoError(t, err)
	assert.True(t, m.Watched)

	v, err := c.Load(ctx, models.ListWatched, viewstate.DefaultParams())
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "2024-10-31", v.Items[0].DateWatched)
	assert.Equal(t, 9.0, v.Items[0].Rating)
}

func assertMoved(t *testing.T, c *Controller, imdbID, date string, rating float64) {
	t.Helper()
	ctx := context.Background()

	toWatch, err := c.Load(ctx, models.ListToWatch, viewstate.DefaultParams())
	require.NoError(t, err)
	for _, m := range toWatch.Items {
		assert.NotEqual(t, imdbID, m.ImdbID, "entry still in to-watch list")
	}

	watched, err := c.Load(ctx, models.ListWatched, viewstate.DefaultParams())
	require.NoError(t, err)
	require.Len(t, watched.Items, 1)
	assert.Equal(t, imdbID, watched.Items[0].ImdbID)
	assert.Equal(t, date, watched.Items[0].DateWatched)
	assert.Equal(t, rating, watched.Items[0].Rating)
}

func TestMarkWatchedMoves(t *testing.T) {
	b := newFakeBackend()
	c := newController(t, b)
	ctx := context.Background()

	m, err := c.AddToWatch(ctx, alien)
	require.NoError(t, err)
	// warm both caches so the move has something to invalidate
	_, err = c.Load(ctx, models.ListToWatch, viewstate.DefaultParams())
	require.NoError(t, err)
	_, err = c.Load(ctx, models.ListWatched, viewstate.DefaultParams())
	require.NoError(t, err)

	_, err = c.MarkWatched(ctx, m.ID, "2024-05-05", 7.5)
	require.NoError(t, err)
	assertMoved(t, c, alien.ImdbID, "2024-05-05", 7.5)
}

func TestMoveLegacy(t *testing.T) {
	b := newFakeBackend()
	c := newController(t, b)
	ctx := context.Background()

	m, err := c.AddToWatch(ctx, alien)
	require.NoError(t, err)

	created, err := c.MoveLegacy(ctx, *m, "2024-05-06", 6)
	require.NoError(t, err)
	assert.NotEqual(t, m.ID, created.ID)
	assertMoved(t, c, alien.ImdbID, "2024-05-06", 6)

	_, err = c.MoveLegacy(ctx, models.Media{ID: "missing", Title: "Ghost", MediaType: models.MediaTypeMovie}, "2024-05-07", 1)
	assert.ErrorIs(t, err, client.ErrNotFound)
}

func TestFailedMutationKeepsCache(t *testing.T) {
	b := newFakeBackend()
	c := newController(t, b)
	ctx := context.Background()

	_, err := c.Load(ctx, models.ListToWatch, viewstate.DefaultParams())
	require.NoError(t, err)

	b.failAll = errors.New("service unavailable")
	_, err = c.AddToWatch(ctx, alien)
	require.Error(t, err)
	_, err = c.Delete(ctx, models.ListToWatch, "1")
	require.Error(t, err)

	// served from cache: no new fetch, so the failing backend is not hit
	_, err = c.Load(ctx, models.ListToWatch, viewstate.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 1, b.fetchCount())
}

func TestUpdateAndDelete(t *testing.T) {
	b := newFakeBackend()
	c := newController(t, b)
	ctx := context.Background()

	m, err := c.AddWatched(ctx, alien, "2024-01-01", 5)
	require.NoError(t, err)

	p := viewstate.DefaultParams()
	p.Filter = models.TagHalloween
	v, err := c.Load(ctx, models.ListWatched, p)
	require.NoError(t, err)
	assert.True(t, v.Empty())
	assert.Equal(t, 1, v.Total)

	tags := []models.Tag{models.TagHalloween}
	_, err = c.Update(ctx, models.ListWatched, m.ID, models.MediaUpdate{Tags: &tags})
	require.NoError(t, err)

	v, err = c.Load(ctx, models.ListWatched, p)
	require.NoError(t, err)
	assert.Len(t, v.Items, 1)

	msg, err := c.Delete(ctx, models.ListWatched, m.ID)
	require.NoError(t, err)
	assert.Contains(t, msg, m.ID)

	v, err = c.Load(ctx, models.ListWatched, viewstate.DefaultParams())
	require.NoError(t, err)
	assert.True(t, v.Empty())
}

func TestLoadSupersededByNewerRequest(t *testing.T) {
	b := newFakeBackend()
	started := make(chan struct{})
	b.block = func(ctx context.Context, n int) error {
		if n == 1 {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}
	c := newController(t, b)

	errc := make(chan error, 1)
	go func() {
		_, err := c.Load(context.Background(), models.ListToWatch, viewstate.DefaultParams())
		errc <- err
	}()
	<-started

	v, err := c.Load(context.Background(), models.ListToWatch, viewstate.DefaultParams())
	require.NoError(t, err)
	assert.True(t, v.Empty())

	assert.ErrorIs(t, <-errc, ErrSuperseded)
}

func TestInvalidateDuringFetchSkipsCache(t *testing.T) {
	b := newFakeBackend()
	var c *Controller
	b.block = func(_ context.Context, n int) error {
		if n == 1 {
			c.Invalidate(models.ListToWatch)
		}
		return nil
	}
	c = newController(t, b)
	ctx := context.Background()

	_, err := c.Load(ctx, models.ListToWatch, viewstate.DefaultParams())
	require.NoError(t, err)
	_, err = c.Load(ctx, models.ListToWatch, viewstate.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 2, b.fetchCount())
}
