package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/watchvault/internal/models"
)

// newTestPostgres connects to DATABASE_URL, migrating it first. Rows created
// through the returned insert helper are removed when the test ends.
func newTestPostgres(t *testing.T) (*Postgres, func(models.MediaCreate) *models.Media, string) {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	dir, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	require.NoError(t, EnsureExtension(dsn, "pg_trgm"))
	require.NoError(t, RunMigrations(dsn, "file://"+dir))

	ctx := context.Background()
	pg, err := NewPostgres(ctx, dsn)
	require.NoError(t, err)

	var ids []string
	t.Cleanup(func() {
		for _, id := range ids {
			_ = pg.DeleteMedia(context.Background(), id)
		}
		pg.Close()
	})

	// Titles carry a per-test marker so list queries only see this test's rows.
	marker := uuid.NewString()[:8]
	insert := func(in models.MediaCreate) *models.Media {
		t.Helper()
		in.Title = marker + " " + in.Title
		m, err := pg.InsertMedia(ctx, in)
		require.NoError(t, err)
		ids = append(ids, m.ID)
		return m
	}
	return pg, insert, marker
}

func TestPostgresInsertGetList(t *testing.T) {
	pg, insert, marker := newTestPostgres(t)
	ctx := context.Background()

	a := insert(models.MediaCreate{Title: "Alien", MediaType: models.MediaTypeMovie, Year: "1979", DateWatched: "2024-05-01"})
	insert(models.MediaCreate{Title: "Dark", MediaType: models.MediaTypeSeries, Watched: true, DateWatched: "2024-01-01",
		Tags: []models.Tag{models.TagHalloween}})
	b := insert(models.MediaCreate{Title: "Heat", MediaType: models.MediaTypeMovie, DateWatched: "2024-05-01"})

	got, err := pg.GetMedia(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.Version)
	assert.NotNil(t, got.Tags)
	assert.NotNil(t, got.DateWatchedSeasons)

	_, err = pg.GetMedia(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = pg.GetMedia(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	unwatched := false
	items, err := pg.ListMedia(ctx, MediaFilter{Watched: &unwatched, Title: marker})
	require.NoError(t, err)
	require.Len(t, items, 2)
	// same date: the later insert comes first
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)

	items, err = pg.ListMedia(ctx, MediaFilter{Title: marker, Sort: "title"})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, a.ID, items[0].ID)
}

func TestPostgresUpdateVersionCheck(t *testing.T) {
	pg, insert, _ := newTestPostgres(t)
	ctx := context.Background()
	m := insert(models.MediaCreate{Title: "Dark", MediaType: models.MediaTypeSeries, Watched: true, DateWatched: "2024-01-01"})

	rating := 9.0
	tags := []models.Tag{models.TagHalloween}
	updated, err := pg.UpdateMedia(ctx, m.ID, models.MediaUpdate{Rating: &rating, Tags: &tags, Version: &m.Version})
	require.NoError(t, err)
	assert.Equal(t, int32(2), updated.Version)
	assert.Equal(t, 9.0, updated.Rating)
	assert.Equal(t, tags, updated.Tags)

	// stale version
	_, err = pg.UpdateMedia(ctx, m.ID, models.MediaUpdate{Rating: &rating, Version: &m.Version})
	assert.ErrorIs(t, err, ErrEditConflict)

	_, err = pg.UpdateMedia(ctx, uuid.NewString(), models.MediaUpdate{Rating: &rating})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresMarkWatched(t *testing.T) {
	pg, insert, _ := newTestPostgres(t)
	ctx := context.Background()
	m := insert(models.MediaCreate{Title: "Alien", MediaType: models.MediaTypeMovie, DateWatched: "2024-05-01"})

	moved, err := pg.MarkWatched(ctx, m.ID, models.WatchedInput{DateWatched: "2024-06-01", Rating: 8})
	require.NoError(t, err)
	assert.True(t, moved.Watched)
	assert.Equal(t, "2024-06-01", moved.DateWatched)
	assert.Equal(t, 8.0, moved.Rating)
	assert.Equal(t, m.Version+1, moved.Version)

	_, err = pg.MarkWatched(ctx, m.ID, models.WatchedInput{DateWatched: "2024-06-02"})
	assert.ErrorIs(t, err, ErrAlreadyWatched)
	_, err = pg.MarkWatched(ctx, uuid.NewString(), models.WatchedInput{DateWatched: "2024-06-02"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresMarkWatchedConcurrent(t *testing.T) {
	pg, insert, _ := newTestPostgres(t)
	ctx := context.Background()
	m := insert(models.MediaCreate{Title: "Heat", MediaType: models.MediaTypeMovie})

	const n = 4
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = pg.MarkWatched(ctx, m.ID, models.WatchedInput{DateWatched: "2024-07-01"})
		}()
	}
	wg.Wait()

	var ok, already int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyWatched):
			already++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, already)

	got, err := pg.GetMedia(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Version+1, got.Version)
}
