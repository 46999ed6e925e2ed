package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voyagen/watchvault/internal/models"
	"github.com/voyagen/watchvault/internal/viewstate"
)

// Memory implements Store in process memory. It backs tests and STORE=memory
// runs; entries are lost on restart.
type Memory struct {
	mu    sync.RWMutex
	items map[string]models.Media
	now   func() time.Time
	last  time.Time // latest CreatedAt handed out
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]models.Media), now: time.Now}
}

func clone(m models.Media) models.Media {
	m.Tags = slices.Clone(m.Tags)
	m.DateWatchedSeasons = slices.Clone(m.DateWatchedSeasons)
	if m.Tags == nil {
		m.Tags = []models.Tag{}
	}
	if m.DateWatchedSeasons == nil {
		m.DateWatchedSeasons = []string{}
	}
	return m
}

func (s *Memory) ListMedia(_ context.Context, filter MediaFilter) ([]models.Media, error) {
	if !SortAllowed(filter.sortValue()) {
		panic("unsafe sort parameter: " + filter.sortValue())
	}
	sort, _ := viewstate.ParseSort(filter.sortValue())
	title := strings.ToLower(filter.Title)

	s.mu.RLock()
	items := []models.Media{}
	for _, m := range s.items {
		if filter.Watched != nil && m.Watched != *filter.Watched {
			continue
		}
		if filter.MediaType != nil && m.MediaType != *filter.MediaType {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(m.Title), title) {
			continue
		}
		items = append(items, clone(m))
	}
	s.mu.RUnlock()

	viewstate.SortAll(items, sort)
	return items, nil
}

func (s *Memory) GetMedia(_ context.Context, id string) (*models.Media, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	m = clone(m)
	return &m, nil
}

func (s *Memory) InsertMedia(_ context.Context, in models.MediaCreate) (*models.Media, error) {
	m := clone(models.Media{
		ID:                 uuid.NewString(),
		Title:              in.Title,
		MediaType:          in.MediaType,
		Watched:            in.Watched,
		DateWatched:        in.DateWatched,
		DateWatchedSeasons: in.DateWatchedSeasons,
		Rating:             in.Rating,
		Ratings:            in.Ratings,
		Tags:               in.Tags,
		Thumbnail:          in.Thumbnail,
		Year:               in.Year,
		ImdbID:             in.ImdbID,
		Version:            1,
	})

	s.mu.Lock()
	// Creation times are strictly increasing so insertion order survives a
	// coarse clock.
	created := s.now().UTC()
	if !created.After(s.last) {
		created = s.last.Add(time.Microsecond)
	}
	s.last = created
	m.CreatedAt = created
	s.items[m.ID] = m
	s.mu.Unlock()

	out := clone(m)
	return &out, nil
}

func (s *Memory) UpdateMedia(_ context.Context, id string, fields models.MediaUpdate) (*models.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if fields.Version != nil && *fields.Version != m.Version {
		return nil, ErrEditConflict
	}
	fields.Apply(&m)
	m.Version++
	m = clone(m)
	s.items[id] = m

	out := clone(m)
	return &out, nil
}

func (s *Memory) DeleteMedia(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Memory) MarkWatched(_ context.Context, id string, in models.WatchedInput) (*models.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.Watched {
		return nil, ErrAlreadyWatched
	}
	m.Watched = true
	m.DateWatched = in.DateWatched
	m.DateWatchedSeasons = in.DateWatchedSeasons
	m.Rating = in.Rating
	m.Version++
	m = clone(m)
	s.items[id] = m

	out := clone(m)
	return &out, nil
}
