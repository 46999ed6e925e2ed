// Package listview loads the to-watch and watched lists for display and runs
// the mutations a user triggers from them. Fetched lists are kept in a small
// query cache that each successful mutation invalidates.
package listview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/voyagen/watchvault/internal/client"
	"github.com/voyagen/watchvault/internal/models"
	"github.com/voyagen/watchvault/internal/viewstate"
)

// ErrSuperseded is returned by Load when a newer Load for the same list and
// query started before this one finished.
var ErrSuperseded = errors.New("listview: superseded by a newer request")

const defaultCacheSize = 64

// Backend is the media-list service. *client.Client satisfies it.
type Backend interface {
	FetchList(ctx context.Context, kind models.ListKind, opts client.ListOptions) ([]models.Media, error)
	Create(ctx context.Context, in models.MediaCreate) (*models.Media, error)
	Update(ctx context.Context, id string, in models.MediaUpdate) (*models.Media, error)
	Delete(ctx context.Context, id string) (string, error)
	MarkWatched(ctx context.Context, id string, in models.WatchedInput) (*models.Media, error)
}

type queryKey struct {
	kind      models.ListKind
	mediaType models.MediaType
	sort      string
}

type inflight struct {
	gen    uint64
	cancel context.CancelFunc
}

// Controller is safe for concurrent use.
type Controller struct {
	backend Backend
	cache   *lru.Cache[queryKey, []models.Media]

	mu       sync.Mutex
	gens     map[queryKey]uint64
	inflight map[queryKey]inflight
	epochs   map[models.ListKind]uint64
}

// New creates a controller whose query cache holds up to size lists; zero
// uses a default.
func New(backend Backend, size int) (*Controller, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[queryKey, []models.Media](size)
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	return &Controller{
		backend:  backend,
		cache:    c,
		gens:     make(map[queryKey]uint64),
		inflight: make(map[queryKey]inflight),
		epochs:   make(map[models.ListKind]uint64),
	}, nil
}

func keyFor(kind models.ListKind, p viewstate.Params) queryKey {
	k := queryKey{kind: kind, mediaType: p.MediaType}
	if s, ok := p.ServerSort(); ok {
		k.sort = s.String()
	}
	return k
}

// Load returns the view of list kind for p. The list is fetched once per
// (list, mediaType, server sort) and served from the query cache until a
// mutation invalidates it. An empty list is an empty View, not an error.
func (c *Controller) Load(ctx context.Context, kind models.ListKind, p viewstate.Params) (viewstate.View, error) {
	key := keyFor(kind, p)
	if items, ok := c.cache.Get(key); ok {
		return viewstate.Derive(items, p), nil
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if prev, ok := c.inflight[key]; ok {
		prev.cancel()
	}
	c.gens[key]++
	gen := c.gens[key]
	epoch := c.epochs[kind]
	c.inflight[key] = inflight{gen: gen, cancel: cancel}
	c.mu.Unlock()

	items, err := c.backend.FetchList(fetchCtx, kind, client.ListOptions{MediaType: p.MediaType, Sort: key.sort})

	c.mu.Lock()
	current := c.gens[key] == gen
	if current {
		delete(c.inflight, key)
	}
	fresh := c.epochs[kind] == epoch
	c.mu.Unlock()

	if !current {
		return viewstate.View{}, ErrSuperseded
	}
	if err != nil {
		return viewstate.View{}, fmt.Errorf("fetch %s list: %w", kind, err)
	}
	if fresh {
		c.cache.Add(key, items)
	}
	return viewstate.Derive(items, p), nil
}

// Invalidate drops every cached query of the given lists.
func (c *Controller) Invalidate(kinds ...models.ListKind) {
	c.mu.Lock()
	for _, k := range kinds {
		c.epochs[k]++
	}
	c.mu.Unlock()

	for _, key := range c.cache.Keys() {
		for _, k := range kinds {
			if key.kind == k {
				c.cache.Remove(key)
			}
		}
	}
}

// AddToWatch adds a search result to the to-watch list without a rating.
func (c *Controller) AddToWatch(ctx context.Context, r models.SearchResult) (*models.Media, error) {
	m, err := c.backend.Create(ctx, r.CreateInput(false))
	if err != nil {
		return nil, err
	}
	c.Invalidate(models.ListToWatch)
	return m, nil
}

// AddWatched adds a search result straight to the watched list.
func (c *Controller) AddWatched(ctx context.Context, r models.SearchResult, date string, rating float64) (*models.Media, error) {
	in := r.CreateInput(true)
	in.DateWatched = date
	in.Rating = rating
	m, err := c.backend.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	c.Invalidate(models.ListWatched)
	return m, nil
}

// MarkWatched moves a to-watch entry into the watched list with the service's
// single-step move.
func (c *Controller) MarkWatched(ctx context.Context, id, date string, rating float64) (*models.Media, error) {
	m, err := c.backend.MarkWatched(ctx, id, models.WatchedInput{DateWatched: date, Rating: rating})
	if err != nil {
		return nil, err
	}
	c.Invalidate(models.ListToWatch, models.ListWatched)
	return m, nil
}

// MoveLegacy moves an entry by creating a watched copy and then deleting the
// original, for services without the move endpoint. When the delete fails
// the copy is returned along with the error: the entry is then in both lists.
func (c *Controller) MoveLegacy(ctx context.Context, m models.Media, date string, rating float64) (*models.Media, error) {
	created, err := c.backend.Create(ctx, models.MediaCreate{
		Title:       m.Title,
		MediaType:   m.MediaType,
		Watched:     true,
		DateWatched: date,
		Rating:      rating,
		Ratings:     m.Ratings,
		Tags:        m.Tags,
		Thumbnail:   m.Thumbnail,
		Year:        m.Year,
		ImdbID:      m.ImdbID,
	})
	if err != nil {
		return nil, err
	}
	c.Invalidate(models.ListWatched)

	if _, err := c.backend.Delete(ctx, m.ID); err != nil {
		return created, fmt.Errorf("delete original %s: %w", m.ID, err)
	}
	c.Invalidate(models.ListToWatch)
	return created, nil
}

// Update applies a partial update to an entry of list kind.
func (c *Controller) Update(ctx context.Context, kind models.ListKind, id string, u models.MediaUpdate) (*models.Media, error) {
	m, err := c.backend.Update(ctx, id, u)
	if err != nil {
		return nil, err
	}
	c.Invalidate(kind)
	return m, nil
}

// Delete removes an entry of list kind and returns the service's message.
func (c *Controller) Delete(ctx context.Context, kind models.ListKind, id string) (string, error) {
	msg, err := c.backend.Delete(ctx, id)
	if err != nil {
		return "", err
	}
	c.Invalidate(kind)
	return msg, nil
}
