package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voyagen/watchvault/internal/cache"
	"github.com/voyagen/watchvault/internal/models"
	"github.com/voyagen/watchvault/internal/ratings"
	"github.com/voyagen/watchvault/internal/store"
)

// ErrRefreshRunning is returned when another refresh holds the lock.
var ErrRefreshRunning = errors.New("ratings refresh already running")

const (
	defaultConcurrency = 4
	refreshLockTTL     = 30 * time.Minute
)

// MetadataSource looks up the OMDb record for an IMDb id. *omdb.Client
// satisfies it.
type MetadataSource interface {
	ByID(ctx context.Context, imdbID string) (*models.ExternalMetadata, error)
}

// Locker hands out the lock that keeps refresh runs from overlapping.
type Locker interface {
	Lock(ctx context.Context, ttl time.Duration) (unlock func(), err error)
}

// Refresher fills in and refreshes the external ratings blob of entries that
// carry an IMDb id.
type Refresher struct {
	Store       store.Store
	Metadata    MetadataSource
	Locker      Locker // optional
	Concurrency int
}

// RefreshResult summarizes one refresh run.
type RefreshResult struct {
	Checked int
	Updated int
	Failed  int
}

// RefreshRatings refreshes the entries named by job, or every entry when
// job.All is set. Only full runs take the refresh lock; a targeted job runs
// even while a full run holds it, since that run's snapshot may predate the
// entries it names. A failed lookup is logged and counted; it does not stop
// the run.
func (r *Refresher) RefreshRatings(ctx context.Context, job cache.RatingsJob) (RefreshResult, error) {
	var res RefreshResult

	if job.All && r.Locker != nil {
		unlock, err := r.Locker.Lock(ctx, refreshLockTTL)
		if err != nil {
			if errors.Is(err, cache.ErrLocked) {
				return res, ErrRefreshRunning
			}
			return res, fmt.Errorf("lock: %w", err)
		}
		defer unlock()
	}

	targets, err := r.targets(ctx, job)
	if err != nil {
		return res, err
	}

	limit := r.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	var checked, updated, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, m := range targets {
		if m.ImdbID == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			checked.Add(1)
			changed, err := r.refreshOne(gctx, m)
			switch {
			case err != nil:
				failed.Add(1)
				log.Printf("ratings: %s (%s): %v", m.Title, m.ImdbID, err)
			case changed:
				updated.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	res = RefreshResult{
		Checked: int(checked.Load()),
		Updated: int(updated.Load()),
		Failed:  int(failed.Load()),
	}
	if err != nil {
		return res, fmt.Errorf("refresh cancelled: %w", err)
	}
	return res, nil
}

func (r *Refresher) targets(ctx context.Context, job cache.RatingsJob) ([]models.Media, error) {
	if job.All {
		items, err := r.Store.ListMedia(ctx, store.MediaFilter{})
		if err != nil {
			return nil, fmt.Errorf("ListMedia: %w", err)
		}
		return items, nil
	}
	items := make([]models.Media, 0, len(job.MediaIDs))
	for _, id := range job.MediaIDs {
		m, err := r.Store.GetMedia(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("GetMedia %s: %w", id, err)
		}
		items = append(items, *m)
	}
	return items, nil
}

// refreshOne fetches the OMDb ratings for m and stores them when they differ
// from the current blob.
func (r *Refresher) refreshOne(ctx context.Context, m models.Media) (bool, error) {
	md, err := r.Metadata.ByID(ctx, m.ImdbID)
	if err != nil {
		return false, err
	}
	if md == nil || len(md.Ratings) == 0 {
		return false, nil
	}
	blob, err := ratings.Encode(md.Ratings)
	if err != nil {
		return false, err
	}
	if blob == m.Ratings {
		return false, nil
	}
	_, err = r.Store.UpdateMedia(ctx, m.ID, models.MediaUpdate{Ratings: &blob})
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
