package service

import (
	"context"
	"log"
	"time"

	"github.com/voyagen/watchvault/internal/cache"
)

// Queue accepts ratings jobs for the background worker.
type Queue interface {
	EnqueueRatings(ctx context.Context, job cache.RatingsJob) error
	// RefreshRunning reports whether a full refresh currently holds the lock.
	RefreshRunning(ctx context.Context) bool
}

// JobSource hands ratings jobs to the worker. It returns nil, nil when no job
// arrived within timeout.
type JobSource interface {
	DequeueRatings(ctx context.Context, timeout time.Duration) (*cache.RatingsJob, error)
}

// RedisJobs is the Redis-backed Queue, JobSource and Locker.
type RedisJobs struct {
	Redis *cache.Redis
}

func (j RedisJobs) EnqueueRatings(ctx context.Context, job cache.RatingsJob) error {
	return cache.Enqueue(ctx, j.Redis, cache.RatingsQueue, job)
}

func (j RedisJobs) RefreshRunning(ctx context.Context) bool {
	return cache.IsLocked(ctx, j.Redis, cache.RefreshLock)
}

func (j RedisJobs) DequeueRatings(ctx context.Context, timeout time.Duration) (*cache.RatingsJob, error) {
	return cache.Dequeue(ctx, j.Redis, cache.RatingsQueue, timeout)
}

func (j RedisJobs) Lock(ctx context.Context, ttl time.Duration) (func(), error) {
	return cache.TryLock(ctx, j.Redis, cache.RefreshLock, ttl)
}

// RunRatingsWorker takes ratings jobs from src and runs them until ctx is
// cancelled.
func RunRatingsWorker(ctx context.Context, src JobSource, r *Refresher) {
	log.Println("ratings worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("ratings worker stopping")
			return
		default:
		}

		job, err := src.DequeueRatings(ctx, 5*time.Second)
		if err != nil {
			log.Printf("ratings worker: dequeue error: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
			}
			continue
		}
		if job == nil {
			continue // timeout, loop back to check ctx
		}

		log.Printf("ratings worker: processing job all=%v ids=%d reason=%q", job.All, len(job.MediaIDs), job.Reason)
		res, err := r.RefreshRatings(ctx, *job)
		if err != nil {
			// A full job that finds another full run in progress is covered by it.
			log.Printf("ratings worker: %v", err)
			continue
		}
		log.Printf("ratings worker: checked=%d updated=%d failed=%d", res.Checked, res.Updated, res.Failed)
	}
}
