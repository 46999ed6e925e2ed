package scheduler

import (
	"context"
	"errors"
	"log"

	"github.com/voyagen/watchvault/internal/cache"
	"github.com/voyagen/watchvault/internal/service"
)

// RatingsRefreshJob refreshes the external ratings of every entry.
type RatingsRefreshJob struct {
	Refresher *service.Refresher
}

func (RatingsRefreshJob) Name() string { return "ratings-refresh" }

func (j RatingsRefreshJob) Run(ctx context.Context) error {
	res, err := j.Refresher.RefreshRatings(ctx, cache.RatingsJob{All: true, Reason: "schedule"})
	if errors.Is(err, service.ErrRefreshRunning) {
		log.Printf("scheduler: %s skipped, another refresh is running", j.Name())
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("scheduler: %s checked=%d updated=%d failed=%d", j.Name(), res.Checked, res.Updated, res.Failed)
	return nil
}
