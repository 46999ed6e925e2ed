package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RatingsJob asks the worker to refresh external ratings. An empty MediaIDs
// with All set refreshes every entry that has an IMDb id.
type RatingsJob struct {
	MediaIDs []string `json:"media_ids,omitempty"`
	All      bool     `json:"all"`
	Reason   string   `json:"reason,omitempty"`
}

// RatingsQueue is the list key used for the ratings job queue.
const RatingsQueue = "jobs:ratings"

// Enqueue pushes a job onto the left side of the queue list.
func Enqueue(ctx context.Context, r *Redis, queue string, job RatingsJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue marshal: %w", err)
	}
	return r.client.LPush(ctx, key(queue), data).Err()
}

// Dequeue blocks until a job is available on the right side of the list or
// the timeout expires. On timeout or shutdown it returns (nil, nil) so the
// caller can loop and check ctx.
func Dequeue(ctx context.Context, r *Redis, queue string, timeout time.Duration) (*RatingsJob, error) {
	result, err := r.client.BRPop(ctx, timeout, key(queue)).Result()
	if err != nil {
		if err == redis.Nil || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue dequeue: %w", err)
	}
	// BRPop returns [key, value].
	if len(result) < 2 {
		return nil, nil
	}
	var job RatingsJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("queue unmarshal: %w", err)
	}
	return &job, nil
}
