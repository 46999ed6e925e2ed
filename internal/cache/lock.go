package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned by TryLock when the lock is already held.
var ErrLocked = errors.New("lock is already held")

// RefreshLock serializes ratings refreshes across the cron job and the worker.
const RefreshLock = "locks:ratings-refresh"

const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`

// TryLock acquires the lock named k with SET NX EX. On success the returned
// unlock func must be called to release it; it only deletes the key if this
// holder still owns it. ErrLocked is returned when someone else holds it.
func TryLock(ctx context.Context, r *Redis, k string, ttl time.Duration) (unlock func(), err error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key(k), token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", k, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func() {
		// The request context may already be cancelled.
		_ = r.client.Eval(context.Background(), unlockScript, []string{key(k)}, token).Err()
	}, nil
}

// IsLocked reports whether the lock key exists.
func IsLocked(ctx context.Context, r *Redis, k string) bool {
	n, _ := r.client.Exists(ctx, key(k)).Result()
	return n > 0
}
