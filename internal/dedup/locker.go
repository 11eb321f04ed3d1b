package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// KeyFor builds the debounce key for a dedup tuple. Camera-less alerts use 0
// as the camera component.
func KeyFor(projectID, cameraID int64, violationType string) string {
	return fmt.Sprintf("notify_lock:proj_%d:cam_%d:%s", projectID, cameraID, violationType)
}

// Locker is the ephemeral debounce lock over a shared Redis keyspace. Keys
// expire on TTL; there is no transactional relationship with the relational
// store, so a rolled-back alert write does not release an already-set key.
type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Acquire attempts an atomic insert-if-absent with TTL and reports whether
// the caller won the key. A false return means another alert for the same
// dedup tuple set the key within its TTL window.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, "locked", ttl).Result()
}

// Exists reports whether the key is currently held, without acquiring it.
func (l *Locker) Exists(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
