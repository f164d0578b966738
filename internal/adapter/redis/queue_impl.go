package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const discoveryQueueKey = "linkcheck:discovery"

// QueueRepoImpl provides a concrete implementation for the QueueRepository
// interface using a Redis list. The collector pushes profile URLs, the
// scraper pops them; a run interrupted mid-way resumes from the queue.
type QueueRepoImpl struct {
	client *redis.Client
}

// NewQueueRepo creates a new instance of QueueRepoImpl.
func NewQueueRepo(client *redis.Client) *QueueRepoImpl {
	return &QueueRepoImpl{client: client}
}

// Push adds a profile URL to the left side of the list.
func (r *QueueRepoImpl) Push(ctx context.Context, url string) error {
	return r.client.LPush(ctx, discoveryQueueKey, url).Err()
}

// Pop removes and returns a profile URL from the right side of the list.
// Returns redis.Nil when the queue is empty.
func (r *QueueRepoImpl) Pop(ctx context.Context) (string, error) {
	return r.client.RPop(ctx, discoveryQueueKey).Result()
}

// Size returns the current number of queued URLs.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, discoveryQueueKey).Result()
}
