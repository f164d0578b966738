package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/linkcheck-service/pkg/utils"
)

const discoveredPrefix = "discovered:"

// VisitedRepoImpl provides a concrete implementation for the
// VisitedRepository interface using Redis keys with expiry. Keys are
// hashed URLs so arbitrary profile URLs stay safe as Redis keys.
type VisitedRepoImpl struct {
	client *redis.Client
}

// NewVisitedRepo creates a new instance of VisitedRepoImpl.
func NewVisitedRepo(client *redis.Client) *VisitedRepoImpl {
	return &VisitedRepoImpl{client: client}
}

func (r *VisitedRepoImpl) generateKey(url string) string {
	return fmt.Sprintf("%s%s", discoveredPrefix, utils.HashURL(url))
}

// MarkDiscovered marks a profile URL as discovered with an expiry, after
// which the collector may re-queue it.
func (r *VisitedRepoImpl) MarkDiscovered(ctx context.Context, url string, expiry time.Duration) error {
	return r.client.SetEx(ctx, r.generateKey(url), "1", expiry).Err()
}

// IsDiscovered checks if a profile URL was discovered recently.
func (r *VisitedRepoImpl) IsDiscovered(ctx context.Context, url string) (bool, error) {
	val, err := r.client.Exists(ctx, r.generateKey(url)).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}

// RemoveDiscovered forgets a profile URL, used for forced re-collection.
func (r *VisitedRepoImpl) RemoveDiscovered(ctx context.Context, url string) error {
	return r.client.Del(ctx, r.generateKey(url)).Err()
}
