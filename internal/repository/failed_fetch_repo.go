package repository

import (
	"context"

	"github.com/user/linkcheck-service/internal/entity"
)

// FailedFetchRepository defines the interface for managing profile pages
// that failed to be fetched or parsed.
type FailedFetchRepository interface {
	// SaveOrUpdate creates or updates a record for a failed fetch.
	SaveOrUpdate(ctx context.Context, failed *entity.FailedFetch) error
	// FindRetryable retrieves a batch of URLs that are due for a retry.
	FindRetryable(ctx context.Context, limit int) ([]*entity.FailedFetch, error)
	// Delete removes a failed fetch record, typically after a successful scrape.
	Delete(ctx context.Context, url string) error
}
