package repository

import (
	"context"
	"time"
)

// VisitedRepository defines the interface for deduplication of listing
// discoveries, so a profile URL is not re-queued on every collector run.
type VisitedRepository interface {
	// MarkDiscovered marks a profile URL as discovered with an expiry.
	MarkDiscovered(ctx context.Context, url string, expiry time.Duration) error
	// IsDiscovered checks if a profile URL was discovered recently.
	IsDiscovered(ctx context.Context, url string) (bool, error)
	// RemoveDiscovered forgets a profile URL, used for forced re-collection.
	RemoveDiscovered(ctx context.Context, url string) error
}
