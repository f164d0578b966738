package repository

import (
	"context"

	"github.com/user/linkcheck-service/internal/entity"
)

// PageFetcher defines the contract for fetching a profile page for
// extraction. Implementations may be a plain HTTP client or a headless
// browser for pages that refuse non-browser traffic.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*entity.FetchedPage, error)
}
