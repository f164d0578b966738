package repository

import "context"

// QueueRepository defines the interface for the FIFO queue of discovered
// profile URLs awaiting scraping.
type QueueRepository interface {
	// Push adds a profile URL to the end of the queue.
	Push(ctx context.Context, url string) error
	// Pop removes and returns a profile URL from the front of the queue.
	Pop(ctx context.Context) (string, error)
	// Size returns the current number of queued URLs.
	Size(ctx context.Context) (int64, error)
}
