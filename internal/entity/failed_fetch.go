package entity

import "time"

// FailedFetch mirrors the `failed_fetches` PostgreSQL table schema. It
// tracks profile pages that could not be fetched or parsed, together with
// the retry schedule computed by the scraper.
type FailedFetch struct {
	ID             int64
	URL            string
	FailureReason  string
	HTTPStatusCode int
	LastAttemptAt  time.Time
	RetryCount     int
	NextRetryAt    time.Time
}
