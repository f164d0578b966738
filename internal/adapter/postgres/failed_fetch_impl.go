package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/linkcheck-service/internal/entity"
)

// FailedFetchRepoImpl provides a concrete implementation for the
// FailedFetchRepository interface using PostgreSQL.
type FailedFetchRepoImpl struct {
	db *pgxpool.Pool
}

// NewFailedFetchRepo creates a new instance of FailedFetchRepoImpl.
func NewFailedFetchRepo(db *pgxpool.Pool) *FailedFetchRepoImpl {
	return &FailedFetchRepoImpl{db: db}
}

// SaveOrUpdate creates or updates a record for a failed profile fetch.
// It increments retry_count on conflict.
func (r *FailedFetchRepoImpl) SaveOrUpdate(ctx context.Context, failed *entity.FailedFetch) error {
	query := `
		INSERT INTO failed_fetches (url, failure_reason, http_status_code, last_attempt_at, retry_count, next_retry_at)
		VALUES ($1, $2, $3, $4, 1, $5)
		ON CONFLICT (url) DO UPDATE SET
			failure_reason = EXCLUDED.failure_reason,
			http_status_code = EXCLUDED.http_status_code,
			last_attempt_at = EXCLUDED.last_attempt_at,
			retry_count = failed_fetches.retry_count + 1,
			next_retry_at = EXCLUDED.next_retry_at;
	`
	_, err := r.db.Exec(ctx, query,
		failed.URL,
		failed.FailureReason,
		failed.HTTPStatusCode,
		failed.LastAttemptAt,
		failed.NextRetryAt,
	)
	return err
}

// FindRetryable retrieves a batch of profile URLs that are due for a retry.
func (r *FailedFetchRepoImpl) FindRetryable(ctx context.Context, limit int) ([]*entity.FailedFetch, error) {
	query := `
		SELECT id, url, COALESCE(failure_reason, ''), COALESCE(http_status_code, 0), last_attempt_at, retry_count, next_retry_at
		FROM failed_fetches
		WHERE next_retry_at <= NOW()
		ORDER BY next_retry_at ASC
		LIMIT NULLIF($1, 0);
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []*entity.FailedFetch
	for rows.Next() {
		var f entity.FailedFetch
		if err := rows.Scan(
			&f.ID,
			&f.URL,
			&f.FailureReason,
			&f.HTTPStatusCode,
			&f.LastAttemptAt,
			&f.RetryCount,
			&f.NextRetryAt,
		); err != nil {
			return nil, err
		}
		failures = append(failures, &f)
	}
	return failures, rows.Err()
}

// Delete removes a failed fetch record, typically after a successful scrape.
func (r *FailedFetchRepoImpl) Delete(ctx context.Context, url string) error {
	query := `DELETE FROM failed_fetches WHERE url = $1;`
	_, err := r.db.Exec(ctx, query, url)
	return err
}
