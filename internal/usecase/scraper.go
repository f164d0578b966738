package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/linkcheck-service/internal/entity"
	"github.com/user/linkcheck-service/internal/extract"
	"github.com/user/linkcheck-service/internal/repository"
)

const (
	initialBackoff = 5 * time.Minute
	maxFetchTries  = 5
	jitterFactor   = 0.2 // +/- 20%
)

// Scraper drains the discovery queue: fetch each profile page, extract the
// subject and its reference links, and store them with all validation
// fields null. Fetch failures are recorded with a retry schedule instead
// of being retried inline; RequeueDue feeds them back later.
type Scraper struct {
	queue    repository.QueueRepository
	subjects repository.SubjectRepository
	links    repository.LinkRepository
	failed   repository.FailedFetchRepository
	fetcher  repository.PageFetcher
	rendered repository.PageFetcher // optional, for pages that block plain clients
	delay    time.Duration
}

// NewScraper creates a new Scraper. rendered may be nil when headless
// fetching is disabled.
func NewScraper(
	queue repository.QueueRepository,
	subjects repository.SubjectRepository,
	links repository.LinkRepository,
	failed repository.FailedFetchRepository,
	fetcher repository.PageFetcher,
	rendered repository.PageFetcher,
	delay time.Duration,
) *Scraper {
	return &Scraper{
		queue:    queue,
		subjects: subjects,
		links:    links,
		failed:   failed,
		fetcher:  fetcher,
		rendered: rendered,
		delay:    delay,
	}
}

// Run processes up to limit queued profile URLs (0 = until the queue is
// empty). One bad page is reported and skipped, never aborting the drain.
func (s *Scraper) Run(ctx context.Context, limit int) (*entity.Report, error) {
	report := &entity.Report{}

	for limit <= 0 || report.Total < limit {
		profileURL, err := s.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Queue drained, which is a normal state.
				break
			}
			return report, fmt.Errorf("failed to pop URL from queue: %w", err)
		}

		report.Total++
		if err := s.processProfile(ctx, profileURL); err != nil {
			slog.Error("Profile scrape failed", "url", profileURL, "error", err)
			report.AddError(0, profileURL, err.Error())
		} else {
			report.Scraped++
		}

		time.Sleep(s.delay)
	}

	slog.Info("Scrape run complete", "processed", report.Total, "errors", len(report.Errors))
	return report, nil
}

func (s *Scraper) processProfile(ctx context.Context, profileURL string) error {
	page, err := s.fetch(ctx, profileURL)
	if err != nil {
		s.recordFailure(ctx, profileURL, 0, err.Error())
		return err
	}
	if page.StatusCode >= 400 {
		s.recordFailure(ctx, profileURL, page.StatusCode, fmt.Sprintf("status %d", page.StatusCode))
		return fmt.Errorf("profile fetch returned %d", page.StatusCode)
	}

	subject, links, err := extract.Profile(page.HTML, profileURL)
	if err != nil {
		s.recordFailure(ctx, profileURL, page.StatusCode, err.Error())
		return err
	}

	subjectID, err := s.subjects.UpsertBySlug(ctx, subject)
	if err != nil {
		return fmt.Errorf("failed to upsert subject for %s: %w", profileURL, err)
	}
	if err := s.links.InsertForSubject(ctx, subjectID, links); err != nil {
		return fmt.Errorf("failed to insert links for %s: %w", profileURL, err)
	}

	// If the page was previously failed, clear the stale record.
	if err := s.failed.Delete(ctx, profileURL); err != nil {
		slog.Warn("Failed to delete stale failed-fetch record", "url", profileURL, "error", err)
	}

	slog.Info("Profile scraped", "url", profileURL, "subject_id", subjectID, "links", len(links))
	return nil
}

// fetch tries the plain client first and falls back to the rendered
// fetcher when the host blocks non-browser traffic.
func (s *Scraper) fetch(ctx context.Context, profileURL string) (*entity.FetchedPage, error) {
	page, err := s.fetcher.Fetch(ctx, profileURL)
	if err == nil && page.StatusCode != http.StatusForbidden {
		return page, nil
	}
	if s.rendered == nil {
		return page, err
	}

	slog.Debug("Plain fetch blocked, retrying with rendered fetcher", "url", profileURL)
	return s.rendered.Fetch(ctx, profileURL)
}

// recordFailure schedules a retry with exponential backoff and jitter.
// Pages that have exhausted their tries stay in the table for operator
// inspection but are no longer rescheduled.
func (s *Scraper) recordFailure(ctx context.Context, profileURL string, status int, reason string) {
	now := time.Now().UTC()
	failure := &entity.FailedFetch{
		URL:            profileURL,
		FailureReason:  reason,
		HTTPStatusCode: status,
		LastAttemptAt:  now,
		NextRetryAt:    now.Add(backoffWithJitter(1)),
	}
	if err := s.failed.SaveOrUpdate(ctx, failure); err != nil {
		slog.Error("Failed to record fetch failure", "url", profileURL, "error", err)
	}
}

// RequeueDue pushes failed pages whose retry time has come back onto the
// queue, up to limit (0 = all due).
func (s *Scraper) RequeueDue(ctx context.Context, limit int) (int, error) {
	due, err := s.failed.FindRetryable(ctx, limit)
	if err != nil {
		return 0, err
	}

	requeued := 0
	for _, f := range due {
		if f.RetryCount >= maxFetchTries {
			slog.Warn("Profile fetch retries exhausted", "url", f.URL, "retries", f.RetryCount)
			continue
		}
		if err := s.queue.Push(ctx, f.URL); err != nil {
			return requeued, err
		}
		// Push the schedule out so the page is not re-queued again before
		// this attempt resolves.
		f.LastAttemptAt = time.Now().UTC()
		f.NextRetryAt = f.LastAttemptAt.Add(backoffWithJitter(f.RetryCount + 1))
		if err := s.failed.SaveOrUpdate(ctx, f); err != nil {
			slog.Warn("Failed to reschedule fetch retry", "url", f.URL, "error", err)
		}
		requeued++
	}
	return requeued, nil
}

func backoffWithJitter(attempt int) time.Duration {
	backoff := initialBackoff << uint(attempt-1)
	jitter := 1 + jitterFactor*(2*rand.Float64()-1)
	return time.Duration(float64(backoff) * jitter)
}
