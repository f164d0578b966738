package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/linkcheck-service/internal/adapter/wayback"
	"github.com/user/linkcheck-service/internal/entity"
	"github.com/user/linkcheck-service/internal/repository"
	"github.com/user/linkcheck-service/pkg/metrics"
)

// ArchiveService is the slice of the wayback client the archiver needs;
// narrowed to an interface so tests can stand in their own endpoints.
type ArchiveService interface {
	Availability(ctx context.Context, target string) (*wayback.Snapshot, error)
	Save(ctx context.Context, target string) (*wayback.SaveResult, error)
}

// Archiver reconciles link records against the archive service: a lookup
// pass settles unknown archive states, a submission pass requests new
// snapshots for links known to have none. Like validation, both passes are
// sequential with per-record persistence and a courtesy delay.
type Archiver struct {
	links      repository.LinkRepository
	service    ArchiveService
	delay      time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewArchiver creates a new Archiver. retryDelay separates submission
// attempts and is deliberately longer than other stage delays; the save
// endpoint rate-limits aggressively.
func NewArchiver(links repository.LinkRepository, service ArchiveService, delay time.Duration, maxRetries int, retryDelay time.Duration) *Archiver {
	return &Archiver{
		links:      links,
		service:    service,
		delay:      delay,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// CheckBatch settles the archive state of links with is_archived still
// NULL. A lookup transport failure is treated identically to "no snapshot
// exists": both persist archived=false, and eligibility for the submission
// pass follows from that.
func (a *Archiver) CheckBatch(ctx context.Context, limit int) (*entity.Report, error) {
	records, err := a.links.FindPendingArchiveCheck(ctx, limit)
	if err != nil {
		return nil, err
	}

	slog.Info("Checking archive availability", "count", len(records), "limit", limit)
	report := &entity.Report{Total: len(records)}

	for _, rec := range records {
		a.checkOne(ctx, rec, report)
		time.Sleep(a.delay)
	}

	slog.Info("Archive check complete",
		"total", report.Total, "archived", report.Archived, "not_archived", report.NotArchived, "errors", len(report.Errors))
	return report, nil
}

func (a *Archiver) checkOne(ctx context.Context, rec *entity.LinkRecord, report *entity.Report) {
	snap, err := a.service.Availability(ctx, rec.URL)
	switch {
	case err != nil:
		slog.Warn("Archive availability request failed", "url", rec.URL, "error", err)
		metrics.ArchiveLookups.WithLabelValues("error").Inc()
	case snap == nil:
		metrics.ArchiveLookups.WithLabelValues("missing").Inc()
	default:
		metrics.ArchiveLookups.WithLabelValues("found").Inc()
	}

	archived := err == nil && snap != nil
	rec.IsArchived = &archived
	if archived {
		rec.ArchivedURL = &snap.URL
		rec.ArchivedTimestamp = &snap.Timestamp
		report.Archived++
	} else {
		report.NotArchived++
	}

	if err := a.links.SaveArchiveState(ctx, rec); err != nil {
		slog.Error("Failed to persist archive state", "url", rec.URL, "error", err)
		report.AddError(rec.ID, rec.URL, err.Error())
	}
}

// SubmitBatch requests snapshots for links known to be unarchived. A
// record that exhausts its submission attempts stays unarchived and is
// counted, not escalated; the next run will try it again.
func (a *Archiver) SubmitBatch(ctx context.Context, limit int) (*entity.Report, error) {
	records, err := a.links.FindPendingSubmission(ctx, limit)
	if err != nil {
		return nil, err
	}

	slog.Info("Submitting links for archival", "count", len(records), "limit", limit)
	report := &entity.Report{Total: len(records)}

	for _, rec := range records {
		a.submitOne(ctx, rec, report)
		time.Sleep(a.delay)
	}

	slog.Info("Archive submission complete",
		"total", report.Total, "submitted", report.Submitted, "errors", len(report.Errors))
	return report, nil
}

func (a *Archiver) submitOne(ctx context.Context, rec *entity.LinkRecord, report *entity.Report) {
	archivedURL, ok := a.submit(ctx, rec.URL)
	if !ok {
		metrics.ArchiveSubmissions.WithLabelValues("failed").Inc()
		return
	}
	metrics.ArchiveSubmissions.WithLabelValues("saved").Inc()

	archived := true
	rec.IsArchived = &archived
	rec.ArchivedURL = &archivedURL

	if err := a.links.SaveArchiveState(ctx, rec); err != nil {
		slog.Error("Failed to persist submission result", "url", rec.URL, "error", err)
		report.AddError(rec.ID, rec.URL, err.Error())
		return
	}
	report.Submitted++
}

// submit runs the submission state machine for one URL: up to maxRetries
// single attempts, 200 or 302 counts as created-or-exists, a fixed
// retryDelay between attempts. The snapshot URL comes from the service's
// location header when present, else the target URL stands in until the
// next availability pass fills the real one.
func (a *Archiver) submit(ctx context.Context, target string) (string, bool) {
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		result, err := a.service.Save(ctx, target)
		switch {
		case err != nil:
			slog.Warn("Snapshot save attempt failed", "url", target, "attempt", attempt, "error", err)
		case result.StatusCode == http.StatusOK || result.StatusCode == http.StatusFound:
			if result.Location != "" {
				return result.Location, true
			}
			return target, true
		default:
			slog.Warn("Unexpected status from save endpoint",
				"url", target, "attempt", attempt, "status", result.StatusCode)
		}

		if attempt < a.maxRetries {
			select {
			case <-time.After(a.retryDelay):
			case <-ctx.Done():
				return "", false
			}
		}
	}
	return "", false
}
