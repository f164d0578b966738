package usecase

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/linkcheck-service/internal/entity"
	"github.com/user/linkcheck-service/internal/extract"
	"github.com/user/linkcheck-service/internal/match"
	"github.com/user/linkcheck-service/internal/repository"
	"github.com/user/linkcheck-service/pkg/httpclient"
	"github.com/user/linkcheck-service/pkg/metrics"
)

// Pages larger than this are truncated before the content check.
const maxPageBytes = 2 << 20

// Validator runs the liveness probe and content check over link records.
// Processing is strictly sequential: one record is probed, checked, and
// committed before the next begins, with an enforced idle delay between
// records as courtesy to the remote hosts.
type Validator struct {
	links     repository.LinkRepository
	client    *httpclient.Client
	delay     time.Duration
	preferGet bool
}

// NewValidator creates a new Validator. preferGet skips the HEAD probe and
// goes straight to GET for hosts known to reject HEAD wholesale.
func NewValidator(links repository.LinkRepository, client *httpclient.Client, delay time.Duration, preferGet bool) *Validator {
	return &Validator{
		links:     links,
		client:    client,
		delay:     delay,
		preferGet: preferGet,
	}
}

// Run validates every eligible link: checked_at IS NULL unless force, up
// to limit records (0 = no limit). Each record's outcome is persisted
// individually; a record that fails to persist is reported and skipped,
// never aborting the batch.
func (v *Validator) Run(ctx context.Context, limit int, force bool) (*entity.Report, error) {
	pending, err := v.links.FindPendingValidation(ctx, limit, force)
	if err != nil {
		return nil, err
	}

	slog.Info("Validating links", "count", len(pending), "limit", limit, "force", force)
	report := &entity.Report{Total: len(pending)}

	for _, item := range pending {
		v.processOne(ctx, item, report)
		time.Sleep(v.delay)
	}

	slog.Info("Validation batch complete",
		"total", report.Total, "active", report.Active, "matched", report.Matched, "errors", len(report.Errors))
	return report, nil
}

// processOne applies the full per-record state transition: liveness, then
// content check (only for live links), then the checked_at stamp. Every
// outcome it computes is conclusive; transport failures have already been
// downgraded to negatives by the time anything is written.
func (v *Validator) processOne(ctx context.Context, item *entity.PendingLink, report *entity.Report) {
	rec := item.Link
	now := time.Now().UTC()

	outcome := v.probe(ctx, rec.URL)
	rec.IsActive = &outcome.active
	rec.LastStatusCode = outcome.statusCode

	// Start each pass from a clean content verdict.
	matched := false
	rec.ContainsName = &matched
	rec.PageText = nil

	if outcome.active {
		report.Active++
		text, reason := v.checkContent(ctx, rec.URL, item.SubjectName)
		metrics.ContentMatches.WithLabelValues(reason.String()).Inc()
		if reason != match.ReasonNone {
			matched = true
			rec.PageText = &text
			report.Matched++
		}
		slog.Debug("Content check", "url", rec.URL, "reason", reason.String())
	} else {
		report.Inactive++
	}

	rec.CheckedAt = &now

	if err := v.links.SaveValidation(ctx, rec); err != nil {
		slog.Error("Failed to persist validation result", "url", rec.URL, "error", err)
		report.AddError(rec.ID, rec.URL, err.Error())
	}
}

type livenessOutcome struct {
	active     bool
	statusCode *int
}

// probe determines whether a URL currently resolves: HEAD first, falling
// back to GET when HEAD transport-fails or answers >= 400 (classically
// 405). Transport failure after retries is a legitimate outcome, not an
// error: the link is simply inactive, with no status to record.
func (v *Validator) probe(ctx context.Context, url string) livenessOutcome {
	method := http.MethodHead
	if v.preferGet {
		method = http.MethodGet
	}

	start := time.Now()
	defer func() {
		metrics.ProbeDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	status, ok := v.attempt(ctx, method, url)
	if method == http.MethodHead && (!ok || status >= 400) {
		slog.Debug("HEAD probe unsatisfied, falling back to GET", "url", url, "head_ok", ok)
		status, ok = v.attempt(ctx, http.MethodGet, url)
	}
	if !ok {
		metrics.LinksChecked.WithLabelValues("inactive").Inc()
		return livenessOutcome{}
	}

	active := status < 400
	if active {
		metrics.LinksChecked.WithLabelValues("active").Inc()
	} else {
		metrics.LinksChecked.WithLabelValues("inactive").Inc()
	}
	return livenessOutcome{active: active, statusCode: &status}
}

func (v *Validator) attempt(ctx context.Context, method, url string) (int, bool) {
	resp, err := v.client.Do(ctx, method, url)
	if err != nil {
		slog.Debug("Probe transport failure", "method", method, "url", url, "error", err)
		return 0, false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
	return resp.StatusCode, true
}

// checkContent fetches the page and runs the match cascade against the
// subject's name. A failed fetch is a no-match, not an error; the returned
// text is only meaningful when the reason is not ReasonNone.
func (v *Validator) checkContent(ctx context.Context, url, subjectName string) (string, match.Reason) {
	resp, err := v.client.Do(ctx, http.MethodGet, url)
	if err != nil {
		slog.Debug("Content fetch failed", "url", url, "error", err)
		return "", match.ReasonNone
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		slog.Debug("Content read failed", "url", url, "error", err)
		return "", match.ReasonNone
	}

	text := extract.PageText(string(body))
	ok, reason := match.Name(subjectName, text)
	if !ok {
		return "", match.ReasonNone
	}
	return text, reason
}
