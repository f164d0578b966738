package usecase_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/linkcheck-service/internal/adapter/wayback"
	"github.com/user/linkcheck-service/internal/entity"
	"github.com/user/linkcheck-service/pkg/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

// fakeLinkRepo keeps link records in memory and mirrors the eligibility
// rules of the SQL queries, so selection-driven behavior (idempotency,
// monotonic archive state) is observable without a database.
type fakeLinkRepo struct {
	pending        []*entity.PendingLink
	records        []*entity.LinkRecord
	savedValid     []entity.LinkRecord
	savedArchive   []entity.LinkRecord
	inserted       map[int64][]*entity.LinkRecord
	failValidForID int64
}

func (f *fakeLinkRepo) FindPendingValidation(_ context.Context, limit int, force bool) ([]*entity.PendingLink, error) {
	var out []*entity.PendingLink
	for _, p := range f.pending {
		if !force && p.Link.CheckedAt != nil {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLinkRepo) FindPendingArchiveCheck(_ context.Context, limit int) ([]*entity.LinkRecord, error) {
	var out []*entity.LinkRecord
	for _, r := range f.records {
		if r.IsArchived != nil {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLinkRepo) FindPendingSubmission(_ context.Context, limit int) ([]*entity.LinkRecord, error) {
	var out []*entity.LinkRecord
	for _, r := range f.records {
		if r.IsArchived == nil || *r.IsArchived {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLinkRepo) SaveValidation(_ context.Context, link *entity.LinkRecord) error {
	if f.failValidForID != 0 && link.ID == f.failValidForID {
		return errors.New("simulated write failure")
	}
	f.savedValid = append(f.savedValid, *link)
	return nil
}

func (f *fakeLinkRepo) SaveArchiveState(_ context.Context, link *entity.LinkRecord) error {
	f.savedArchive = append(f.savedArchive, *link)
	return nil
}

func (f *fakeLinkRepo) InsertForSubject(_ context.Context, subjectID int64, links []*entity.LinkRecord) error {
	if f.inserted == nil {
		f.inserted = make(map[int64][]*entity.LinkRecord)
	}
	f.inserted[subjectID] = append(f.inserted[subjectID], links...)
	return nil
}

func (f *fakeLinkRepo) ListAll(_ context.Context) ([]*entity.LinkRecord, error) {
	return f.records, nil
}

type fakeSubjectRepo struct {
	subjects map[string]*entity.Subject
	nextID   int64
}

func (f *fakeSubjectRepo) UpsertBySlug(_ context.Context, subject *entity.Subject) (int64, error) {
	if f.subjects == nil {
		f.subjects = make(map[string]*entity.Subject)
	}
	if existing, ok := f.subjects[subject.Slug]; ok {
		subject.ID = existing.ID
	} else {
		f.nextID++
		subject.ID = f.nextID
	}
	f.subjects[subject.Slug] = subject
	return subject.ID, nil
}

func (f *fakeSubjectRepo) ListAll(_ context.Context) ([]*entity.Subject, error) {
	out := make([]*entity.Subject, 0, len(f.subjects))
	for _, s := range f.subjects {
		out = append(out, s)
	}
	return out, nil
}

type fakeQueue struct {
	items  []string
	pushed []string
}

func (f *fakeQueue) Push(_ context.Context, url string) error {
	f.items = append(f.items, url)
	f.pushed = append(f.pushed, url)
	return nil
}

func (f *fakeQueue) Pop(_ context.Context) (string, error) {
	if len(f.items) == 0 {
		return "", redis.Nil
	}
	url := f.items[0]
	f.items = f.items[1:]
	return url, nil
}

func (f *fakeQueue) Size(_ context.Context) (int64, error) {
	return int64(len(f.items)), nil
}

type fakeVisited struct {
	seen map[string]bool
}

func (f *fakeVisited) MarkDiscovered(_ context.Context, url string, _ time.Duration) error {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	f.seen[url] = true
	return nil
}

func (f *fakeVisited) IsDiscovered(_ context.Context, url string) (bool, error) {
	return f.seen[url], nil
}

func (f *fakeVisited) RemoveDiscovered(_ context.Context, url string) error {
	delete(f.seen, url)
	return nil
}

type fakeFailedRepo struct {
	byURL     map[string]*entity.FailedFetch
	retryable []*entity.FailedFetch
}

func (f *fakeFailedRepo) SaveOrUpdate(_ context.Context, failed *entity.FailedFetch) error {
	if f.byURL == nil {
		f.byURL = make(map[string]*entity.FailedFetch)
	}
	if existing, ok := f.byURL[failed.URL]; ok {
		failed.RetryCount = existing.RetryCount + 1
	}
	f.byURL[failed.URL] = failed
	return nil
}

func (f *fakeFailedRepo) FindRetryable(_ context.Context, limit int) ([]*entity.FailedFetch, error) {
	if limit > 0 && len(f.retryable) > limit {
		return f.retryable[:limit], nil
	}
	return f.retryable, nil
}

func (f *fakeFailedRepo) Delete(_ context.Context, url string) error {
	delete(f.byURL, url)
	return nil
}

type fakeFetcher struct {
	pages  map[string]*entity.FetchedPage
	errs   map[string]error
	served []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*entity.FetchedPage, error) {
	f.served = append(f.served, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if page, ok := f.pages[url]; ok {
		return page, nil
	}
	return &entity.FetchedPage{URL: url, StatusCode: 404}, nil
}

// fakeArchiveService scripts the archive endpoints: one availability answer
// per URL and a sequence of save statuses consumed attempt by attempt.
type fakeArchiveService struct {
	snapshots       map[string]*wayback.Snapshot
	availabilityErr error
	saveStatuses    []int
	saveLocation    string
	saveErr         error
	saveCalls       int
}

func (f *fakeArchiveService) Availability(_ context.Context, target string) (*wayback.Snapshot, error) {
	if f.availabilityErr != nil {
		return nil, f.availabilityErr
	}
	return f.snapshots[target], nil
}

func (f *fakeArchiveService) Save(_ context.Context, _ string) (*wayback.SaveResult, error) {
	f.saveCalls++
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	idx := f.saveCalls - 1
	if idx >= len(f.saveStatuses) {
		idx = len(f.saveStatuses) - 1
	}
	return &wayback.SaveResult{StatusCode: f.saveStatuses[idx], Location: f.saveLocation}, nil
}
