package usecase_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/linkcheck-service/internal/entity"
	"github.com/user/linkcheck-service/internal/usecase"
	"github.com/user/linkcheck-service/pkg/httpclient"
)

func testClient() *httpclient.Client {
	return httpclient.New(httpclient.Options{MaxAttempts: 2, RetryDelay: time.Millisecond, Timeout: 5 * time.Second})
}

func pendingFor(id int64, url, name string) *entity.PendingLink {
	return &entity.PendingLink{
		Link:        &entity.LinkRecord{ID: id, SubjectID: 1, URL: url},
		SubjectName: name,
	}
}

func TestValidatorHeadRejectedFallsBackToGet(t *testing.T) {
	var headCount, getCount atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			headCount.Add(1)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		getCount.Add(1)
		w.Write([]byte("<html><body><p>A profile about Jane Doe and her work.</p></body></html>"))
	}))
	defer srv.Close()

	repo := &fakeLinkRepo{pending: []*entity.PendingLink{pendingFor(1, srv.URL, "Jane Doe")}}
	v := usecase.NewValidator(repo, testClient(), 0, false)

	report, err := v.Run(context.Background(), 0, false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Active)
	assert.Equal(t, 1, report.Matched)
	assert.Empty(t, report.Errors)

	require.Len(t, repo.savedValid, 1)
	saved := repo.savedValid[0]
	require.NotNil(t, saved.IsActive)
	assert.True(t, *saved.IsActive)
	require.NotNil(t, saved.LastStatusCode)
	assert.Equal(t, http.StatusOK, *saved.LastStatusCode)
	require.NotNil(t, saved.ContainsName)
	assert.True(t, *saved.ContainsName)
	require.NotNil(t, saved.PageText)
	assert.Contains(t, *saved.PageText, "Jane Doe")
	assert.NotNil(t, saved.CheckedAt)

	assert.Equal(t, int32(1), headCount.Load())
	// One fallback probe plus one content fetch.
	assert.Equal(t, int32(2), getCount.Load())
}

func TestValidatorPersistentServerErrorYieldsInactiveWithoutStatus(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	repo := &fakeLinkRepo{pending: []*entity.PendingLink{pendingFor(1, srv.URL, "Jane Doe")}}
	v := usecase.NewValidator(repo, testClient(), 0, false)

	report, err := v.Run(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inactive)

	require.Len(t, repo.savedValid, 1)
	saved := repo.savedValid[0]
	require.NotNil(t, saved.IsActive)
	assert.False(t, *saved.IsActive)
	// Retries exhausted on both probes: no conclusive status to record.
	assert.Nil(t, saved.LastStatusCode)
	require.NotNil(t, saved.ContainsName)
	assert.False(t, *saved.ContainsName)
	assert.Nil(t, saved.PageText)
	assert.NotNil(t, saved.CheckedAt)

	// Two attempts each for the HEAD probe and the GET fallback.
	assert.Equal(t, int32(4), requests.Load())
}

func TestValidatorSkipsContentCheckForDeadLinks(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	repo := &fakeLinkRepo{pending: []*entity.PendingLink{pendingFor(1, srv.URL, "Jane Doe")}}
	v := usecase.NewValidator(repo, testClient(), 0, false)

	report, err := v.Run(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inactive)
	assert.Equal(t, 0, report.Matched)

	require.Len(t, repo.savedValid, 1)
	saved := repo.savedValid[0]
	require.NotNil(t, saved.LastStatusCode)
	assert.Equal(t, http.StatusNotFound, *saved.LastStatusCode)
	require.NotNil(t, saved.ContainsName)
	assert.False(t, *saved.ContainsName)
	assert.Nil(t, saved.PageText)

	// HEAD then fallback GET, and nothing else: a dead link is never
	// fetched for content.
	assert.Equal(t, int32(2), requests.Load())
}

func TestValidatorActiveButNameAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>An unrelated page about something else.</p></body></html>"))
	}))
	defer srv.Close()

	repo := &fakeLinkRepo{pending: []*entity.PendingLink{pendingFor(1, srv.URL, "Xqzlbv Mmtrpk")}}
	v := usecase.NewValidator(repo, testClient(), 0, false)

	report, err := v.Run(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Active)
	assert.Equal(t, 0, report.Matched)

	require.Len(t, repo.savedValid, 1)
	saved := repo.savedValid[0]
	require.NotNil(t, saved.IsActive)
	assert.True(t, *saved.IsActive)
	require.NotNil(t, saved.ContainsName)
	assert.False(t, *saved.ContainsName)
	assert.Nil(t, saved.PageText)
}

func TestValidatorPreferGetSkipsHead(t *testing.T) {
	var headCount atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			headCount.Add(1)
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	repo := &fakeLinkRepo{pending: []*entity.PendingLink{pendingFor(1, srv.URL, "Jane Doe")}}
	v := usecase.NewValidator(repo, testClient(), 0, true)

	_, err := v.Run(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, int32(0), headCount.Load())
}

func TestValidatorIsolatesPersistenceFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	repo := &fakeLinkRepo{
		pending: []*entity.PendingLink{
			pendingFor(1, srv.URL, "A One"),
			pendingFor(2, srv.URL, "B Two"),
			pendingFor(3, srv.URL, "C Three"),
		},
		failValidForID: 2,
	}
	v := usecase.NewValidator(repo, testClient(), 0, false)

	report, err := v.Run(context.Background(), 0, false)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, int64(2), report.Errors[0].ID)

	// The other two records landed despite the failure in the middle.
	require.Len(t, repo.savedValid, 2)
	assert.Equal(t, int64(1), repo.savedValid[0].ID)
	assert.Equal(t, int64(3), repo.savedValid[1].ID)
}

func TestValidatorSecondRunIsNoOpWithoutForce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	repo := &fakeLinkRepo{pending: []*entity.PendingLink{
		pendingFor(1, srv.URL, "A One"),
		pendingFor(2, srv.URL, "B Two"),
	}}
	v := usecase.NewValidator(repo, testClient(), 0, false)

	first, err := v.Run(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Total)

	// Everything now carries checked_at, so a rerun selects nothing.
	second, err := v.Run(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Total)
	assert.Len(t, repo.savedValid, 2)

	// force re-selects regardless of checked_at.
	forced, err := v.Run(context.Background(), 0, true)
	require.NoError(t, err)
	assert.Equal(t, 2, forced.Total)
}

func TestValidatorHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	repo := &fakeLinkRepo{pending: []*entity.PendingLink{
		pendingFor(1, srv.URL, "A One"),
		pendingFor(2, srv.URL, "B Two"),
		pendingFor(3, srv.URL, "C Three"),
	}}
	v := usecase.NewValidator(repo, testClient(), 0, false)

	report, err := v.Run(context.Background(), 2, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Len(t, repo.savedValid, 2)
}
