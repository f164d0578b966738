package usecase_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/linkcheck-service/internal/usecase"
)

func listingServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/hrdrecord/":
			fmt.Fprintf(w, `<html><body><div class="hrd-listing">
				<a href="/hrdrecord/alpha/">Alpha</a>
				<a href="%s/hrdrecord/beta/">Beta</a>
				<a href="/about/">About this site</a>
			</div></body></html>`, srv.URL)
		case "/hrdrecord/page/2/":
			fmt.Fprint(w, `<html><body><div class="hrd-listing">
				<a href="/hrdrecord/gamma/">Gamma</a>
			</div></body></html>`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return srv
}

func newTestCollector(srv *httptest.Server, queue *fakeQueue, visited *fakeVisited) *usecase.Collector {
	return usecase.NewCollector(
		queue, visited, testClient(),
		srv.URL+"/hrdrecord", "/hrdrecord/",
		0, time.Hour,
	)
}

func TestCollectorWalksPagesUntilNotFound(t *testing.T) {
	srv := listingServer(t)
	defer srv.Close()

	queue := &fakeQueue{}
	visited := &fakeVisited{}
	c := newTestCollector(srv, queue, visited)

	enqueued, err := c.Run(context.Background(), 1, 0, false)
	require.NoError(t, err)

	// Two profile links on page one, one on page two; the /about/ anchor
	// is filtered out, and page three answers 404.
	assert.Equal(t, 3, enqueued)
	assert.Equal(t, []string{
		srv.URL + "/hrdrecord/alpha/",
		srv.URL + "/hrdrecord/beta/",
		srv.URL + "/hrdrecord/gamma/",
	}, queue.pushed)

	for _, url := range queue.pushed {
		seen, err := visited.IsDiscovered(context.Background(), url)
		require.NoError(t, err)
		assert.True(t, seen, url)
	}
}

func TestCollectorSecondRunEnqueuesNothing(t *testing.T) {
	srv := listingServer(t)
	defer srv.Close()

	queue := &fakeQueue{}
	visited := &fakeVisited{}
	c := newTestCollector(srv, queue, visited)

	first, err := c.Run(context.Background(), 1, 0, false)
	require.NoError(t, err)
	require.Equal(t, 3, first)

	second, err := c.Run(context.Background(), 1, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 0, second)
	assert.Len(t, queue.pushed, 3)
}

func TestCollectorForceRequeuesDiscovered(t *testing.T) {
	srv := listingServer(t)
	defer srv.Close()

	queue := &fakeQueue{}
	visited := &fakeVisited{}
	c := newTestCollector(srv, queue, visited)

	_, err := c.Run(context.Background(), 1, 0, false)
	require.NoError(t, err)

	forced, err := c.Run(context.Background(), 1, 0, true)
	require.NoError(t, err)
	assert.Equal(t, 3, forced)
	assert.Len(t, queue.pushed, 6)
}

func TestCollectorRespectsMaxPages(t *testing.T) {
	srv := listingServer(t)
	defer srv.Close()

	queue := &fakeQueue{}
	visited := &fakeVisited{}
	c := newTestCollector(srv, queue, visited)

	enqueued, err := c.Run(context.Background(), 1, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 2, enqueued)
}

func TestCollectorStartsMidway(t *testing.T) {
	srv := listingServer(t)
	defer srv.Close()

	queue := &fakeQueue{}
	visited := &fakeVisited{}
	c := newTestCollector(srv, queue, visited)

	enqueued, err := c.Run(context.Background(), 2, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, enqueued)
	assert.Equal(t, []string{srv.URL + "/hrdrecord/gamma/"}, queue.pushed)
}
