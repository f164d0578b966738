package httpclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/linkcheck-service/pkg/httpclient"
)

func TestDoRetriesTransientStatusesThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.Options{MaxAttempts: 3, RetryDelay: time.Millisecond})

	resp, err := client.Do(context.Background(), http.MethodGet, srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.Options{MaxAttempts: 3, RetryDelay: time.Millisecond})

	resp, err := client.Do(context.Background(), http.MethodGet, srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	// 404 is a conclusive answer, not a transport failure.
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestDoExhaustsAttemptsOnPersistentServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.Options{MaxAttempts: 2, RetryDelay: time.Millisecond})

	_, err := client.Do(context.Background(), http.MethodGet, srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestDoObservesFixedDelayBetweenAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	const delay = 20 * time.Millisecond
	client := httpclient.New(httpclient.Options{MaxAttempts: 3, RetryDelay: delay})

	start := time.Now()
	_, err := client.Do(context.Background(), http.MethodGet, srv.URL)
	elapsed := time.Since(start)

	require.Error(t, err)
	// Two inter-attempt delays for three attempts.
	assert.GreaterOrEqual(t, elapsed, 2*delay)
}

func TestDoOnceReturnsRetryableStatusToCaller(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.Options{MaxAttempts: 3, RetryDelay: time.Millisecond})

	resp, err := client.DoOnce(context.Background(), http.MethodGet, srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestDoSetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.Options{UserAgent: "linkcheck-test/1.0"})

	resp, err := client.Do(context.Background(), http.MethodGet, srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "linkcheck-test/1.0", got)
}
