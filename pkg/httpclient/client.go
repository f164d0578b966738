// Package httpclient provides the outbound HTTP client shared by every
// pipeline stage: bounded timeout, bounded retries for transient failures,
// and a fixed inter-attempt delay. Retry policy operates below the HTTP
// semantic layer; any status outside the retryable set is returned to the
// caller as a successful transport result, whatever it means to them.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 500 * time.Millisecond
	defaultTimeout     = 10 * time.Second
)

// Statuses retried until attempts run out. Everything else, 4xx included,
// is a conclusive answer from the server.
var retryableStatuses = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Options configure a Client. Zero values fall back to defaults.
type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
	UserAgent   string
}

// Client is a retrying HTTP client. Exhausting all attempts surfaces as a
// transport error; callers downgrade that to whatever negative outcome
// their stage defines.
type Client struct {
	http        *http.Client
	maxAttempts int
	retryDelay  time.Duration
	userAgent   string
}

// New creates a Client with the given options.
func New(opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		http:        &http.Client{Timeout: opts.Timeout},
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		userAgent:   opts.UserAgent,
	}
}

// Do issues method+url, retrying connection-level failures and retryable
// server statuses up to MaxAttempts with a fixed delay between attempts.
// The caller owns the returned response body.
func (c *Client) Do(ctx context.Context, method, url string) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.DoOnce(ctx, method, url)
		if err != nil {
			lastErr = err
		} else if retryableStatuses[resp.StatusCode] {
			lastErr = fmt.Errorf("server returned %d", resp.StatusCode)
			drain(resp)
		} else {
			return resp, nil
		}

		if attempt < c.maxAttempts {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("%s %s failed after %d attempts: %w", method, url, c.maxAttempts, lastErr)
}

// DoOnce issues a single attempt with no retry. Callers that run their own
// retry state machine (the archive submitter) use this directly.
func (c *Client) DoOnce(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.http.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}
