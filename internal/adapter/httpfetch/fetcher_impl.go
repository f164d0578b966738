// Package httpfetch implements PageFetcher with the plain retrying HTTP
// client. This is the default fetcher; the headless-browser one exists for
// pages that refuse non-browser traffic.
package httpfetch

import (
	"context"
	"io"
	"net/http"

	"github.com/user/linkcheck-service/internal/entity"
	"github.com/user/linkcheck-service/pkg/httpclient"
)

// Profile pages are small; anything past this is not a page we can use.
const maxBodyBytes = 5 << 20

// FetcherImpl fetches pages over plain HTTP.
type FetcherImpl struct {
	client *httpclient.Client
}

// NewFetcher creates a new instance of FetcherImpl.
func NewFetcher(client *httpclient.Client) *FetcherImpl {
	return &FetcherImpl{client: client}
}

// Fetch retrieves url and returns the final status plus body. Non-2xx
// statuses are returned to the caller, which decides whether to fall back
// to the rendered fetcher or record a failure.
func (f *FetcherImpl) Fetch(ctx context.Context, url string) (*entity.FetchedPage, error) {
	resp, err := f.client.Do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	return &entity.FetchedPage{
		URL:        url,
		StatusCode: resp.StatusCode,
		HTML:       string(body),
	}, nil
}
