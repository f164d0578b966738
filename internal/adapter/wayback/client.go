// Package wayback talks to the snapshot-availability and SavePageNow
// endpoints of the archive service.
package wayback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/user/linkcheck-service/pkg/httpclient"
)

// Snapshot is the closest archived copy of a page the service knows about.
// Timestamp is the service's 14-digit YYYYMMDDhhmmss form, stored verbatim.
type Snapshot struct {
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
}

type availabilityResponse struct {
	ArchivedSnapshots struct {
		Closest *Snapshot `json:"closest"`
	} `json:"archived_snapshots"`
}

// SaveResult is the raw outcome of a single save attempt. The submission
// retry policy lives with the caller, not here.
type SaveResult struct {
	StatusCode int
	// Location is the Content-Location header naming the new snapshot,
	// empty when the service did not provide one.
	Location string
}

// Client wraps the two archive endpoints.
type Client struct {
	http            *httpclient.Client
	availabilityURL string
	saveURL         string
}

// NewClient creates a Client against the given endpoints.
func NewClient(hc *httpclient.Client, availabilityURL, saveURL string) *Client {
	return &Client{
		http:            hc,
		availabilityURL: availabilityURL,
		saveURL:         saveURL,
	}
}

// Availability asks for the closest existing snapshot of target. A nil
// snapshot with nil error means the service answered and has none.
func (c *Client) Availability(ctx context.Context, target string) (*Snapshot, error) {
	resp, err := c.http.Do(ctx, http.MethodGet, c.availabilityURL+"?url="+url.QueryEscape(target))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding availability response for %s: %w", target, err)
	}
	return parsed.ArchivedSnapshots.Closest, nil
}

// Save issues one snapshot-creation request for target. It deliberately
// bypasses the generic retry loop: the save endpoint is rate-limited and
// the caller runs its own slower retry schedule.
func (c *Client) Save(ctx context.Context, target string) (*SaveResult, error) {
	resp, err := c.http.DoOnce(ctx, http.MethodGet, c.saveURL+"?url="+url.QueryEscape(target))
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		_ = resp.Body.Close()
	}()

	return &SaveResult{
		StatusCode: resp.StatusCode,
		Location:   resp.Header.Get("Content-Location"),
	}, nil
}
