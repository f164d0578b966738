package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/linkcheck-service/internal/repository"
	"github.com/user/linkcheck-service/pkg/httpclient"
	"github.com/user/linkcheck-service/pkg/metrics"
	"github.com/user/linkcheck-service/pkg/utils"
)

const listingSelector = "div.hrd-listing a[href]"

// Collector walks the paginated listing and feeds newly discovered profile
// URLs into the scrape queue. Discovery is deduplicated through the
// visited set so periodic runs only enqueue what is genuinely new.
type Collector struct {
	queue    repository.QueueRepository
	visited  repository.VisitedRepository
	client   *httpclient.Client
	baseURL  string
	pathHint string
	delay    time.Duration
	expiry   time.Duration
}

// NewCollector creates a new Collector. pathHint filters listing anchors
// down to profile links; expiry bounds how long a discovery suppresses
// re-queueing.
func NewCollector(
	queue repository.QueueRepository,
	visited repository.VisitedRepository,
	client *httpclient.Client,
	baseURL, pathHint string,
	delay, expiry time.Duration,
) *Collector {
	return &Collector{
		queue:    queue,
		visited:  visited,
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		pathHint: pathHint,
		delay:    delay,
		expiry:   expiry,
	}
}

// Run crawls listing pages from startPage until a 404, an empty page, or
// maxPages (0 = no cap), returning how many profile URLs were enqueued.
// force clears the discovery marker before checking it, re-queueing
// everything the listing still shows.
func (c *Collector) Run(ctx context.Context, startPage, maxPages int, force bool) (int, error) {
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return 0, fmt.Errorf("invalid listing base URL %q: %w", c.baseURL, err)
	}

	enqueued := 0
	for page := startPage; ; page++ {
		if maxPages > 0 && page > startPage+maxPages-1 {
			slog.Info("Reached max pages for this run", "max_pages", maxPages)
			break
		}

		pageURL := c.baseURL + "/"
		if page > 1 {
			pageURL = fmt.Sprintf("%s/page/%d/", c.baseURL, page)
		}

		links, status, err := c.fetchListing(ctx, pageURL)
		if err != nil {
			slog.Error("Listing fetch failed, stopping collection", "page", page, "error", err)
			break
		}
		if status == http.StatusNotFound {
			slog.Info("No more listing pages", "page", page)
			break
		}
		if len(links) == 0 {
			slog.Info("No listing links found", "page", page)
			break
		}

		added := 0
		for _, href := range links {
			absolute, err := utils.ToAbsoluteURL(base, href)
			if err != nil || !strings.Contains(absolute, c.pathHint) {
				continue
			}
			queued, err := c.enqueue(ctx, absolute, force)
			if err != nil {
				return enqueued, err
			}
			if queued {
				added++
			}
		}
		enqueued += added
		slog.Info("Listing page collected", "page", page, "new_urls", added)

		if size, err := c.queue.Size(ctx); err == nil {
			metrics.DiscoveryQueueSize.Set(float64(size))
		}

		time.Sleep(c.delay)
	}

	return enqueued, nil
}

func (c *Collector) fetchListing(ctx context.Context, pageURL string) ([]string, int, error) {
	resp, err := c.client.Do(ctx, http.MethodGet, pageURL)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	var hrefs []string
	doc.Find(listingSelector).Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs, resp.StatusCode, nil
}

// enqueue pushes a profile URL unless it was discovered recently. The
// discovery marker is set after the push; a crash between the two only
// risks a duplicate queue entry, never a lost one.
func (c *Collector) enqueue(ctx context.Context, profileURL string, force bool) (bool, error) {
	if force {
		if err := c.visited.RemoveDiscovered(ctx, profileURL); err != nil {
			slog.Warn("Failed to clear discovery marker", "url", profileURL, "error", err)
		}
	} else {
		seen, err := c.visited.IsDiscovered(ctx, profileURL)
		if err != nil {
			return false, err
		}
		if seen {
			return false, nil
		}
	}

	if err := c.queue.Push(ctx, profileURL); err != nil {
		return false, err
	}
	if err := c.visited.MarkDiscovered(ctx, profileURL, c.expiry); err != nil {
		slog.Error("Failed to mark URL as discovered after queueing", "url", profileURL, "error", err)
	}
	return true, nil
}
