// Package crawl runs crawl cycles: it fetches listing pages, extracts
// listings, and hands the batch to the reconciliation engine. It also guards
// against overlapping cycles and can trigger cycles on a schedule.
package crawl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/autotrack"
	"github.com/google/uuid"
)

// Default crawl settings.
const (
	DefaultMaxPages    = 2
	DefaultPageTimeout = 15 * time.Second
	DefaultMinDelay    = 2 * time.Second
	DefaultMaxDelay    = 4 * time.Second
)

// MessageNoListings is the result message of a cycle that found nothing.
const MessageNoListings = "no listings found"

// Crawler runs crawl cycles.
type Crawler struct {
	Fetchers   autotrack.PageFetcherOpener
	Extractor  autotrack.Extractor
	Reconciler autotrack.Reconciler
	Site       autotrack.Site

	// Pacer is waited on before every page but the first. Optional.
	Pacer autotrack.DomainLimiter

	// Archiver keeps fetched page content of successful cycles. Optional.
	Archiver autotrack.PageArchiver

	Logger *slog.Logger

	MaxPages    int
	PageTimeout time.Duration
	RetryDelays []time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// page holds the outcome of fetching and extracting one listing page.
type page struct {
	listings []*autotrack.Listing
	hash     uint64
}

// RunCycle fetches up to MaxPages listing pages, reconciles every listing
// found, and reports the outcome. It never returns nil.
func (c *Crawler) RunCycle(ctx context.Context) *autotrack.CycleResult {
	result := &autotrack.CycleResult{
		RunID:     uuid.NewString(),
		StartedAt: c.now(),
	}
	logger := c.logger().With("run_id", result.RunID)
	defer func() {
		result.FinishedAt = c.now()
		logger.Info("crawl cycle finished",
			"success", result.Success,
			"message", result.Message,
			"pages", result.Pages,
			"listings", result.Listings,
			"duration", result.FinishedAt.Sub(result.StartedAt),
		)
	}()

	logger.Info("crawl cycle started", "site", c.Site.String(), "max_pages", c.maxPages())

	archive := c.openArchive(ctx, result.RunID, logger)

	batch, err := c.collect(ctx, result, archive, logger)
	if err != nil {
		abortArchive(archive, logger)
		result.Message = err.Error()
		return result
	}

	if len(batch) == 0 {
		abortArchive(archive, logger)
		result.Message = MessageNoListings
		return result
	}

	rr, err := c.Reconciler.Reconcile(ctx, batch)
	if err != nil {
		abortArchive(archive, logger)
		logger.Error("reconcile batch", "err", err)
		result.Message = fmt.Sprintf("reconcile: %v", err)
		return result
	}

	if archive != nil {
		if err := archive.Commit(); err != nil {
			logger.Warn("commit page archive", "err", err)
		}
	}

	result.Success = true
	result.Inserted = rr.Inserted
	result.Updated = rr.Updated
	result.Removed = rr.Removed
	result.Failed = rr.Failed
	result.Message = fmt.Sprintf("%d new, %d updated, %d removed", rr.Inserted, rr.Updated, rr.Removed)
	return result
}

// collect fetches pages sequentially and returns every extracted listing.
// Paging stops at the first fetch failure, empty page, or repeated page.
// Only failing to open the fetcher is returned as an error.
func (c *Crawler) collect(ctx context.Context, result *autotrack.CycleResult, archive autotrack.PageArchive, logger *slog.Logger) ([]*autotrack.Listing, error) {
	fetcher, err := c.Fetchers.Open(ctx)
	if err != nil {
		logger.Error("open page fetcher", "err", err)
		return nil, fmt.Errorf("open page fetcher: %w", err)
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("close page fetcher", "err", err)
		}
	}()

	host := c.host()
	seen := make(map[uint64]int)
	var batch []*autotrack.Listing

	for n := 1; n <= c.maxPages(); n++ {
		if n > 1 && c.Pacer != nil {
			if err := c.Pacer.Wait(ctx, host); err != nil {
				logger.Warn("page pacing interrupted", "page", n, "err", err)
				break
			}
		}

		p, err := c.fetchPage(ctx, fetcher, n, archive, logger)
		if err != nil {
			logger.Error("fetch page", "page", n, "err", err)
			break
		}
		result.Pages++

		if first, ok := seen[p.hash]; ok {
			logger.Info("page repeats earlier page", "page", n, "earlier_page", first)
			break
		}
		seen[p.hash] = n

		if len(p.listings) == 0 {
			logger.Info("page has no listings", "page", n)
			break
		}

		batch = append(batch, p.listings...)
		result.Listings += len(p.listings)
		logger.Info("page extracted", "page", n, "listings", len(p.listings))
	}

	return batch, nil
}

// fetchPage fetches, archives, and extracts listing page n.
func (c *Crawler) fetchPage(ctx context.Context, fetcher autotrack.PageFetcher, n int, archive autotrack.PageArchive, logger *slog.Logger) (*page, error) {
	timeout := c.pageTimeout()
	content, err := FetchWithRetry(ctx, n, func(ctx context.Context, n int) (string, error) {
		return fetcher.FetchPage(ctx, n, timeout)
	}, logger, c.RetryDelays)
	if err != nil {
		return nil, err
	}

	if archive != nil {
		pageURL, _ := c.Site.PageURL(n)
		if err := archive.SavePage(ctx, n, pageURL, content); err != nil {
			logger.Warn("archive page", "page", n, "err", err)
		}
	}

	seq, err := c.Extractor.Extract(content)
	if err != nil {
		return nil, &autotrack.FetchError{Page: n, Err: err}
	}

	p := &page{hash: xxhash.Sum64String(content)}
	for listing, err := range seq {
		if err != nil {
			logger.Warn("skip listing card", "page", n, "err", err)
			continue
		}
		p.listings = append(p.listings, listing)
	}
	return p, nil
}

func (c *Crawler) openArchive(ctx context.Context, runID string, logger *slog.Logger) autotrack.PageArchive {
	if c.Archiver == nil {
		return nil
	}
	archive, err := c.Archiver.OpenArchive(ctx, runID)
	if err != nil {
		logger.Warn("open page archive", "err", err)
		return nil
	}
	return archive
}

func abortArchive(archive autotrack.PageArchive, logger *slog.Logger) {
	if archive == nil {
		return
	}
	if err := archive.Abort(); err != nil {
		logger.Warn("abort page archive", "err", err)
	}
}

func (c *Crawler) host() string {
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil {
		return c.Site.BaseURL
	}
	return u.Host
}

func (c *Crawler) maxPages() int {
	if c.MaxPages > 0 {
		return c.MaxPages
	}
	return DefaultMaxPages
}

func (c *Crawler) pageTimeout() time.Duration {
	if c.PageTimeout > 0 {
		return c.PageTimeout
	}
	return DefaultPageTimeout
}

func (c *Crawler) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

func (c *Crawler) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
