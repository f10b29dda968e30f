package autotrack

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// PageFetcher retrieves the content of numbered listing pages.
// Implementations may use browser automation to handle JavaScript-rendered content
// and own their retry policy. A PageFetcher is used by one crawl cycle at a time.
type PageFetcher interface {
	// FetchPage returns the content of listing page n (1-based). Waiting for
	// the listing content is bounded by timeout. All failures are reported as
	// a *FetchError.
	FetchPage(ctx context.Context, n int, timeout time.Duration) (string, error)

	// Close releases fetcher resources (such as a browser session).
	// Must be called when the PageFetcher is no longer needed.
	Close() error
}

// PageFetcherOpener opens a PageFetcher for a single crawl cycle.
type PageFetcherOpener interface {
	Open(ctx context.Context) (PageFetcher, error)
}

// Site describes where listing pages live on the source site.
type Site struct {
	// BaseURL is the site root used to resolve relative listing links.
	BaseURL string

	// ListingPath is the path of the paginated listing index.
	ListingPath string

	// PageParam is the query parameter carrying the page number.
	PageParam string

	// CardSelector matches one listing card. Browser fetchers wait for it
	// before reading the page.
	CardSelector string
}

// DefaultSite returns the listing index of webmotors.com.br.
func DefaultSite() Site {
	return Site{
		BaseURL:      "https://www.webmotors.com.br",
		ListingPath:  "/carros-usados/estoque",
		PageParam:    "page",
		CardSelector: "div[data-testid='vehicle-card']",
	}
}

// PageURL returns the URL of listing page n.
func (s Site) PageURL(n int) (string, error) {
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", Errorf(EINVALID, "invalid site URL: %v", err)
	}
	ref, err := url.Parse(s.ListingPath)
	if err != nil {
		return "", Errorf(EINVALID, "invalid listing path: %v", err)
	}
	u := base.ResolveReference(ref)
	param := s.PageParam
	if param == "" {
		param = "page"
	}
	q := u.Query()
	q.Set(param, strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// String returns the listing index URL.
func (s Site) String() string {
	return fmt.Sprintf("%s%s", s.BaseURL, s.ListingPath)
}

// PageArchive stores the raw content of the listing pages fetched in one crawl
// cycle. Saved pages become visible only after Commit.
type PageArchive interface {
	SavePage(ctx context.Context, n int, pageURL, content string) error

	// Commit publishes the saved pages.
	Commit() error

	// Abort discards the saved pages.
	Abort() error
}

// PageArchiver opens a PageArchive for a crawl run.
type PageArchiver interface {
	OpenArchive(ctx context.Context, runID string) (PageArchive, error)
}

// DomainLimiter paces requests to a host.
type DomainLimiter interface {
	// Wait blocks until a request to domain may proceed.
	// Returns an error if the context is canceled before the wait completes.
	Wait(ctx context.Context, domain string) error
}
