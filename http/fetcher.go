// Package http serves the vehicle catalog over a JSON API and fetches
// listing pages from sites that render their cards server-side.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/fwojciec/autotrack"
	"golang.org/x/net/publicsuffix"
)

// DefaultUserAgent is sent with every page request.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Ensure Fetcher implements the fetcher interfaces at compile time.
var (
	_ autotrack.PageFetcher       = (*Fetcher)(nil)
	_ autotrack.PageFetcherOpener = (*Fetcher)(nil)
)

// Fetcher retrieves listing pages with plain HTTP requests.
// Unlike rod.Fetcher, this does not execute JavaScript and is suitable
// for sites that render listing cards on the server only.
type Fetcher struct {
	client    *http.Client
	site      autotrack.Site
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client used for requests.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithUserAgent sets the User-Agent header sent with requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// NewFetcher creates a new HTTP-based Fetcher for site.
func NewFetcher(site autotrack.Site, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{},
		site:      site,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open returns a fetcher for one crawl cycle. Each cycle gets its own cookie
// jar so session cookies set on the first page are sent with the rest.
func (f *Fetcher) Open(ctx context.Context) (autotrack.PageFetcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	client := *f.client
	client.Jar = jar
	return &Fetcher{client: &client, site: f.site, userAgent: f.userAgent}, nil
}

// FetchPage retrieves the HTML of listing page n. The whole request, body
// included, must complete within timeout.
func (f *Fetcher) FetchPage(ctx context.Context, n int, timeout time.Duration) (string, error) {
	pageURL, err := f.site.PageURL(n)
	if err != nil {
		return "", &autotrack.FetchError{Page: n, Err: err}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &autotrack.FetchError{Page: n, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &autotrack.FetchError{Page: n, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &autotrack.FetchError{Page: n, Err: fmt.Errorf("HTTP %d for %s", resp.StatusCode, pageURL)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &autotrack.FetchError{Page: n, Err: err}
	}

	return string(body), nil
}

// Close releases resources. For HTTP fetcher this is a no-op since
// http.Client doesn't require explicit cleanup.
func (f *Fetcher) Close() error {
	return nil
}
