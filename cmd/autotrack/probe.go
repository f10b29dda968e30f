package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/autotrack"
	"github.com/fwojciec/autotrack/crawl"
)

// Run executes the probe command. It fetches one listing page with both
// fetchers and recommends the one that sees the listings.
func (c *ProbeCmd) Run(deps *Dependencies) error {
	static, staticErr := fetchOnce(deps.Ctx, deps.Static, c.Page, deps.PageTimeout)
	if staticErr != nil {
		fmt.Fprintf(deps.Stderr, "static fetch failed: %v\n", staticErr)
	}
	rendered, renderedErr := fetchOnce(deps.Ctx, deps.Rendered, c.Page, deps.PageTimeout)
	if renderedErr != nil {
		fmt.Fprintf(deps.Stderr, "rendered fetch failed: %v\n", renderedErr)
	}
	if staticErr != nil && renderedErr != nil {
		return fmt.Errorf("probe page %d: both fetchers failed", c.Page)
	}

	fmt.Fprintf(deps.Stdout, "static:   %d listings\n", crawl.CountListings(static, deps.Extractor))
	fmt.Fprintf(deps.Stdout, "rendered: %d listings\n", crawl.CountListings(rendered, deps.Extractor))

	fetcher := "http"
	if staticErr != nil || (renderedErr == nil && crawl.RenderingRequired(static, rendered, deps.Extractor)) {
		fetcher = "rod"
	}
	fmt.Fprintf(deps.Stdout, "Recommended: --fetcher %s\n", fetcher)
	return nil
}

// fetchOnce opens a fetcher, fetches page n, and closes the fetcher.
func fetchOnce(ctx context.Context, opener autotrack.PageFetcherOpener, n int, timeout time.Duration) (content string, err error) {
	fetcher, err := opener.Open(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := fetcher.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()
	return fetcher.FetchPage(ctx, n, timeout)
}
