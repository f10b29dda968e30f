// Package rod fetches JavaScript-rendered listing pages with a headless
// Chrome browser driven by go-rod.
package rod

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/autotrack"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Compile-time interface verification.
var _ autotrack.PageFetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered listing pages from one browser instance.
// Fetcher is used by a single crawl cycle and is not safe for concurrent use.
type Fetcher struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	site     autotrack.Site
	stealth  bool
}

// FetchPage navigates to listing page n, waits up to timeout for the first
// listing card to appear, and returns the rendered HTML.
func (f *Fetcher) FetchPage(ctx context.Context, n int, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &autotrack.FetchError{Page: n, Err: err}
	}

	pageURL, err := f.site.PageURL(n)
	if err != nil {
		return "", &autotrack.FetchError{Page: n, Err: err}
	}

	page, err := f.newPage()
	if err != nil {
		return "", &autotrack.FetchError{Page: n, Err: err}
	}
	defer page.Close()

	// Navigation and the wait for content share one deadline.
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	page = page.Context(ctx)

	if err := page.Navigate(pageURL); err != nil {
		return "", &autotrack.FetchError{Page: n, Err: fmt.Errorf("navigate %s: %w", pageURL, err)}
	}

	if f.site.CardSelector != "" {
		if _, err := page.Element(f.site.CardSelector); err != nil {
			return "", &autotrack.FetchError{Page: n, Err: fmt.Errorf("wait for listing cards: %w", err)}
		}
	} else if err := page.WaitLoad(); err != nil {
		return "", &autotrack.FetchError{Page: n, Err: fmt.Errorf("wait for page load: %w", err)}
	}

	html, err := page.HTML()
	if err != nil {
		return "", &autotrack.FetchError{Page: n, Err: err}
	}

	return html, nil
}

// newPage opens a blank tab, with fingerprint masking when stealth is enabled.
func (f *Fetcher) newPage() (*rod.Page, error) {
	if f.stealth {
		return stealth.Page(f.browser)
	}
	return f.browser.Page(proto.TargetCreateTarget{})
}

// Close shuts down the browser and its launcher process.
func (f *Fetcher) Close() error {
	var err error
	if f.browser != nil {
		err = f.browser.Close()
	}
	if f.launcher != nil {
		f.launcher.Kill()
	}
	return err
}

// LauncherPID returns the process ID of the browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (f *Fetcher) LauncherPID() int {
	if f.launcher == nil {
		return 0
	}
	return f.launcher.PID()
}
