package rod

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fwojciec/autotrack"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Compile-time interface verification.
var _ autotrack.PageFetcherOpener = (*Launcher)(nil)

// Launcher starts a fresh headless browser for every crawl cycle. A browser
// lives only as long as the Fetcher returned by Open, so no browser state or
// memory carries over between cycles.
type Launcher struct {
	site    autotrack.Site
	stealth bool
	bin     string
	logger  *slog.Logger
}

// LauncherOption configures a Launcher.
type LauncherOption func(*Launcher)

// WithStealth enables pages that mask common headless browser fingerprints.
func WithStealth(enabled bool) LauncherOption {
	return func(l *Launcher) {
		l.stealth = enabled
	}
}

// WithBrowserBin sets the path of the Chrome binary. By default rod finds or
// downloads one.
func WithBrowserBin(path string) LauncherOption {
	return func(l *Launcher) {
		l.bin = path
	}
}

// WithLogger wraps every opened fetcher in a LoggingPageFetcher.
func WithLogger(logger *slog.Logger) LauncherOption {
	return func(l *Launcher) {
		l.logger = logger
	}
}

// NewLauncher creates a Launcher fetching listing pages of site.
func NewLauncher(site autotrack.Site, opts ...LauncherOption) *Launcher {
	l := &Launcher{site: site}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open launches a browser and returns a fetcher owning it.
// Close must be called on the returned fetcher to shut the browser down.
func (l *Launcher) Open(ctx context.Context) (autotrack.PageFetcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, lnchr, err := l.launchBrowser()
	if err != nil {
		return nil, err
	}

	fetcher := &Fetcher{
		browser:  browser,
		launcher: lnchr,
		site:     l.site,
		stealth:  l.stealth,
	}
	if l.logger != nil {
		return NewLoggingPageFetcher(fetcher, l.logger), nil
	}
	return fetcher, nil
}

// launchBrowser starts a new browser instance with stability flags.
func (l *Launcher) launchBrowser() (*rod.Browser, *launcher.Launcher, error) {
	lnchr := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(true)
	if l.bin != "" {
		lnchr = lnchr.Bin(l.bin)
	}

	u, err := lnchr.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		lnchr.Kill()
		return nil, nil, fmt.Errorf("connecting to browser: %w", err)
	}

	return browser, lnchr, nil
}
