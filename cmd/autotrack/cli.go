package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/autotrack"
)

// CycleRunner runs one crawl cycle on the calling goroutine.
type CycleRunner interface {
	Run(ctx context.Context) (*autotrack.CycleResult, error)
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	Vehicles autotrack.VehicleService
	History  autotrack.HistoryService

	// Crawls backs the scraper API and the scheduler of the serve command.
	Crawls autotrack.CrawlService

	// Cycles runs the synchronous crawl command.
	Cycles CycleRunner

	// Probe dependencies.
	Static      autotrack.PageFetcherOpener
	Rendered    autotrack.PageFetcherOpener
	Extractor   autotrack.Extractor
	PageTimeout time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DB          string        `name:"db" env:"DATABASE_URL,AUTOTRACK_DB" default:"${default_db}" help:"SQLite path or postgres:// connection URL"`
	SiteURL     string        `name:"site-url" default:"https://www.webmotors.com.br" help:"Site root used to resolve listing links"`
	ListingPath string        `name:"listing-path" default:"/carros-usados/estoque" help:"Path of the paginated listing index"`
	MaxPages    int           `name:"max-pages" default:"2" help:"Listing pages fetched per crawl cycle"`
	PageTimeout time.Duration `name:"page-timeout" default:"15s" help:"Time to wait for listing content on a page"`
	MinDelay    time.Duration `name:"min-delay" default:"2s" help:"Minimum delay between listing pages"`
	MaxDelay    time.Duration `name:"max-delay" default:"4s" help:"Maximum delay between listing pages"`
	Fetcher     string        `name:"fetcher" enum:"rod,http" default:"rod" help:"Page fetcher: rod (headless browser) or http (static HTML)"`
	Stealth     bool          `name:"stealth" help:"Mask headless browser fingerprints"`
	BrowserBin  string        `name:"browser-bin" env:"AUTOTRACK_BROWSER" help:"Path of the Chrome binary"`
	ArchiveDir  string        `name:"archive-dir" help:"Keep fetched listing pages of successful cycles under this directory"`
	LogFormat   string        `name:"log-format" enum:"text,json" default:"text" help:"Log output format"`
	LogLevel    string        `name:"log-level" enum:"debug,info,warn,error" default:"info" help:"Minimum log level"`

	Serve   ServeCmd   `cmd:"" help:"Serve the HTTP API and optionally crawl on a schedule"`
	Crawl   CrawlCmd   `cmd:"" help:"Run one crawl cycle and print the result"`
	List    ListCmd    `cmd:"" help:"List tracked vehicles"`
	Show    ShowCmd    `cmd:"" help:"Show one vehicle"`
	History HistoryCmd `cmd:"" help:"Show the change history of a vehicle"`
	Stats   StatsCmd   `cmd:"" help:"Show catalog statistics"`
	Search  SearchCmd  `cmd:"" help:"Search active vehicles by title, brand, or model"`
	Probe   ProbeCmd   `cmd:"" help:"Compare static and browser-rendered listing pages"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr     string        `default:":5000" help:"HTTP listen address"`
	Interval time.Duration `default:"0s" help:"Crawl interval (0 disables scheduled crawls)"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct{}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	Status  string `short:"s" default:"active" help:"Status filter: active, sold, removed, or all"`
	Brand   string `short:"b" help:"Brand substring"`
	Model   string `short:"m" help:"Model substring"`
	Sort    string `enum:"last_seen,first_seen,updated_at" default:"last_seen" help:"Sort order, newest first"`
	Page    int    `default:"1" help:"Page number"`
	PerPage int    `name:"per-page" default:"20" help:"Vehicles per page"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	ID int64 `arg:"" help:"Vehicle ID"`
}

// HistoryCmd is the "history" subcommand.
type HistoryCmd struct {
	ID int64 `arg:"" help:"Vehicle ID"`
}

// StatsCmd is the "stats" subcommand.
type StatsCmd struct {
	Window time.Duration `default:"24h" help:"Window for recent additions and removals"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query string `arg:"" help:"Text matched against title, brand, and model"`
	Limit int    `default:"50" help:"Maximum number of results"`
}

// ProbeCmd is the "probe" subcommand.
type ProbeCmd struct {
	Page int `default:"1" help:"Listing page to probe"`
}
