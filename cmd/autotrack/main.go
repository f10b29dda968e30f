package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/autotrack"
	"github.com/fwojciec/autotrack/crawl"
	"github.com/fwojciec/autotrack/fs"
	"github.com/fwojciec/autotrack/goquery"
	autohttp "github.com/fwojciec/autotrack/http"
	"github.com/fwojciec/autotrack/postgres"
	"github.com/fwojciec/autotrack/reconcile"
	"github.com/fwojciec/autotrack/rod"
	autoslog "github.com/fwojciec/autotrack/slog"
	"github.com/fwojciec/autotrack/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Closes the catalog storage opened by Run.
	closer io.Closer

	// Services for end-to-end testing.
	Catalog        autotrack.Catalog
	VehicleService autotrack.VehicleService
	HistoryService autotrack.HistoryService
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.closer != nil {
		return m.closer.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("autotrack"),
		kong.Description("Track used-vehicle listings and their change history"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Vars{"default_db": defaultDBPath()},
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'autotrack --help' to see available commands")
	}

	if cmd := args[0]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	deps.Logger = newLogger(stderr, cli.LogFormat, cli.LogLevel)

	site := autotrack.DefaultSite()
	site.BaseURL = cli.SiteURL
	site.ListingPath = cli.ListingPath

	extractor := goquery.NewListingExtractor(site.BaseURL)
	rendered := rod.NewLauncher(site,
		rod.WithStealth(cli.Stealth),
		rod.WithBrowserBin(cli.BrowserBin),
		rod.WithLogger(deps.Logger),
	)
	static := autohttp.NewFetcher(site)

	if cmd == "probe" {
		deps.Static = static
		deps.Rendered = rendered
		deps.Extractor = extractor
		deps.PageTimeout = cli.PageTimeout
		return kongCtx.Run(deps)
	}

	if err := m.openStorage(ctx, cli.DB); err != nil {
		fmt.Fprintln(stderr, "Hint: Set DATABASE_URL or AUTOTRACK_DB to use a different database")
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer m.Close()

	deps.Vehicles = m.VehicleService
	deps.History = m.HistoryService

	if cmd == "serve" || cmd == "crawl" {
		var fetchers autotrack.PageFetcherOpener = rendered
		if cli.Fetcher == "http" {
			fetchers = static
		}

		crawler := &crawl.Crawler{
			Fetchers:    fetchers,
			Extractor:   extractor,
			Reconciler:  autoslog.NewLoggingReconciler(reconcile.NewEngine(m.Catalog, deps.Logger), deps.Logger),
			Site:        site,
			Pacer:       crawl.NewPacer(cli.MinDelay, cli.MaxDelay),
			Logger:      deps.Logger,
			MaxPages:    cli.MaxPages,
			PageTimeout: cli.PageTimeout,
			RetryDelays: crawl.DefaultRetryDelays(),
		}
		if cli.ArchiveDir != "" {
			crawler.Archiver = fs.NewArchiver(cli.ArchiveDir)
		}

		runner := crawl.NewRunner(crawler.RunCycle, deps.Logger)
		deps.Crawls = &waitingCrawlService{
			CrawlService: autoslog.NewLoggingCrawlService(runner, deps.Logger),
			wait:         runner.Wait,
		}
		deps.Cycles = runner
	}

	return kongCtx.Run(deps)
}

// openStorage opens the postgres catalog for postgres:// and postgresql://
// URLs and the SQLite catalog at the given path otherwise.
func (m *Main) openStorage(ctx context.Context, dsn string) error {
	if isPostgresURL(dsn) {
		db := postgres.NewDB(dsn)
		if err := db.Open(ctx); err != nil {
			return err
		}
		m.closer = db
		m.Catalog = postgres.NewCatalog(db)
		m.VehicleService = postgres.NewVehicleService(db)
		m.HistoryService = postgres.NewHistoryService(db)
		return nil
	}

	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return err
		}
	}
	db := sqlite.NewDB(dsn)
	if err := db.Open(); err != nil {
		return err
	}
	m.closer = db
	m.Catalog = sqlite.NewCatalog(db)
	m.VehicleService = sqlite.NewVehicleService(db)
	m.HistoryService = sqlite.NewHistoryService(db)
	return nil
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// waitingCrawlService lets the serve command wait for a running cycle on shutdown.
type waitingCrawlService struct {
	autotrack.CrawlService
	wait func()
}

func (s *waitingCrawlService) Wait() {
	s.wait()
}

func newLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "autotrack.db"
	}
	return filepath.Join(home, ".autotrack", "autotrack.db")
}
