package main

import (
	"fmt"

	"github.com/fwojciec/autotrack/crawl"
	autohttp "github.com/fwojciec/autotrack/http"
	"golang.org/x/sync/errgroup"
)

// Run executes the serve command. It serves until the context is canceled
// and then waits for a running crawl cycle to finish.
func (c *ServeCmd) Run(deps *Dependencies) error {
	server := autohttp.NewServer()
	server.Addr = c.Addr
	server.Logger = deps.Logger
	server.VehicleService = deps.Vehicles
	server.HistoryService = deps.History
	server.CrawlService = deps.Crawls

	if err := server.Open(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	fmt.Fprintf(deps.Stdout, "Listening on %s\n", server.URL())

	g, ctx := errgroup.WithContext(deps.Ctx)
	g.Go(func() error {
		scheduler := &crawl.Scheduler{
			Service:  deps.Crawls,
			Interval: c.Interval,
			Logger:   deps.Logger,
		}
		return scheduler.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return server.Close()
	})

	err := g.Wait()
	if w, ok := deps.Crawls.(interface{ Wait() }); ok {
		w.Wait()
	}
	return err
}
