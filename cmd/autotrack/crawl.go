package main

import (
	"fmt"

	"github.com/fwojciec/autotrack"
)

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	result, err := deps.Cycles.Run(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", autotrack.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Run %s: %s\n", result.RunID, result.Message)
	fmt.Fprintf(deps.Stdout, "  pages:    %d\n", result.Pages)
	fmt.Fprintf(deps.Stdout, "  listings: %d\n", result.Listings)
	if result.Failed > 0 {
		fmt.Fprintf(deps.Stdout, "  failed:   %d\n", result.Failed)
	}

	if !result.Success {
		return fmt.Errorf("crawl cycle failed: %s", result.Message)
	}
	return nil
}
