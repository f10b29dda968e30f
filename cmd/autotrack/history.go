package main

import (
	"fmt"
	"slices"

	"github.com/fwojciec/autotrack"
)

// Run executes the history command.
func (c *HistoryCmd) Run(deps *Dependencies) error {
	entries, err := deps.History.FindHistory(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", autotrack.ErrorMessage(err))
		return err
	}

	for _, entry := range entries {
		fmt.Fprintf(deps.Stdout, "%s  %s\n", entry.Timestamp.Format(timeFormat), entry.Action)

		fields := make([]autotrack.Field, 0, len(entry.Changes))
		for f := range entry.Changes {
			fields = append(fields, f)
		}
		slices.Sort(fields)

		for _, f := range fields {
			change := entry.Changes[f]
			if change.Old == nil {
				fmt.Fprintf(deps.Stdout, "    %s: %s\n", f, display(change.New))
				continue
			}
			fmt.Fprintf(deps.Stdout, "    %s: %s -> %s\n", f, *change.Old, display(change.New))
		}
	}

	return nil
}
