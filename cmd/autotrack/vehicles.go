package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fwojciec/autotrack"
)

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	filter := autotrack.VehicleFilter{SortBy: autotrack.VehicleSortOrder(c.Sort)}

	if status := strings.ToLower(strings.TrimSpace(c.Status)); status != "all" && status != "" {
		st := autotrack.Status(status)
		if err := st.Validate(); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", autotrack.ErrorMessage(err))
			return err
		}
		filter.Statuses = []autotrack.Status{st}
	}
	if c.Brand != "" {
		filter.Brand = &c.Brand
	}
	if c.Model != "" {
		filter.Model = &c.Model
	}

	page := max(c.Page, 1)
	perPage := c.PerPage
	if perPage < 1 {
		perPage = 20
	}
	if page > math.MaxInt/perPage {
		err := autotrack.Errorf(autotrack.EINVALID, "page out of range")
		fmt.Fprintf(deps.Stderr, "error: %s\n", autotrack.ErrorMessage(err))
		return err
	}
	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage

	vehicles, total, err := deps.Vehicles.FindVehicles(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", autotrack.ErrorMessage(err))
		return err
	}

	if len(vehicles) == 0 {
		fmt.Fprintln(deps.Stdout, "No vehicles found. Use 'autotrack crawl' to fetch listings.")
		return nil
	}

	writeVehicleLines(deps.Stdout, vehicles)
	fmt.Fprintf(deps.Stdout, "\nPage %d of %d (%d vehicles)\n", page, (total+perPage-1)/perPage, total)
	return nil
}

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	v, err := deps.Vehicles.FindVehicleByID(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", autotrack.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "%s\n\n", v.Title)
	fmt.Fprintf(deps.Stdout, "  id:           %d\n", v.ID)
	fmt.Fprintf(deps.Stdout, "  external id:  %s\n", v.ExternalID)
	fmt.Fprintf(deps.Stdout, "  status:       %s\n", v.Status)
	for _, f := range autotrack.TrackedFields {
		if f == autotrack.FieldTitle {
			continue
		}
		fmt.Fprintf(deps.Stdout, "  %-13s %s\n", strings.ReplaceAll(string(f), "_", " ")+":", display(v.Value(f)))
	}
	fmt.Fprintf(deps.Stdout, "  url:          %s\n", v.URL)
	fmt.Fprintf(deps.Stdout, "  first seen:   %s\n", v.FirstSeen.Format(timeFormat))
	fmt.Fprintf(deps.Stdout, "  last seen:    %s\n", v.LastSeen.Format(timeFormat))
	fmt.Fprintf(deps.Stdout, "  updated:      %s\n", v.UpdatedAt.Format(timeFormat))
	return nil
}

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	query := strings.TrimSpace(c.Query)
	if query == "" {
		err := autotrack.Errorf(autotrack.EINVALID, "search query is required")
		fmt.Fprintf(deps.Stderr, "error: %s\n", autotrack.ErrorMessage(err))
		return err
	}

	vehicles, _, err := deps.Vehicles.FindVehicles(deps.Ctx, autotrack.VehicleFilter{
		Statuses: []autotrack.Status{autotrack.StatusActive},
		Query:    &query,
		SortBy:   autotrack.SortByLastSeen,
		Limit:    c.Limit,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", autotrack.ErrorMessage(err))
		return err
	}

	if len(vehicles) == 0 {
		fmt.Fprintf(deps.Stdout, "No active vehicles match %q.\n", query)
		return nil
	}

	writeVehicleLines(deps.Stdout, vehicles)
	return nil
}

// Run executes the stats command.
func (c *StatsCmd) Run(deps *Dependencies) error {
	stats, err := deps.Vehicles.VehicleStats(deps.Ctx, deps.now().Add(-c.Window))
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", autotrack.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Active:   %d\n", stats.TotalActive)
	fmt.Fprintf(deps.Stdout, "Sold:     %d\n", stats.TotalSold)
	fmt.Fprintf(deps.Stdout, "Removed:  %d\n", stats.TotalRemoved)
	fmt.Fprintf(deps.Stdout, "Added in the last %s:   %d\n", c.Window, stats.AddedSince)
	fmt.Fprintf(deps.Stdout, "Removed in the last %s: %d\n", c.Window, stats.RemovedSince)
	return nil
}

const timeFormat = "2006-01-02 15:04:05 MST"

func writeVehicleLines(w io.Writer, vehicles []*autotrack.Vehicle) {
	for _, v := range vehicles {
		fmt.Fprintf(w, "%d  %s  %s  %s  %s\n", v.ID, v.ExternalID, v.Title, display(v.Price), v.Status)
	}
}

func display(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
