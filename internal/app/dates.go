package app

import (
	"context"
	"fmt"
	"time"

	"implied-inflation/internal/service"
)

// Dates prints the available reference-date range.
func (a *App) Dates(ctx context.Context) error {
	svc := a.newService(nil, nil, nil)
	table, err := svc.Table(ctx)
	if err != nil {
		return err
	}

	lo, hi, ok := table.DateRange()
	if !ok {
		return service.ErrNoData
	}

	fmt.Fprintf(a.Out, "first:  %s\n", formatDate(lo))
	fmt.Fprintf(a.Out, "latest: %s\n", formatDate(hi))
	fmt.Fprintf(a.Out, "dates:  %d\n", len(table.ReferenceDates()))
	if loadedAt, ok := a.cache.LoadedAt(); ok {
		fmt.Fprintf(a.Out, "fetched: %s\n", loadedAt.Format(time.RFC3339))
	}
	if table.Skipped > 0 {
		fmt.Fprintf(a.Out, "rows without purchase rate: %d\n", table.Skipped)
	}
	return nil
}
