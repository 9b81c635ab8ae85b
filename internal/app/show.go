package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"implied-inflation/internal/storage"
)

// Show prints stored results for one reference date, or a summary of the most
// recent stored dates when no date is given.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	p := newPresenter(a.Config.Export.Locale, a.Config.Export.DecimalPlaces)
	if opts.ReferenceDate == nil {
		summaries, err := store.ListReferenceDates(ctx, opts.Limit)
		if err != nil {
			return err
		}
		if err := p.renderSummaries(a.Out, summaries); err != nil {
			return err
		}
		total, err := store.CountResults(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "stored rows: %d\n", total)
		return nil
	}

	records, err := store.ListResults(ctx, *opts.ReferenceDate)
	if err != nil {
		return err
	}
	return p.renderRecords(a.Out, records)
}

func (p *presenter) renderSummaries(w io.Writer, summaries []storage.DateSummary) error {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "no stored results")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Data Base\tTítulos\tMín. Implícita\tMáx. Implícita")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			formatDate(s.ReferenceDate),
			s.Rows,
			p.Number(s.MinImplied),
			p.Number(s.MaxImplied),
		)
	}
	return tw.Flush()
}

func (p *presenter) renderRecords(w io.Writer, records []storage.ResultRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "no stored results for this date")
		return nil
	}

	head := append([]string(nil), resultHeader...)
	head = append(head, interpolatedHeader...)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(head, "\t"))
	for _, r := range records {
		cells := []string{
			formatDate(r.ReferenceDate),
			r.BondType,
			formatDate(r.Maturity),
			p.Number(r.FixedRate),
			formatDate(r.IPCAMaturity),
			p.Number(r.IPCARate),
			p.Number(r.ImpliedInflation),
			p.NullNumber(r.InterpolatedRate),
			p.NullNumber(r.InterpolatedImplied),
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
