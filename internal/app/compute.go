package app

import (
	"context"
	"errors"
	"fmt"

	"implied-inflation/internal/inflation"
	"implied-inflation/internal/service"
	"implied-inflation/internal/storage"
	"implied-inflation/internal/tesouro"
)

// ErrDateOutOfRange means the requested reference date lies outside the table.
var ErrDateOutOfRange = errors.New("reference date outside available range")

// Compute runs one calculation and prints the result table.
func (a *App) Compute(ctx context.Context, opts ComputeOptions) error {
	var store *storage.Store
	if opts.Save {
		s, closeStore, err := a.requireStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		store = s
	}

	var svc *service.Service
	if opts.Notify {
		notifier := a.newNotifier()
		if notifier == nil || !a.Config.Alerting.Enabled {
			return errors.New("alerting not enabled; cannot notify")
		}
		svc = a.newService(nil, store, notifier)
	} else {
		svc = a.newService(nil, store, nil)
	}

	table, err := svc.Table(ctx)
	if err != nil {
		return err
	}

	p := newPresenter(a.Config.Export.Locale, a.Config.Export.DecimalPlaces)

	req, err := resolveRequest(table, opts)
	var result *inflation.Result
	if err == nil {
		result, err = svc.Compute(ctx, req)
	}
	if err != nil {
		if inflation.IsEmptyResultSet(err) {
			fmt.Fprintf(a.Out, "warning: %v\n", err)
			return nil
		}
		return err
	}

	if err := p.renderResult(a.Out, result); err != nil {
		return err
	}

	if err := a.writeExports(ctx, opts, result, table, p); err != nil {
		return err
	}

	if opts.Save {
		if err := svc.Persist(ctx, result); err != nil {
			return fmt.Errorf("persist results: %w", err)
		}
		a.Logger.Info().Time("reference_date", result.ReferenceDate).Int("rows", len(result.Rows)).Msg("results saved")
	}
	if opts.Notify {
		if err := svc.Alert(ctx, result); err != nil {
			return fmt.Errorf("send alert: %w", err)
		}
	}
	return nil
}

func resolveRequest(table *tesouro.Table, opts ComputeOptions) (inflation.Request, error) {
	lo, hi, ok := table.DateRange()
	if !ok {
		return inflation.Request{}, service.ErrNoData
	}

	ref := hi
	if opts.ReferenceDate != nil {
		ref = *opts.ReferenceDate
		if ref.Before(lo) || ref.After(hi) {
			return inflation.Request{}, fmt.Errorf("%w: %s not in %s..%s", ErrDateOutOfRange,
				formatDate(ref), formatDate(lo), formatDate(hi))
		}
		if !table.Contains(ref) {
			return inflation.Request{}, fmt.Errorf("%w: %s", inflation.ErrNoBondsForDate, formatDate(ref))
		}
	}
	return inflation.Request{ReferenceDate: ref, Target: opts.Target}, nil
}
