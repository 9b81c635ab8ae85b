package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"implied-inflation/internal/inflation"
	"implied-inflation/internal/service"
	"implied-inflation/internal/storage"
)

// Backfill computes and stores every available reference date in [From, To].
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	if opts.To.Before(opts.From) {
		return errors.New("empty backfill range; check --from/--to")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var store *storage.Store
	if opts.DryRun {
		a.Logger.Warn().Msg("backfill dry-run: nothing will be written")
	} else {
		s, closeStore, err := a.requireStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		store = s
	}

	svc := a.newService(nil, store, nil)
	table, err := svc.Table(ctx)
	if err != nil {
		return err
	}

	var dates []time.Time
	for _, d := range table.ReferenceDates() {
		if d.Before(opts.From) || d.After(opts.To) {
			continue
		}
		dates = append(dates, d)
	}
	if len(dates) == 0 {
		a.Logger.Warn().Time("from", opts.From).Time("to", opts.To).Msg("no reference dates in range")
		return nil
	}

	var processed, empty, failed atomic.Int32
	acquired, err := svc.Locked(ctx, func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, d := range dates {
			g.Go(func() error {
				if err := a.backfillDate(ctx, svc, d); err != nil {
					if inflation.IsEmptyResultSet(err) {
						empty.Add(1)
						a.Logger.Debug().Err(err).Time("reference_date", d).Msg("nothing to compute")
						return nil
					}
					if ctx.Err() != nil {
						return ctx.Err()
					}
					failed.Add(1)
					a.Logger.Error().Err(err).Time("reference_date", d).Msg("backfill failed")
					return nil
				}
				processed.Add(1)
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return err
	}
	if !acquired {
		return errors.New("another runner holds the advisory lock")
	}

	a.Logger.Info().
		Int("dates", len(dates)).
		Int32("processed", processed.Load()).
		Int32("empty", empty.Load()).
		Int32("failed", failed.Load()).
		Int("workers", workers).
		Msg("backfill complete")
	if failed.Load() > 0 {
		return fmt.Errorf("%d reference dates failed; check logs", failed.Load())
	}
	return nil
}

func (a *App) backfillDate(ctx context.Context, svc *service.Service, d time.Time) error {
	result, err := svc.Compute(ctx, inflation.Request{ReferenceDate: d})
	if err != nil {
		return err
	}
	return svc.Persist(ctx, result)
}
