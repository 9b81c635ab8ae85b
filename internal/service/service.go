package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"implied-inflation/internal/alerting"
	"implied-inflation/internal/config"
	"implied-inflation/internal/inflation"
	"implied-inflation/internal/scheduler"
	"implied-inflation/internal/storage"
	"implied-inflation/internal/tesouro"
)

// ErrNoData means the source table is empty.
var ErrNoData = errors.New("tesouro table has no quotes")

// Service orchestrates loading, computation, persistence, and alerting.
type Service struct {
	scheduler  *scheduler.Scheduler
	table      *tesouro.Cache
	calculator *inflation.Calculator
	store      storage.ResultStore
	notifier   alerting.Notifier
	logger     zerolog.Logger

	threshold decimal.Decimal
	channels  []string
	alertsOn  bool
	locker    storage.AdvisoryLocker
	lockKey   int64
}

// New constructs the service. sched, store and notifier may be nil.
func New(cfg *config.Config, sched *scheduler.Scheduler, table *tesouro.Cache, calculator *inflation.Calculator, store storage.ResultStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	threshold := decimal.Zero
	if cfg.Alerting.Enabled && cfg.Alerting.ThresholdPct > 0 {
		threshold = decimal.NewFromFloat(cfg.Alerting.ThresholdPct)
	}

	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:  sched,
		table:      table,
		calculator: calculator,
		store:      store,
		notifier:   notifier,
		logger:     logger.With().Str("component", "service").Logger(),
		threshold:  threshold,
		channels:   cfg.Alerting.Channels,
		alertsOn:   cfg.Alerting.Enabled,
		locker:     locker,
		lockKey:    cfg.Scheduler.AdvisoryLockKey,
	}
}

// Table returns the cached source table, loading it if needed.
func (s *Service) Table(ctx context.Context) (*tesouro.Table, error) {
	table, err := s.table.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tesouro table: %w", err)
	}
	if len(table.Quotes) == 0 {
		return nil, ErrNoData
	}
	return table, nil
}

// Compute runs one pass for req against the cached table.
func (s *Service) Compute(ctx context.Context, req inflation.Request) (*inflation.Result, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	return s.calculator.Compute(table.Quotes, req)
}

// Run begins the periodic refresh loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessLatest)
}

// ProcessLatest refetches the table and processes its most recent reference date.
func (s *Service) ProcessLatest(ctx context.Context, slot time.Time) error {
	s.table.Invalidate()
	table, err := s.Table(ctx)
	if err != nil {
		return err
	}
	latest, _ := table.Latest()
	s.logger.Info().Time("slot", slot).Time("reference_date", latest).Msg("processing latest reference date")

	_, err = s.ProcessDate(ctx, latest)
	return err
}

// ProcessDate computes, persists and alerts for one reference date. It is a
// no-op when another runner holds the advisory lock.
func (s *Service) ProcessDate(ctx context.Context, referenceDate time.Time) (*inflation.Result, error) {
	var result *inflation.Result
	acquired, err := s.Locked(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.Process(ctx, referenceDate)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !acquired {
		s.logger.Debug().Time("reference_date", referenceDate).Msg("skip date because advisory lock held elsewhere")
	}
	return result, nil
}

// Locked runs fn while holding the advisory lock. It reports false without
// calling fn when another runner holds it.
func (s *Service) Locked(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return false, err
	}
	if !proceed {
		return false, nil
	}
	if unlock != nil {
		defer unlock()
	}
	return true, fn(ctx)
}

// Process is ProcessDate for callers that already hold the lock.
func (s *Service) Process(ctx context.Context, referenceDate time.Time) (*inflation.Result, error) {
	result, err := s.Compute(ctx, inflation.Request{ReferenceDate: referenceDate})
	if err != nil {
		return nil, err
	}

	if err := s.Persist(ctx, result); err != nil {
		s.logger.Error().Err(err).Time("reference_date", referenceDate).Msg("failed to persist results")
	}

	s.logger.Info().Time("reference_date", result.ReferenceDate).
		Int("rows", len(result.Rows)).
		Msg("implied inflation recorded")

	if err := s.Alert(ctx, result); err != nil {
		s.logger.Error().Err(err).Time("reference_date", referenceDate).Msg("failed to dispatch alert")
	}
	return result, nil
}

// Persist stores result when a store is configured.
func (s *Service) Persist(ctx context.Context, result *inflation.Result) error {
	if s.store == nil {
		return nil
	}
	return s.store.ReplaceResults(ctx, result.ReferenceDate, storage.RecordsFromResult(result))
}

// Alert notifies when any implied inflation exceeds the configured threshold.
func (s *Service) Alert(ctx context.Context, result *inflation.Result) error {
	if !s.alertsOn || s.notifier == nil || s.threshold.IsZero() {
		return nil
	}

	breaches := Breaches(result, s.threshold)
	if len(breaches) == 0 {
		return nil
	}

	note := alerting.Notification{
		ReferenceDate: result.ReferenceDate,
		ThresholdPct:  s.threshold,
		Breaches:      breaches,
		Channels:      s.channels,
	}
	return s.notifier.Notify(ctx, note)
}

// Breaches lists the rows whose implied inflation is above threshold.
func Breaches(result *inflation.Result, threshold decimal.Decimal) []alerting.Breach {
	var out []alerting.Breach
	for _, row := range result.Rows {
		if !row.ImpliedInflation.GreaterThan(threshold) {
			continue
		}
		out = append(out, alerting.Breach{
			BondType:         row.BondType,
			Maturity:         row.Maturity,
			FixedRate:        row.FixedRate,
			IPCAMaturity:     row.IPCAMaturity,
			IPCARate:         row.IPCARate,
			ImpliedInflation: row.ImpliedInflation,
		})
	}
	return out
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
