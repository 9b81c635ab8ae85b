package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once per slot.
type TickFunc func(ctx context.Context, slot time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval time.Duration
	// Offset shifts aligned slots, e.g. 18h with a 24h interval fires daily at 18:00.
	Offset       time.Duration
	Location     *time.Location
	AlignToSlot  bool
	RunOnStart   bool
	StartupDelay time.Duration
}

// Scheduler drives periodic refreshes.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger(), now: time.Now}
}

// Run blocks, invoking tick at each slot until ctx is cancelled. Tick errors
// are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if s.opts.RunOnStart {
		s.fire(ctx, tick, s.now().In(s.opts.Location))
	}

	next := s.NextSlot(s.now())
	for {
		delay := next.Sub(s.now())
		if delay < 0 {
			next = s.NextSlot(s.now())
			delay = next.Sub(s.now())
		}

		timer := time.NewTimer(delay)
		s.logger.Debug().Time("next_slot", next).Msg("waiting for next slot")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.fire(ctx, tick, next)
		next = s.NextSlot(next)
	}
}

func (s *Scheduler) fire(ctx context.Context, tick TickFunc, slot time.Time) {
	s.logger.Info().Time("slot", slot).Msg("executing scheduled tick")
	if err := tick(ctx, slot); err != nil {
		s.logger.Error().Err(err).Time("slot", slot).Msg("tick execution failed")
	}
}

// NextSlot returns the first slot strictly after now.
func (s *Scheduler) NextSlot(now time.Time) time.Time {
	now = now.In(s.opts.Location)
	if !s.opts.AlignToSlot {
		return now.Add(s.opts.Interval)
	}

	// align on local wall-clock midnight so daily slots follow the zone
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, s.opts.Location)
	slot := midnight.Add(s.opts.Offset)
	for slot.After(now) {
		slot = slot.Add(-s.opts.Interval)
	}
	for !slot.After(now) {
		slot = slot.Add(s.opts.Interval)
	}
	return slot
}
