package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextSlotDailyOffset(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	s := New(Options{Interval: 24 * time.Hour, Offset: 18 * time.Hour, Location: loc, AlignToSlot: true}, zerolog.Nop())

	before := time.Date(2025, 1, 2, 10, 0, 0, 0, loc)
	if got := s.NextSlot(before); !got.Equal(time.Date(2025, 1, 2, 18, 0, 0, 0, loc)) {
		t.Fatalf("expected same-day 18:00, got %s", got)
	}

	after := time.Date(2025, 1, 2, 19, 0, 0, 0, loc)
	if got := s.NextSlot(after); !got.Equal(time.Date(2025, 1, 3, 18, 0, 0, 0, loc)) {
		t.Fatalf("expected next-day 18:00, got %s", got)
	}

	exact := time.Date(2025, 1, 2, 18, 0, 0, 0, loc)
	if got := s.NextSlot(exact); !got.After(exact) {
		t.Fatalf("slot must be strictly after now, got %s", got)
	}
}

func TestNextSlotSubDaily(t *testing.T) {
	s := New(Options{Interval: 6 * time.Hour, Offset: time.Hour, AlignToSlot: true}, zerolog.Nop())
	now := time.Date(2025, 1, 2, 8, 30, 0, 0, time.UTC)
	if got := s.NextSlot(now); !got.Equal(time.Date(2025, 1, 2, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 13:00, got %s", got)
	}
}

func TestNextSlotUnaligned(t *testing.T) {
	s := New(Options{Interval: time.Hour}, zerolog.Nop())
	now := time.Date(2025, 1, 2, 8, 30, 0, 0, time.UTC)
	if got := s.NextSlot(now); !got.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected now+1h, got %s", got)
	}
}

func TestRunOnStartAndCancel(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToSlot: true, RunOnStart: true}, zerolog.Nop())

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ctx context.Context, slot time.Time) error {
			calls.Add(1)
			cancel()
			return errors.New("tick errors are logged, not fatal")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one immediate tick, got %d", calls.Load())
	}
}

func TestNewPanicsOnZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New(Options{}, zerolog.Nop())
}
