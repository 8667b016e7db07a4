// Package scheduler drives the periodic refresh loop: wait out the initial
// delay, then run one cycle per tick. A cycle that is in flight when Stop is
// called runs to completion; only the wait between cycles is interruptible.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MinInterval is the floor for the tick interval regardless of what the
// settings snapshot asks for.
const MinInterval = 120 * time.Second

// Cycle is one unit of scheduled work (refresh the batch, evaluate alerts).
type Cycle func(ctx context.Context)

// Scheduler runs a Cycle on a settings-driven interval.
type Scheduler struct {
	initialDelay time.Duration
	interval     func() time.Duration
	cycle        Cycle

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a scheduler. The interval func is consulted before every wait so
// settings updates take effect on the next cycle, not mid-sleep.
func New(initialDelay time.Duration, interval func() time.Duration, cycle Cycle) *Scheduler {
	return &Scheduler{
		initialDelay: initialDelay,
		interval:     interval,
		cycle:        cycle,
	}
}

// Start launches the loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop interrupts the wait between cycles and blocks until the loop exits.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	slog.Info("⏱️ Scheduler started",
		"initial_delay", s.initialDelay,
		"interval", s.nextInterval())

	if !sleepCtx(ctx, s.initialDelay) {
		return
	}

	// Stop interrupts only the waits; a cycle already running keeps its
	// upstream calls, so a batch mid-fetch lands in the cache intact.
	cycleCtx := context.WithoutCancel(ctx)

	execution := 0
	for {
		execution++
		started := time.Now()
		s.cycle(cycleCtx)
		slog.Debug("Cycle finished",
			"execution", execution,
			"took", time.Since(started).Round(time.Millisecond))

		if !sleepCtx(ctx, s.nextInterval()) {
			slog.Info("⏱️ Scheduler stopped", "executions", execution)
			return
		}
	}
}

func (s *Scheduler) nextInterval() time.Duration {
	iv := s.interval()
	if iv < MinInterval {
		slog.Warn("Update interval below floor, clamping",
			"requested", iv, "floor", MinInterval)
		return MinInterval
	}
	return iv
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
