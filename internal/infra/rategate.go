package infra

import (
	"context"
	"sync"
	"time"
)

// RateGate serializes outbound fetch cycles and enforces a minimum spacing
// between them. At most one holder exists at a time; a new holder is admitted
// only after minSpacing has elapsed since the previous Release.
//
// The spacing clock starts at Release, not Acquire, so a slow fetch cycle
// never eats into the quiet period the upstream provider expects.
type RateGate struct {
	gate sync.Mutex // held between Acquire and Release

	mu         sync.Mutex // guards lastCall
	lastCall   time.Time
	minSpacing time.Duration

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewRateGate creates a gate with the given minimum spacing between cycles.
func NewRateGate(minSpacing time.Duration) *RateGate {
	return &RateGate{
		minSpacing: minSpacing,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Acquire blocks until the gate is free and the spacing interval has passed.
// A canceled context aborts the wait and leaves the gate free for others.
func (g *RateGate) Acquire(ctx context.Context) error {
	g.gate.Lock()

	for {
		g.mu.Lock()
		elapsed := g.now().Sub(g.lastCall)
		g.mu.Unlock()

		if elapsed >= g.minSpacing {
			return nil
		}

		if err := g.sleep(ctx, g.minSpacing-elapsed); err != nil {
			g.gate.Unlock()
			return err
		}
	}
}

// Release records the completion instant and frees the gate.
func (g *RateGate) Release() {
	g.mu.Lock()
	g.lastCall = g.now()
	g.mu.Unlock()

	g.gate.Unlock()
}

// SinceLastCall reports how long ago the last cycle completed. Callers can use
// it to skip a refresh that would only repeat a just-finished one.
func (g *RateGate) SinceLastCall() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastCall.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return g.now().Sub(g.lastCall)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
