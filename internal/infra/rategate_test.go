package infra

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRateGate_FirstAcquireImmediate(t *testing.T) {
	g := NewRateGate(3 * time.Second)

	start := time.Now()
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	g.Release()

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first acquire should not wait, took %v", elapsed)
	}
}

func TestRateGate_EnforcesSpacing(t *testing.T) {
	g := NewRateGate(50 * time.Millisecond)
	ctx := context.Background()

	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	g.Release()

	start := time.Now()
	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	g.Release()

	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("second acquire came %v after first release, want >= spacing", elapsed)
	}
}

func TestRateGate_SingleHolder(t *testing.T) {
	g := NewRateGate(10 * time.Millisecond)
	ctx := context.Background()

	var mu sync.Mutex
	holders := 0
	maxHolders := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Acquire(ctx); err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			mu.Lock()
			holders++
			if holders > maxHolders {
				maxHolders = holders
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			g.Release()
		}()
	}
	wg.Wait()

	if maxHolders != 1 {
		t.Errorf("expected exactly one holder at a time, saw %d", maxHolders)
	}
}

func TestRateGate_CancelDuringWait(t *testing.T) {
	g := NewRateGate(time.Hour)

	// Drive the gate on a fake clock: sleeping advances time instead of
	// blocking, so the hour-long spacing costs nothing.
	now := time.Now()
	g.now = func() time.Time { return now }
	g.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		now = now.Add(d)
		return nil
	}

	ctx := context.Background()
	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	g.Release()

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := g.Acquire(canceled); err == nil {
		g.Release()
		t.Fatal("expected context error while waiting out spacing")
	}

	// The gate must be free again after an aborted acquire.
	done := make(chan error, 1)
	go func() {
		err := g.Acquire(ctx)
		if err == nil {
			g.Release()
		}
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("gate left locked after aborted acquire: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("re-acquire blocked, gate left locked after aborted acquire")
	}
}

func TestRateGate_SinceLastCall(t *testing.T) {
	g := NewRateGate(time.Second)

	if got := g.SinceLastCall(); got < time.Hour {
		t.Errorf("expected huge duration before first call, got %v", got)
	}

	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	g.Release()

	if got := g.SinceLastCall(); got > time.Second {
		t.Errorf("expected small duration right after release, got %v", got)
	}
}
