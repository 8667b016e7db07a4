// Package alert implements the price-threshold alert engine. Alerts live in
// an active set until they either trigger (moving to the history log) or are
// removed explicitly; a triggered alert can never fire again because it no
// longer exists.
package alert

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cryptodash/internal/domain"
)

// ErrValidation wraps rejections of malformed alert definitions.
var ErrValidation = errors.New("invalid alert")

// Engine owns the active alert set and the trigger history.
type Engine struct {
	mu      sync.Mutex
	active  map[uuid.UUID]domain.Alert
	history []domain.AlertHistory

	now func() time.Time
}

// NewEngine creates an engine with no alerts.
func NewEngine() *Engine {
	return &Engine{
		active: make(map[uuid.UUID]domain.Alert),
		now:    time.Now,
	}
}

// Add validates and registers an alert. A zero ID gets a fresh one, a zero
// CreatedAt gets the current instant.
func (e *Engine) Add(a domain.Alert) (domain.Alert, error) {
	if a.CryptoID == "" {
		return domain.Alert{}, fmt.Errorf("%w: crypto id is required", ErrValidation)
	}
	if !a.TargetPrice.IsPositive() {
		return domain.Alert{}, fmt.Errorf("%w: target price must be > 0, got %s", ErrValidation, a.TargetPrice)
	}
	if a.Direction != domain.DirectionMax && a.Direction != domain.DirectionMin {
		return domain.Alert{}, fmt.Errorf("%w: unknown direction", ErrValidation)
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = e.now().UTC()
	}

	e.mu.Lock()
	e.active[a.ID] = a
	e.mu.Unlock()

	slog.Info("🔔 Alert registered",
		slog.String("crypto", a.CryptoID),
		slog.String("direction", a.Direction.String()),
		slog.String("target", a.TargetPrice.String()))
	return a, nil
}

// Remove deletes an active alert without recording history.
func (e *Engine) Remove(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.active[id]; !ok {
		return false
	}
	delete(e.active, id)
	return true
}

// Active returns a copy of the active alert set.
func (e *Engine) Active() []domain.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Alert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, a)
	}
	return out
}

// History returns a copy of the append-only trigger log.
func (e *Engine) History() []domain.AlertHistory {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.AlertHistory, len(e.history))
	copy(out, e.history)
	return out
}

// Evaluate runs one pass over the active alerts against a fresh batch.
// An alert whose asset is missing from the batch is skipped, not triggered
// and not removed: the asset may only be absent from a degraded batch.
// Triggered alerts move to history atomically with their removal from the
// active set, so re-evaluating the same batch is a no-op.
func (e *Engine) Evaluate(batch []domain.Crypto) []domain.AlertHistory {
	if len(batch) == 0 {
		return nil
	}

	byID := make(map[string]domain.Crypto, len(batch))
	for _, c := range batch {
		byID[c.ID] = c
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var triggered []domain.AlertHistory
	for id, a := range e.active {
		record, ok := byID[a.CryptoID]
		if !ok {
			continue
		}
		if !a.Matches(record.PriceUSD) {
			continue
		}

		h := domain.AlertHistory{
			CryptoID:       a.CryptoID,
			CryptoName:     record.Name,
			Direction:      a.Direction,
			TargetPrice:    a.TargetPrice,
			TriggeredPrice: record.PriceUSD,
			TriggeredAt:    e.now().UTC(),
		}
		e.history = append(e.history, h)
		triggered = append(triggered, h)
		delete(e.active, id)

		slog.Warn("🚨 Alert triggered",
			slog.String("crypto", record.Name),
			slog.String("target", a.TargetPrice.String()),
			slog.String("price", record.PriceUSD.String()))
	}

	return triggered
}
