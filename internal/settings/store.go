// Package settings holds the operator-tunable parameters. The store hands out
// value snapshots; a cycle that already read its settings is never affected by
// a concurrent update.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrValidation wraps rejected settings updates.
var ErrValidation = errors.New("invalid settings")

// Settings is the operator-facing configuration snapshot.
type Settings struct {
	UpdateIntervalSec int       `json:"update_interval_sec" validate:"gte=60,lte=3600"`
	DefaultCurrency   string    `json:"default_currency" validate:"required,len=3,alpha"`
	CacheTTLMin       int       `json:"cache_ttl_min" validate:"gte=1"`
	BackupCacheTTLMin int       `json:"backup_cache_ttl_min" validate:"gtefield=CacheTTLMin"`
	LastUpdated       time.Time `json:"last_updated"`
	UpdatedBy         string    `json:"updated_by"`
}

// UpdateInterval returns the tick interval as a duration.
func (s Settings) UpdateInterval() time.Duration {
	return time.Duration(s.UpdateIntervalSec) * time.Second
}

// Store guards the current settings snapshot.
type Store struct {
	mu       sync.RWMutex
	current  Settings
	defaults Settings
	validate *validator.Validate
}

// NewStore creates a store seeded with defaults.
func NewStore(defaults Settings) *Store {
	defaults.DefaultCurrency = strings.ToUpper(defaults.DefaultCurrency)
	if defaults.LastUpdated.IsZero() {
		defaults.LastUpdated = time.Now().UTC()
	}
	if defaults.UpdatedBy == "" {
		defaults.UpdatedBy = "system"
	}
	return &Store{
		current:  defaults,
		defaults: defaults,
		validate: validator.New(),
	}
}

// Get returns the current snapshot.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates and applies new settings, returning the stored snapshot.
func (s *Store) Update(next Settings) (Settings, error) {
	next.DefaultCurrency = strings.ToUpper(strings.TrimSpace(next.DefaultCurrency))

	if err := s.validate.Struct(next); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	next.LastUpdated = time.Now().UTC()
	next.UpdatedBy = "operator"

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}

// Reset restores the seeded defaults and returns them.
func (s *Store) Reset() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = s.defaults
	s.current.LastUpdated = time.Now().UTC()
	s.current.UpdatedBy = "system"
	return s.current
}
