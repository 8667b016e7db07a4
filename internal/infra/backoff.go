package infra

import "time"

const (
	backoffBase = 1 * time.Second
	backoffMax  = 30 * time.Second
)

// Backoff returns the exponential delay for the given retry attempt:
// base * 2^attempt, capped at backoffMax. Negative attempts get the base delay.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		return backoffBase
	}

	// 2^30s is already far past the cap, avoid shifting into overflow.
	if attempt > 30 {
		return backoffMax
	}

	d := backoffBase * time.Duration(1<<attempt)
	if d > backoffMax {
		return backoffMax
	}
	return d
}
