package shared

import "time"

// BackoffConfig controls exponential backoff for reconnection loops.
// Zero values are replaced with defaults by Normalize.
type BackoffConfig struct {
	Initial     time.Duration
	MaxAttempts int
	MaxDelay    time.Duration
}

func (c BackoffConfig) Normalize() BackoffConfig {
	if c.Initial <= 0 {
		c.Initial = 500 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	return c
}

// Next returns the delay following cur, doubling up to MaxDelay.
func (c BackoffConfig) Next(cur time.Duration) time.Duration {
	if cur <= 0 {
		return c.Initial
	}
	next := cur * 2
	if next > c.MaxDelay {
		next = c.MaxDelay
	}
	return next
}
