// Package ratelimit throttles approval actions per approver so that a leaked
// or scripted approval link cannot hammer the request store.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter decides whether an approver may act now.
// Implementations must be safe for concurrent use.
type RateLimiter interface {
	// Allow reports whether key may take one action. When it may not,
	// retryAfter is how long until it may.
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// Config is an approver's action budget.
type Config struct {
	// ActionsPerMinute is the sustained rate.
	ActionsPerMinute int

	// Burst is how many actions may be taken back to back.
	// Zero means ActionsPerMinute.
	Burst int
}

// Validate checks the budget.
func (c Config) Validate() error {
	if c.ActionsPerMinute <= 0 {
		return fmt.Errorf("actions per minute must be positive, got %d", c.ActionsPerMinute)
	}
	if c.Burst < 0 {
		return fmt.Errorf("burst cannot be negative, got %d", c.Burst)
	}
	return nil
}

func (c Config) burst() int {
	if c.Burst > 0 {
		return c.Burst
	}
	return c.ActionsPerMinute
}

func (c Config) limit() rate.Limit {
	return rate.Limit(float64(c.ActionsPerMinute) / 60)
}

// refill is how long an empty bucket takes to fill back to its burst,
// never less than a minute.
func (c Config) refill() time.Duration {
	d := time.Minute * time.Duration(c.burst()) / time.Duration(c.ActionsPerMinute)
	if d < time.Minute {
		return time.Minute
	}
	return d
}
