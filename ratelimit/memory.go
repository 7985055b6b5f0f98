package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryRateLimiter implements RateLimiter with one token bucket per key.
// Safe for concurrent use. For Lambda, each warm instance shares this memory.
type MemoryRateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket

	// idleTTL is how long an untouched bucket is kept.
	idleTTL time.Duration

	// cleanupInterval controls how often idle buckets are removed.
	cleanupInterval time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryRateLimiter creates a new in-memory rate limiter.
// Starts a background goroutine to clean up idle buckets.
// Call Close() to stop the cleanup goroutine.
func NewMemoryRateLimiter(cfg Config) (*MemoryRateLimiter, error) {
	return NewMemoryRateLimiterWithCleanup(cfg, 10*time.Minute)
}

// NewMemoryRateLimiterWithCleanup creates a rate limiter with custom cleanup interval.
func NewMemoryRateLimiterWithCleanup(cfg Config, cleanupInterval time.Duration) (*MemoryRateLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &MemoryRateLimiter{
		limit:           cfg.limit(),
		burst:           cfg.burst(),
		buckets:         make(map[string]*bucket),
		idleTTL:         cfg.refill(),
		cleanupInterval: cleanupInterval,
		done:            make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m, nil
}

// Allow takes one token from key's bucket. When the bucket is empty the
// reservation is cancelled and the wait until the next token is returned.
func (m *MemoryRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}

	now := time.Now()
	lim := m.bucketFor(key, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, m.idleTTL, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

func (m *MemoryRateLimiter) bucketFor(key string, now time.Time) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Close stops the background cleanup goroutine.
// Safe to call multiple times.
func (m *MemoryRateLimiter) Close() error {
	select {
	case <-m.done:
		return nil
	default:
		close(m.done)
	}
	m.wg.Wait()
	return nil
}

func (m *MemoryRateLimiter) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.cleanup(time.Now())
		}
	}
}

// cleanup removes buckets idle for longer than idleTTL. An idle bucket has
// refilled completely, so dropping it loses no state.
func (m *MemoryRateLimiter) cleanup(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, b := range m.buckets {
		if now.Sub(b.lastSeen) > m.idleTTL {
			delete(m.buckets, key)
		}
	}
}

// Stats returns current statistics for monitoring.
type Stats struct {
	// TotalKeys is the number of keys being tracked.
	TotalKeys int
}

// Stats returns current rate limiter statistics.
func (m *MemoryRateLimiter) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{TotalKeys: len(m.buckets)}
}
