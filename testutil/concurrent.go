package testutil

import (
	"context"
	"sync"
	"time"
)

// RaceResult is the outcome of one goroutine started by RunConcurrently.
type RaceResult struct {
	// Worker is the index passed to fn.
	Worker int

	// Err is what fn returned.
	Err error

	// Latency is how long fn took.
	Latency time.Duration
}

// RunConcurrently starts n goroutines that block on a shared barrier and then
// call fn together, so they contend for the same resource as closely as the
// scheduler allows. Results are returned in worker order.
//
// Example:
//
//	results := RunConcurrently(ctx, 8, func(ctx context.Context, i int) error {
//		_, err := svc.Act(ctx, input)
//		return err
//	})
func RunConcurrently(ctx context.Context, n int, fn func(ctx context.Context, worker int) error) []RaceResult {
	results := make([]RaceResult, n)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			<-start
			began := time.Now()
			err := fn(ctx, worker)
			results[worker] = RaceResult{Worker: worker, Err: err, Latency: time.Since(began)}
		}(i)
	}

	close(start)
	wg.Wait()
	return results
}

// CountErrors splits results into successes and failures.
func CountErrors(results []RaceResult) (ok int, failed []error) {
	for _, r := range results {
		if r.Err == nil {
			ok++
			continue
		}
		failed = append(failed, r.Err)
	}
	return ok, failed
}
