package checker

import (
	"context"
	"sync"
	"time"

	"github.com/khanhnv2901/linkguard/internal/domain/scan"
	"golang.org/x/time/rate"
)

// Scanner is implemented by anything that turns one input string into a
// scored report.
type Scanner interface {
	Scan(ctx context.Context, input string) (scan.Report, error)
}

// Outcome is the result of scanning one input in a batch.
type Outcome struct {
	Input    string
	Report   scan.Report
	Err      error
	Duration time.Duration
}

// OutcomeFunc is invoked once per finished input, from the worker goroutine.
type OutcomeFunc func(outcome Outcome)

// Runner orchestrates batch scans with concurrency and rate limiting
type Runner struct {
	Concurrency int           // Maximum number of concurrent scans
	RateLimit   int           // Scans started per second (global)
	Timeout     time.Duration // Timeout for each scan, zero for none
}

// RunScans scans every input using a worker pool. Outcomes are returned in
// input order.
func (r *Runner) RunScans(ctx context.Context, inputs []string, scanner Scanner, onDone OutcomeFunc) []Outcome {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	limit := rate.Inf
	burst := 1
	if r.RateLimit > 0 {
		limit = rate.Limit(r.RateLimit)
		burst = r.RateLimit
	}
	limiter := rate.NewLimiter(limit, burst)

	// Worker pool
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Outcome, len(inputs))

	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := Outcome{Input: input}
			if err := limiter.Wait(ctx); err != nil {
				outcome.Err = err
				results[i] = outcome
				if onDone != nil {
					onDone(outcome)
				}
				return
			}

			scanCtx := ctx
			if r.Timeout > 0 {
				var cancel context.CancelFunc
				scanCtx, cancel = context.WithTimeout(ctx, r.Timeout)
				defer cancel()
			}

			start := time.Now()
			outcome.Report, outcome.Err = scanner.Scan(scanCtx, input)
			outcome.Duration = time.Since(start)

			results[i] = outcome
			if onDone != nil {
				onDone(outcome)
			}
		}(i, input)
	}

	wg.Wait()
	return results
}
