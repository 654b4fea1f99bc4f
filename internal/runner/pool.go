package runner

import (
	"context"
	"sync"
)

// Job is one unit of work for RunPool, typically installing one benchmark.
type Job func(ctx context.Context) error

// RunPool runs jobs with at most maxWorkers in flight. It does not stop on
// failure: every job runs and every error is returned in job order. Jobs not
// yet started when ctx is done report ctx.Err() without running.
func RunPool(ctx context.Context, maxWorkers int, jobs []Job) []error {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	results := make([]error, len(jobs))
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			results[i] = err
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[i] = ctx.Err()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = job(ctx)
		}()
	}
	wg.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
