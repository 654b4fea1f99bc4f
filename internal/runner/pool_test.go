package runner_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/signalnine/eegmark/internal/runner"
)

func TestPool(t *testing.T) {
	var count, running, peak atomic.Int32
	jobs := make([]runner.Job, 10)
	for i := range jobs {
		jobs[i] = func(ctx context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			count.Add(1)
			return nil
		}
	}
	errs := runner.RunPool(context.Background(), 3, jobs)
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
	if count.Load() != 10 {
		t.Errorf("expected 10 jobs, got %d", count.Load())
	}
	if peak.Load() > 3 {
		t.Errorf("more than 3 jobs ran at once: %d", peak.Load())
	}
}

func TestPoolWithErrors(t *testing.T) {
	jobs := []runner.Job{
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return fmt.Errorf("first") },
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return fmt.Errorf("second") },
	}
	errs := runner.RunPool(context.Background(), 2, jobs)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
	if errs[0].Error() != "first" || errs[1].Error() != "second" {
		t.Errorf("errors out of job order: %v", errs)
	}
}

func TestPoolCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran atomic.Int32
	jobs := make([]runner.Job, 3)
	for i := range jobs {
		jobs[i] = func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}
	}
	errs := runner.RunPool(ctx, 1, jobs)
	if len(errs) != 3 || !errors.Is(errs[0], context.Canceled) {
		t.Errorf("expected 3 cancellation errors, got %v", errs)
	}
	if ran.Load() != 0 {
		t.Errorf("%d jobs ran after cancellation", ran.Load())
	}
}
