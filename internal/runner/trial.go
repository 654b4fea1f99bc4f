package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/signalnine/eegmark/internal/benchmark"
	"github.com/signalnine/eegmark/internal/result"
)

type TrialOpts struct {
	Benchmark *benchmark.Benchmark
	RunDir    string
	// Interval is the memory sampling period. Zero means DefaultInterval.
	Interval time.Duration
	Logger   *log.Logger
}

// RunTrial measures the benchmark once under a resource monitor and writes
// the trial record into the run directory.
func RunTrial(ctx context.Context, opts *TrialOpts) (*result.Trial, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	b := opts.Benchmark
	trial := &result.Trial{
		ID:        uuid.NewString(),
		Benchmark: b.Name(),
		Manager:   b.Manager().Kind().String(),
		Host:      HostInfo(ctx),
		StartedAt: time.Now().UTC(),
	}

	mon := NewMonitor(opts.Interval)
	mon.Start(ctx)
	m, err := b.Measure(ctx)
	usage := mon.Stop()
	if err != nil {
		return nil, err
	}

	trial.Score = m.Score
	trial.ScoreFromLine = m.FromScoreLine
	trial.WalltimeNS = m.Elapsed.Nanoseconds()
	trial.MaxMemoryBytes = usage.MaxMemoryBytes
	trial.CPUUsage = usage.CPUPercent

	trialDir := result.TrialDir(opts.RunDir, trial.Benchmark, trial.ID)
	if err := result.WriteTrial(trialDir, trial); err != nil {
		return nil, fmt.Errorf("writing trial: %w", err)
	}
	logger.Debug("wrote trial", "dir", trialDir)
	return trial, nil
}
