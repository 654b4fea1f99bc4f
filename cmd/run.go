package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalnine/eegmark/internal/benchmark"
	"github.com/signalnine/eegmark/internal/config"
	"github.com/signalnine/eegmark/internal/report"
	"github.com/signalnine/eegmark/internal/result"
	"github.com/signalnine/eegmark/internal/runner"
)

var (
	flagTrials  int
	flagInstall bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run DIR",
		Short: "Run every benchmark under DIR and record the trials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmarks(cmd, args[0], flagInstall)
		},
	}
	cmd.Flags().BoolVarP(&flagDryRun, "dry-run", "n", false, "only list what would be run")
	cmd.Flags().IntVar(&flagTrials, "trials", 0, "override trial count")
	cmd.Flags().BoolVar(&flagInstall, "install", false, "install each benchmark before running it")
	return cmd
}

func newYoloCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yolo DIR",
		Short: "Install and run every benchmark under DIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmarks(cmd, args[0], true)
		},
	}
	cmd.Flags().BoolVarP(&flagDryRun, "dry-run", "n", false, "only list what would be run")
	cmd.Flags().IntVar(&flagTrials, "trials", 0, "override trial count")
	return cmd
}

func runBenchmarks(cmd *cobra.Command, root string, install bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagTrials > 0 {
		cfg.Trials = flagTrials
	}
	benches, selErr := collectBenchmarks(root, managerOptions(cfg))
	if flagDryRun {
		printPlan(cmd, benches)
		return selErr
	}
	if len(benches) == 0 {
		return selErr
	}

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	logger.Info("recording results", "dir", runDir)

	runErr := runAll(cmd.Context(), cmd.OutOrStdout(), cfg, benches, runDir, install)

	fmt.Fprintln(cmd.OutOrStdout(), "\n--- Results ---")
	if err := report.Generate(runDir, "table", cmd.OutOrStdout()); err != nil {
		return errors.Join(selErr, runErr, err)
	}
	return errors.Join(selErr, runErr)
}

// runAll runs cfg.Trials trials of each benchmark. A benchmark that fails is
// logged and skipped; the others still run.
func runAll(ctx context.Context, out io.Writer, cfg *config.Config, benches []*benchmark.Benchmark, runDir string, install bool) error {
	var errs []error
	for _, b := range benches {
		if err := runOne(ctx, out, cfg, b, runDir, install); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d benchmarks failed: %w", len(errs), len(benches), errors.Join(errs...))
	}
	return nil
}

func runOne(ctx context.Context, out io.Writer, cfg *config.Config, b *benchmark.Benchmark, runDir string, install bool) error {
	defer closeBenchmark(b)
	if install {
		if err := b.Install(ctx); err != nil {
			return err
		}
	} else if err := b.Manager().Setup(ctx); err != nil {
		logger.Error("setup failed", "benchmark", b.Name(), "phase", "setup", "err", err)
		return err
	}
	for trial := 1; trial <= cfg.Trials; trial++ {
		fmt.Fprintf(out, "Running %s (trial %d/%d)...\n", b.Name(), trial, cfg.Trials)
		t, err := runner.RunTrial(ctx, &runner.TrialOpts{
			Benchmark: b,
			RunDir:    runDir,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		unit := "score"
		if !t.ScoreFromLine {
			unit = "ns (no score line)"
		}
		fmt.Fprintf(out, "  %g %s in %s\n", t.Score, unit, t.Walltime().Round(time.Millisecond))
	}
	return nil
}
