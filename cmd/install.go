package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/eegmark/internal/benchmark"
	"github.com/signalnine/eegmark/internal/pkgman"
	"github.com/signalnine/eegmark/internal/runner"
)

var (
	flagDryRun   bool
	flagParallel int
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install DIR",
		Short: "Install the environments of every benchmark under DIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			benches, err := collectBenchmarks(args[0], managerOptions(cfg))
			if flagDryRun {
				printPlan(cmd, benches)
				return err
			}
			return errors.Join(err, installAll(cmd.Context(), benches, flagParallel))
		},
	}
	cmd.Flags().BoolVarP(&flagDryRun, "dry-run", "n", false, "only list what would be installed")
	cmd.Flags().IntVar(&flagParallel, "parallel", 1, "max concurrent installs")
	return cmd
}

// collectBenchmarks discovers benchmarks under root. Directories that fail
// selection are logged and reported in the returned error; the others are
// still returned.
func collectBenchmarks(root string, opts pkgman.Options) ([]*benchmark.Benchmark, error) {
	dirs, err := benchmark.Discover(root)
	if err != nil {
		return nil, fmt.Errorf("discovering benchmarks: %w", err)
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no benchmarks found under %s", root)
	}
	var (
		benches []*benchmark.Benchmark
		errs    []error
	)
	for _, dir := range dirs {
		b, err := benchmark.FromDirectory(dir, opts)
		if err != nil {
			logger.Error("skipping benchmark", "dir", dir, "phase", "select", "err", err)
			errs = append(errs, err)
			continue
		}
		benches = append(benches, b)
	}
	return benches, errors.Join(errs...)
}

func closeBenchmark(b *benchmark.Benchmark) {
	if err := b.Close(); err != nil {
		logger.Warn("releasing benchmark resources", "benchmark", b.Name(), "err", err)
	}
}

func printPlan(cmd *cobra.Command, benches []*benchmark.Benchmark) {
	for _, b := range benches {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", b.Manager().Kind(), b.Name())
	}
}

// installAll installs each benchmark, at most parallel at a time, and keeps
// going past failures.
func installAll(ctx context.Context, benches []*benchmark.Benchmark, parallel int) error {
	jobs := make([]runner.Job, 0, len(benches))
	for _, b := range benches {
		jobs = append(jobs, func(ctx context.Context) error {
			defer closeBenchmark(b)
			logger.Info("installing", "benchmark", b.Name(), "manager", b.Manager().Kind())
			if err := b.Install(ctx); err != nil {
				return fmt.Errorf("installing %s: %w", b.Name(), err)
			}
			return nil
		})
	}
	errs := runner.RunPool(ctx, parallel, jobs)
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d installs failed: %w", len(errs), len(benches), errors.Join(errs...))
	}
	return nil
}
