// Package toolchain locates and, when missing, bootstraps the package
// managers benchmarks depend on: spack, conda (installed through spack) and
// juliaup.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/signalnine/eegmark/internal/config"
	"github.com/signalnine/eegmark/internal/executor"
	"github.com/signalnine/eegmark/internal/gitops"
)

// LookPath searches the directories of pathEnv for an executable name.
func LookPath(name, pathEnv string) (string, bool) {
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
			continue
		}
		return p, true
	}
	return "", false
}

// Which searches the host PATH.
func Which(name string) (string, bool) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return p, true
}

// SpackBinary finds spack under the configured root, then on the configured
// PATH, then on the host PATH.
func SpackBinary(cfg *config.Config) (string, error) {
	if p, ok := LookPath("spack", filepath.Join(cfg.Spack.Root, "bin")); ok {
		return p, nil
	}
	if p, ok := LookPath("spack", cfg.PathEnv()); ok {
		return p, nil
	}
	if p, ok := Which("spack"); ok {
		return p, nil
	}
	return "", fmt.Errorf("spack not found under %s or on PATH", cfg.Spack.Root)
}

// EnsureSpack returns the spack executable, cloning spack into
// cfg.Spack.Root first when it cannot be found.
func EnsureSpack(ctx context.Context, cfg *config.Config, logger *log.Logger) (string, error) {
	if p, err := SpackBinary(cfg); err == nil {
		return p, nil
	}
	logger.Info("cloning spack", "repo", cfg.Spack.Repo, "ref", cfg.Spack.Ref, "dest", cfg.Spack.Root)
	if err := os.MkdirAll(filepath.Dir(cfg.Spack.Root), 0o755); err != nil {
		return "", fmt.Errorf("creating spack parent dir: %w", err)
	}
	if err := gitops.CloneShallow(ctx, cfg.Spack.Repo, cfg.Spack.Ref, cfg.Spack.Root); err != nil {
		return "", fmt.Errorf("bootstrapping spack: %w", err)
	}
	if rev, err := gitops.Revision(ctx, cfg.Spack.Root); err == nil {
		logger.Info("cloned spack", "revision", rev)
	}
	p := filepath.Join(cfg.Spack.Root, "bin", "spack")
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("spack clone has no bin/spack: %w", err)
	}
	return p, nil
}

// EnsureSpackPackage returns the install prefix of spec, installing it with
// spack when no installed package matches.
func EnsureSpackPackage(ctx context.Context, spack, spec string, env executor.Env, output io.Writer) (string, error) {
	prefix, err := spackLocation(ctx, spack, spec, env)
	if err == nil {
		return prefix, nil
	}
	var exitErr *executor.ExitError
	if !errors.As(err, &exitErr) || !strings.Contains(exitErr.Stderr, "no installed packages") {
		return "", err
	}
	install := &executor.Command{
		Line:   executor.Join(spack, "install", spec),
		Dir:    os.TempDir(),
		Env:    env,
		Stderr: output,
	}
	if _, err := install.Output(ctx); err != nil {
		return "", fmt.Errorf("installing %s with spack: %w", spec, err)
	}
	return spackLocation(ctx, spack, spec, env)
}

func spackLocation(ctx context.Context, spack, spec string, env executor.Env) (string, error) {
	cmd := &executor.Command{
		Line: executor.Join(spack, "location", "--install-dir", spec),
		Dir:  os.TempDir(),
		Env:  env,
	}
	out, err := cmd.Output(ctx)
	if err != nil {
		return "", err
	}
	prefix := strings.TrimSpace(out)
	if prefix == "" {
		return "", fmt.Errorf("spack location returned no prefix for %s", spec)
	}
	return prefix, nil
}

// EnsureJuliaup returns the directory holding juliaup, running the upstream
// installer when it is not present.
func EnsureJuliaup(ctx context.Context, env executor.Env, output io.Writer) (string, error) {
	if p, ok := LookPath("juliaup", env["PATH"]); ok {
		return filepath.Dir(p), nil
	}
	home := env["HOME"]
	if home == "" {
		return "", errors.New("HOME is not set; cannot locate ~/.juliaup")
	}
	binDir := filepath.Join(home, ".juliaup", "bin")
	if _, ok := LookPath("juliaup", binDir); ok {
		return binDir, nil
	}
	install := &executor.Command{
		Line:   "curl -fsSL https://install.julialang.org | sh -s -- -y",
		Dir:    home,
		Env:    env,
		Stderr: output,
	}
	if _, err := install.Output(ctx); err != nil {
		return "", fmt.Errorf("installing juliaup: %w", err)
	}
	if _, ok := LookPath("juliaup", binDir); !ok {
		return "", fmt.Errorf("juliaup installer finished but %s/juliaup is missing", binDir)
	}
	return binDir, nil
}

// Setup makes spack, conda and juliaup available and records their
// directories in cfg.Path.
func Setup(ctx context.Context, cfg *config.Config, logger *log.Logger, output io.Writer) error {
	spack, err := EnsureSpack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	cfg.AddPath(filepath.Dir(spack))
	logger.Info("found spack", "path", spack)

	env := executor.Minimal(cfg.PathEnv())
	prefix, err := EnsureSpackPackage(ctx, spack, cfg.Conda.BootstrapSpec, env, output)
	if err != nil {
		return fmt.Errorf("bootstrapping conda: %w", err)
	}
	cfg.AddPath(filepath.Join(prefix, "bin"))
	logger.Info("found conda", "prefix", prefix)

	juliaup, err := EnsureJuliaup(ctx, executor.Minimal(cfg.PathEnv()), output)
	if err != nil {
		return err
	}
	cfg.AddPath(juliaup)
	logger.Info("found juliaup", "dir", juliaup)
	return nil
}
