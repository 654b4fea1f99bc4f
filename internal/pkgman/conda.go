package pkgman

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/signalnine/eegmark/internal/config"
	"github.com/signalnine/eegmark/internal/executor"
	"github.com/signalnine/eegmark/internal/toolchain"
)

var errNotSetUp = errors.New("setup has not run")

// CondaManager creates a conda environment from environment.yml inside the
// benchmark directory. conda itself is bootstrapped through spack.
type CondaManager struct {
	dir     string
	envFile string
	prefix  string
	cfg     *config.Config
	logger  *log.Logger
	output  io.Writer

	conda string
}

func NewCondaManager(dir string, opts Options) (*CondaManager, error) {
	dir, err := absDir(dir)
	if err != nil {
		return nil, err
	}
	found, ok := markers(KindConda, dir)
	if !ok {
		return nil, notApplicable(KindConda, dir)
	}
	cfg := opts.config()
	return &CondaManager{
		dir:     dir,
		envFile: found[0],
		prefix:  filepath.Join(dir, cfg.Conda.PrefixDir),
		cfg:     cfg,
		logger:  opts.logger(),
		output:  opts.Output,
	}, nil
}

func (m *CondaManager) Kind() Kind  { return KindConda }
func (m *CondaManager) Dir() string { return m.dir }

// Prefix is the directory the conda environment is created in.
func (m *CondaManager) Prefix() string { return m.prefix }

// Setup installs the bootstrap conda package with spack, once per manager.
func (m *CondaManager) Setup(ctx context.Context) error {
	if m.conda != "" {
		return nil
	}
	spack, err := toolchain.SpackBinary(m.cfg)
	if err != nil {
		return &SetupError{Manager: KindConda, Err: err}
	}
	prefix, err := toolchain.EnsureSpackPackage(ctx, spack, m.cfg.Conda.BootstrapSpec, m.baseEnv(), m.output)
	if err != nil {
		return &SetupError{Manager: KindConda, Err: err}
	}
	conda := filepath.Join(prefix, "bin", "conda")
	if _, err := os.Stat(conda); err != nil {
		return &SetupError{Manager: KindConda, Err: fmt.Errorf("no conda executable in %s: %w", prefix, err)}
	}
	m.logger.Debug("bootstrapped conda", "path", conda)
	m.conda = conda
	return nil
}

// SelectVersions is a no-op; conda resolves during install.
func (m *CondaManager) SelectVersions(ctx context.Context) error {
	return ctx.Err()
}

// Install recreates the environment from scratch, since `conda env create`
// refuses an existing prefix.
func (m *CondaManager) Install(ctx context.Context) error {
	if m.conda == "" {
		return &SetupError{Manager: KindConda, Err: errNotSetUp}
	}
	if err := os.RemoveAll(m.prefix); err != nil {
		return &InstallError{Manager: KindConda, Step: "install", Err: fmt.Errorf("removing stale environment: %w", err)}
	}
	cmd := &executor.Command{
		Line:   executor.Join(m.conda, "env", "create", "--prefix", m.prefix, "--file", m.envFile),
		Dir:    m.dir,
		Env:    m.baseEnv(),
		Stderr: m.output,
	}
	if _, err := run(ctx, cmd); err != nil {
		return &InstallError{Manager: KindConda, Step: "install", Err: err}
	}
	return nil
}

func (m *CondaManager) Command(ctx context.Context, line string) (*executor.Command, error) {
	if m.conda == "" {
		return nil, &SetupError{Manager: KindConda, Err: errNotSetUp}
	}
	wrapped := executor.Join(m.conda, "run", "--prefix", m.prefix, "--cwd", m.dir, "--no-capture-output", "bash", "-c", line)
	return &executor.Command{Line: wrapped, Dir: m.dir, Env: m.baseEnv()}, nil
}

func (m *CondaManager) ExecuteCommand(ctx context.Context, line string) (string, error) {
	cmd, err := m.Command(ctx, line)
	if err != nil {
		return "", err
	}
	cmd.Stderr = m.output
	return run(ctx, cmd)
}

func (m *CondaManager) baseEnv() executor.Env {
	return executor.Minimal(m.cfg.PathEnv())
}

var (
	_ Manager  = (*CondaManager)(nil)
	_ Launcher = (*CondaManager)(nil)
)
