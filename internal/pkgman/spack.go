package pkgman

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/signalnine/eegmark/internal/config"
	"github.com/signalnine/eegmark/internal/executor"
	"github.com/signalnine/eegmark/internal/toolchain"
)

// spackEnv drives one on-disk spack environment. Both spack backends hold
// one and forward to it.
type spackEnv struct {
	dir        string
	descriptor string
	cfg        *config.Config
	logger     *log.Logger
	output     io.Writer
}

func newSpackEnv(dir string, opts Options) (*spackEnv, error) {
	dir, err := absDir(dir)
	if err != nil {
		return nil, err
	}
	found, ok := markers(KindSpack, dir)
	if !ok {
		return nil, notApplicable(KindSpack, dir)
	}
	return &spackEnv{
		dir:        dir,
		descriptor: found[0],
		cfg:        opts.config(),
		logger:     opts.logger(),
		output:     opts.Output,
	}, nil
}

func (s *spackEnv) baseEnv() executor.Env {
	return executor.Minimal(s.cfg.PathEnv())
}

// spack runs one spack subcommand against this environment.
func (s *spackEnv) spack(ctx context.Context, args ...string) (string, error) {
	bin, err := toolchain.SpackBinary(s.cfg)
	if err != nil {
		return "", err
	}
	cmd := &executor.Command{
		Line:   executor.Join(append([]string{bin}, args...)...),
		Dir:    s.dir,
		Env:    s.baseEnv(),
		Stderr: s.output,
	}
	return run(ctx, cmd)
}

// concretize re-resolves every spec even if spack.lock exists, which also
// rewrites the lock.
func (s *spackEnv) concretize(ctx context.Context) error {
	s.logger.Debug("concretizing spack environment", "dir", s.dir)
	_, err := s.spack(ctx, "-e", s.dir, "concretize", "--force")
	return err
}

func (s *spackEnv) install(ctx context.Context) error {
	s.logger.Debug("installing spack environment", "dir", s.dir)
	_, err := s.spack(ctx, "-e", s.dir, "install")
	return err
}

// activation returns the variables `spack env activate` would set.
func (s *spackEnv) activation(ctx context.Context) (executor.Env, error) {
	bin, err := toolchain.SpackBinary(s.cfg)
	if err != nil {
		return nil, err
	}
	script, err := s.spack(ctx, "env", "activate", "--sh", "--dir", s.dir)
	if err != nil {
		return nil, fmt.Errorf("activating spack environment: %w", err)
	}
	env, err := executor.ParseExports(script)
	if err != nil {
		return nil, err
	}
	env["SPACK_ROOT"] = filepath.Dir(filepath.Dir(bin))
	return env, nil
}

func (s *spackEnv) command(ctx context.Context, line string) (*executor.Command, error) {
	activation, err := s.activation(ctx)
	if err != nil {
		return nil, err
	}
	return &executor.Command{Line: line, Dir: s.dir, Env: s.baseEnv().With(activation)}, nil
}

func (s *spackEnv) execute(ctx context.Context, line string) (string, error) {
	cmd, err := s.command(ctx, line)
	if err != nil {
		return "", err
	}
	cmd.Stderr = s.output
	return run(ctx, cmd)
}

// SpackManager installs a spack environment described by spack.yaml.
type SpackManager struct {
	env *spackEnv
}

func NewSpackManager(dir string, opts Options) (*SpackManager, error) {
	env, err := newSpackEnv(dir, opts)
	if err != nil {
		return nil, err
	}
	return &SpackManager{env: env}, nil
}

func (m *SpackManager) Kind() Kind  { return KindSpack }
func (m *SpackManager) Dir() string { return m.env.dir }

// Setup is a no-op: spack is expected on the host (see `eegmark init`).
func (m *SpackManager) Setup(ctx context.Context) error {
	return ctx.Err()
}

func (m *SpackManager) SelectVersions(ctx context.Context) error {
	if err := m.env.concretize(ctx); err != nil {
		return &InstallError{Manager: KindSpack, Step: "concretize", Err: err}
	}
	return nil
}

func (m *SpackManager) Install(ctx context.Context) error {
	if err := m.env.install(ctx); err != nil {
		return &InstallError{Manager: KindSpack, Step: "install", Err: err}
	}
	return nil
}

func (m *SpackManager) Command(ctx context.Context, line string) (*executor.Command, error) {
	return m.env.command(ctx, line)
}

func (m *SpackManager) ExecuteCommand(ctx context.Context, line string) (string, error) {
	return m.env.execute(ctx, line)
}

var (
	_ Manager  = (*SpackManager)(nil)
	_ Launcher = (*SpackManager)(nil)
)
