package pkgman

import (
	"context"
	"errors"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"

	"github.com/signalnine/eegmark/internal/config"
	"github.com/signalnine/eegmark/internal/executor"
	"github.com/signalnine/eegmark/internal/toolchain"
)

// juliaProject is the subset of Project.toml the backend checks.
type juliaProject struct {
	Name string            `toml:"name"`
	UUID string            `toml:"uuid"`
	Deps map[string]string `toml:"deps"`
}

// JuliaManager instantiates the Julia project in the benchmark directory.
type JuliaManager struct {
	dir     string
	project juliaProject
	cfg     *config.Config
	logger  *log.Logger
	output  io.Writer

	julia string
}

func NewJuliaManager(dir string, opts Options) (*JuliaManager, error) {
	dir, err := absDir(dir)
	if err != nil {
		return nil, err
	}
	found, ok := markers(KindJulia, dir)
	if !ok {
		return nil, notApplicable(KindJulia, dir)
	}
	data, err := os.ReadFile(found[0])
	if err != nil {
		return nil, &ConfigurationError{Dir: dir, Reason: "reading Project.toml", Err: err}
	}
	var project juliaProject
	if err := toml.Unmarshal(data, &project); err != nil {
		return nil, &ConfigurationError{Dir: dir, Reason: "parsing Project.toml", Err: err}
	}
	return &JuliaManager{
		dir:     dir,
		project: project,
		cfg:     opts.config(),
		logger:  opts.logger(),
		output:  opts.Output,
	}, nil
}

func (m *JuliaManager) Kind() Kind  { return KindJulia }
func (m *JuliaManager) Dir() string { return m.dir }

// Deps returns the sorted names of the project's direct dependencies.
func (m *JuliaManager) Deps() []string {
	return slices.Sorted(maps.Keys(m.project.Deps))
}

// Setup locates julia on the configured PATH. Install it with juliaup
// (`eegmark init` does this).
func (m *JuliaManager) Setup(ctx context.Context) error {
	if m.julia != "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p, ok := toolchain.LookPath("julia", m.cfg.PathEnv())
	if !ok {
		if p, ok = toolchain.Which("julia"); !ok {
			return &SetupError{Manager: KindJulia, Err: errors.New("julia not found on PATH; run `eegmark init`")}
		}
	}
	m.logger.Debug("found julia", "path", p, "project", m.project.Name)
	m.julia = p
	return nil
}

func (m *JuliaManager) SelectVersions(ctx context.Context) error {
	if err := m.pkg(ctx, "Pkg.resolve()"); err != nil {
		return &InstallError{Manager: KindJulia, Step: "resolve", Err: err}
	}
	return nil
}

func (m *JuliaManager) Install(ctx context.Context) error {
	if err := m.pkg(ctx, "Pkg.instantiate()"); err != nil {
		return &InstallError{Manager: KindJulia, Step: "instantiate", Err: err}
	}
	return nil
}

func (m *JuliaManager) pkg(ctx context.Context, call string) error {
	if m.julia == "" {
		return &SetupError{Manager: KindJulia, Err: errNotSetUp}
	}
	cmd := &executor.Command{
		Line:   executor.Join(m.julia, "--startup-file=no", "--project="+m.dir, "--eval", "import Pkg; "+call),
		Dir:    m.dir,
		Env:    m.env(),
		Stderr: m.output,
	}
	_, err := run(ctx, cmd)
	return err
}

func (m *JuliaManager) env() executor.Env {
	return executor.Minimal(m.cfg.PathEnv()).With(executor.Env{
		"JULIA_PROJECT":   m.dir,
		"JULIA_LOAD_PATH": "@",
	})
}

func (m *JuliaManager) Command(ctx context.Context, line string) (*executor.Command, error) {
	if m.julia == "" {
		return nil, &SetupError{Manager: KindJulia, Err: errNotSetUp}
	}
	return &executor.Command{Line: line, Dir: m.dir, Env: m.env()}, nil
}

func (m *JuliaManager) ExecuteCommand(ctx context.Context, line string) (string, error) {
	cmd, err := m.Command(ctx, line)
	if err != nil {
		return "", err
	}
	cmd.Stderr = m.output
	return run(ctx, cmd)
}

var (
	_ Manager  = (*JuliaManager)(nil)
	_ Launcher = (*JuliaManager)(nil)
)
