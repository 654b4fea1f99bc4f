package pkgman

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/eegmark/internal/executor"
)

// pipProvider is the spack package that puts pip into the environment.
const pipProvider = "py-pip"

// SpackPipManager is a spack environment plus a requirements.txt installed
// with pip from inside that environment.
type SpackPipManager struct {
	env          *spackEnv
	requirements string
}

func NewSpackPipManager(dir string, opts Options) (*SpackPipManager, error) {
	dir, err := absDir(dir)
	if err != nil {
		return nil, err
	}
	found, ok := markers(KindSpackPip, dir)
	if !ok {
		return nil, notApplicable(KindSpackPip, dir)
	}
	env, err := newSpackEnv(dir, opts)
	if err != nil {
		return nil, err
	}
	specs, err := readSpackSpecs(env.descriptor)
	if err != nil {
		return nil, &ConfigurationError{Dir: dir, Reason: "reading spack descriptor", Err: err}
	}
	if !hasSpec(specs, pipProvider) {
		env.logger.Warn("found spack.yaml and requirements.txt, but py-pip is not in the environment specs; add it",
			"dir", dir)
		return nil, &ConfigurationError{
			Dir:    dir,
			Reason: fmt.Sprintf("requirements.txt present but %s is not among the spack specs", pipProvider),
		}
	}
	return &SpackPipManager{env: env, requirements: found[1]}, nil
}

func (m *SpackPipManager) Kind() Kind  { return KindSpackPip }
func (m *SpackPipManager) Dir() string { return m.env.dir }

func (m *SpackPipManager) Setup(ctx context.Context) error {
	return ctx.Err()
}

func (m *SpackPipManager) SelectVersions(ctx context.Context) error {
	if err := m.env.concretize(ctx); err != nil {
		return &InstallError{Manager: KindSpackPip, Step: "concretize", Err: err}
	}
	return nil
}

// Install installs the spack environment, then the pip requirements into it.
func (m *SpackPipManager) Install(ctx context.Context) error {
	m.env.logger.Debug("installing spack dependencies", "dir", m.env.dir)
	if err := m.env.install(ctx); err != nil {
		return &InstallError{Manager: KindSpackPip, Step: "install", Err: err}
	}
	m.env.logger.Debug("installing pip requirements", "file", m.requirements)
	line := executor.Join("python", "-m", "pip", "install", "-r", m.requirements)
	if _, err := m.ExecuteCommand(ctx, line); err != nil {
		return &InstallError{Manager: KindSpackPip, Step: "pip install", Err: err}
	}
	return nil
}

func (m *SpackPipManager) Command(ctx context.Context, line string) (*executor.Command, error) {
	return m.env.command(ctx, line)
}

func (m *SpackPipManager) ExecuteCommand(ctx context.Context, line string) (string, error) {
	return m.env.execute(ctx, line)
}

// spackDescriptor is the part of spack.yaml this package reads. Specs may be
// plain strings or matrix entries, so they stay untyped.
type spackDescriptor struct {
	Spack struct {
		Specs []any `yaml:"specs"`
	} `yaml:"spack"`
}

func readSpackSpecs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var desc spackDescriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	var specs []string
	collectSpecs(desc.Spack.Specs, &specs)
	return specs, nil
}

func collectSpecs(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		*out = append(*out, t)
	case []any:
		for _, e := range t {
			collectSpecs(e, out)
		}
	case map[string]any:
		for _, e := range t {
			collectSpecs(e, out)
		}
	}
}

// hasSpec reports whether any spec names package pkg, ignoring version,
// compiler, variant and dependency suffixes.
func hasSpec(specs []string, pkg string) bool {
	for _, s := range specs {
		name := strings.TrimSpace(s)
		if i := strings.IndexAny(name, "@%+~^ "); i >= 0 {
			name = name[:i]
		}
		if name == pkg {
			return true
		}
	}
	return false
}

var (
	_ Manager  = (*SpackPipManager)(nil)
	_ Launcher = (*SpackPipManager)(nil)
)
