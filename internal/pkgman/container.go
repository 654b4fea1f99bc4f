package pkgman

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/signalnine/eegmark/internal/docker"
)

// DockerRunner is the part of *docker.Client the container backend uses.
type DockerRunner interface {
	Ping(ctx context.Context) error
	PullImage(ctx context.Context, image string) error
	RunContainer(ctx context.Context, opts *docker.RunOpts) (*docker.RunResult, error)
}

// containerSpec is the content of container.yaml.
type containerSpec struct {
	Image   string            `yaml:"image"`
	Env     map[string]string `yaml:"env"`
	Workdir string            `yaml:"workdir"`
}

// ContainerManager runs every command in a fresh container of a prebuilt
// image, with the benchmark directory bind-mounted as the working directory.
type ContainerManager struct {
	dir    string
	spec   containerSpec
	logger *log.Logger
	output io.Writer
	docker DockerRunner
	// owned is set when Setup created the client, which Close then releases.
	owned  bool
	ready  bool
}

func NewContainerManager(dir string, opts Options) (*ContainerManager, error) {
	dir, err := absDir(dir)
	if err != nil {
		return nil, err
	}
	found, ok := markers(KindContainer, dir)
	if !ok {
		return nil, notApplicable(KindContainer, dir)
	}
	data, err := os.ReadFile(found[0])
	if err != nil {
		return nil, &ConfigurationError{Dir: dir, Reason: "reading container.yaml", Err: err}
	}
	var spec containerSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, &ConfigurationError{Dir: dir, Reason: "parsing container.yaml", Err: err}
	}
	if strings.TrimSpace(spec.Image) == "" {
		return nil, &ConfigurationError{Dir: dir, Reason: "container.yaml names no image"}
	}
	// Mounting at the host path keeps absolute script paths valid inside
	// the container.
	if spec.Workdir == "" {
		spec.Workdir = dir
	}
	if !strings.HasPrefix(spec.Workdir, "/") {
		return nil, &ConfigurationError{Dir: dir, Reason: fmt.Sprintf("workdir %q is not absolute", spec.Workdir)}
	}
	return &ContainerManager{
		dir:    dir,
		spec:   spec,
		logger: opts.logger(),
		output: opts.Output,
		docker: opts.Docker,
	}, nil
}

func (m *ContainerManager) Kind() Kind  { return KindContainer }
func (m *ContainerManager) Dir() string { return m.dir }

// Image is the image named in container.yaml.
func (m *ContainerManager) Image() string { return m.spec.Image }

// Setup connects to the docker daemon unless a runner was supplied.
func (m *ContainerManager) Setup(ctx context.Context) error {
	if m.ready {
		return nil
	}
	if m.docker == nil {
		c, err := docker.NewClient()
		if err != nil {
			return &SetupError{Manager: KindContainer, Err: err}
		}
		m.docker = c
		m.owned = true
	}
	if err := m.docker.Ping(ctx); err != nil {
		return &SetupError{Manager: KindContainer, Err: err}
	}
	m.ready = true
	return nil
}

// SelectVersions is a no-op; the image tag is the pin.
func (m *ContainerManager) SelectVersions(ctx context.Context) error {
	return ctx.Err()
}

func (m *ContainerManager) Install(ctx context.Context) error {
	if !m.ready {
		return &SetupError{Manager: KindContainer, Err: errNotSetUp}
	}
	m.logger.Debug("pulling image", "image", m.spec.Image)
	if err := m.docker.PullImage(ctx, m.spec.Image); err != nil {
		return &InstallError{Manager: KindContainer, Step: "pull", Err: err}
	}
	return nil
}

func (m *ContainerManager) ExecuteCommand(ctx context.Context, line string) (string, error) {
	if !m.ready {
		return "", &SetupError{Manager: KindContainer, Err: errNotSetUp}
	}
	res, err := m.docker.RunContainer(ctx, &docker.RunOpts{
		Image:   m.spec.Image,
		Command: []string{"bash", "-c", line},
		Source:  m.dir,
		Target:  m.spec.Workdir,
		Env:     m.spec.Env,
	})
	if err != nil {
		return "", err
	}
	if m.output != nil && res.Stderr != "" {
		io.WriteString(m.output, res.Stderr)
	}
	stdout := strings.TrimRight(res.Stdout, "\r\n")
	if res.TimedOut {
		return stdout, &CommandError{Line: line, ExitCode: res.ExitCode, Stderr: res.Stderr + "\ntimed out"}
	}
	if res.ExitCode != 0 {
		return stdout, &CommandError{Line: line, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return stdout, nil
}

// Close releases the docker client if Setup created one. A later Setup
// connects again.
func (m *ContainerManager) Close() error {
	m.ready = false
	if !m.owned {
		return nil
	}
	c := m.docker.(*docker.Client)
	m.docker, m.owned = nil, false
	return c.Close()
}

var (
	_ Manager      = (*ContainerManager)(nil)
	_ io.Closer    = (*ContainerManager)(nil)
	_ DockerRunner = (*docker.Client)(nil)
)
