package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SystemPath is always placed ahead of the configured tool directories.
var SystemPath = []string{"/usr/local/bin", "/usr/bin", "/bin"}

type Config struct {
	Path    []string `yaml:"path"`
	Trials  int      `yaml:"trials"`
	Results Results  `yaml:"results"`
	Spack   Spack    `yaml:"spack"`
	Conda   Conda    `yaml:"conda"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

type Spack struct {
	Root string `yaml:"root"`
	Repo string `yaml:"repo"`
	// Ref is the branch or tag cloned when spack has to be bootstrapped.
	Ref string `yaml:"ref"`
}

type Conda struct {
	BootstrapSpec string `yaml:"bootstrap_spec"`
	PrefixDir     string `yaml:"prefix_dir"`
}

// Dir is the directory holding the config file and, by default, results.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "eegmark")
	}
	return filepath.Join(home, ".config", "eegmark")
}

func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// PathEnv renders the PATH handed to every benchmark subprocess.
func (c *Config) PathEnv() string {
	seen := map[string]bool{}
	var dirs []string
	for _, d := range append(append([]string{}, SystemPath...), c.Path...) {
		d = filepath.Clean(d)
		if seen[d] {
			continue
		}
		seen[d] = true
		dirs = append(dirs, d)
	}
	return strings.Join(dirs, string(os.PathListSeparator))
}

// AddPath records a tool directory unless it is already present.
func (c *Config) AddPath(dir string) {
	dir = filepath.Clean(dir)
	for _, p := range c.Path {
		if filepath.Clean(p) == dir {
			return
		}
	}
	c.Path = append(c.Path, dir)
}

func applyDefaults(cfg *Config) {
	if cfg.Trials == 0 {
		cfg.Trials = 1
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = filepath.Join(Dir(), "results")
	}
	if cfg.Spack.Root == "" {
		cfg.Spack.Root = filepath.Join(Dir(), "spack")
	}
	if cfg.Spack.Repo == "" {
		cfg.Spack.Repo = "https://github.com/spack/spack.git"
	}
	if cfg.Conda.BootstrapSpec == "" {
		cfg.Conda.BootstrapSpec = "miniconda3"
	}
	if cfg.Conda.PrefixDir == "" {
		cfg.Conda.PrefixDir = ".conda"
	}
}

func validate(cfg *Config) error {
	applyDefaults(cfg)
	if cfg.Trials < 1 {
		return fmt.Errorf("trials must be at least 1")
	}
	for i, p := range cfg.Path {
		if p == "" {
			return fmt.Errorf("path %d: empty directory", i)
		}
		if !filepath.IsAbs(p) {
			return fmt.Errorf("path %d: %q is not absolute", i, p)
		}
	}
	if filepath.IsAbs(cfg.Conda.PrefixDir) || strings.Contains(cfg.Conda.PrefixDir, "..") {
		return fmt.Errorf("conda prefix_dir %q must be a plain relative directory", cfg.Conda.PrefixDir)
	}
	return nil
}
