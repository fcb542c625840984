// Package config loads phsctl settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/leed_phase_go/internal/parser"
	"github.com/user/leed_phase_go/internal/phaseshift"
)

const (
	FileName = "phsctl.yaml"

	EnvPrecision = "PHSCTL_PRECISION"
	EnvLogLevel  = "PHSCTL_LOG"
)

// Config holds the settings of one run.
type Config struct {
	PhaseDir  string  `yaml:"phase_dir"`
	Precision int     `yaml:"precision"`
	Tolerance float64 `yaml:"tolerance"`
	LogLevel  string  `yaml:"log_level"`

	// Source is the file the settings were read from, empty if none.
	Source string `yaml:"-"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Precision: 64,
		Tolerance: phaseshift.DefaultTolerance,
		LogLevel:  "info",
	}
}

// Load reads path, or the first phsctl.yaml found in the standard locations
// when path is empty, and applies environment overrides. A missing file in
// the standard locations is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Source = path
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if dir, ok := os.LookupEnv(phaseshift.EnvPhaseDir); ok && dir != "" {
		c.PhaseDir = dir
	}
	if p := os.Getenv(EnvPrecision); p != "" {
		bits, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPrecision, err)
		}
		c.Precision = bits
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.LogLevel = strings.ToLower(lvl)
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Precision != 32 && c.Precision != 64 {
		return fmt.Errorf("precision must be 32 or 64, got %d", c.Precision)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %g", c.Tolerance)
	}
	return nil
}

// ParserPrecision maps Precision onto the parser's setting.
func (c Config) ParserPrecision() parser.Precision {
	if c.Precision == 32 {
		return parser.Precision32
	}
	return parser.Precision64
}

// RepositoryOptions returns the options a Repository for this run needs.
func (c Config) RepositoryOptions() []phaseshift.Option {
	return []phaseshift.Option{
		phaseshift.WithSearchDir(c.PhaseDir),
		phaseshift.WithTolerance(c.Tolerance),
		phaseshift.WithPrecision(c.ParserPrecision()),
	}
}

func findConfigFile() string {
	candidates := []string{
		os.Getenv("XDG_CONFIG_HOME"),
		os.Getenv("APPDATA"),
		os.Getenv("HOME"),
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		file := filepath.Join(c, FileName)
		info, err := os.Stat(file)
		if err == nil && !info.IsDir() {
			return file
		}
	}
	return ""
}
