// Package config loads leakmap's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jensroland/leakmap/internal/report"
)

// Default values for configuration.
const (
	DefaultEngine   = "docker"
	DefaultImage    = "nat2194/leakage-analysis:1.0"
	DefaultMountDir = "/app/leakage-analysis/test"
	DefaultTimeout  = 10 * time.Minute
	DefaultFileName = ".leakmap.yaml"
)

// Environment variable names.
const (
	EnvEngine   = "LEAKMAP_ENGINE"
	EnvImage    = "LEAKMAP_IMAGE"
	EnvCacheDir = "LEAKMAP_CACHE_DIR"
	EnvJobs     = "LEAKMAP_JOBS"
)

type Config struct {
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Report   ReportConfig   `yaml:"report"`
	Cache    CacheConfig    `yaml:"cache"`
	// Jobs bounds how many documents analyze processes at once.
	Jobs int `yaml:"jobs"`
}

type AnalyzerConfig struct {
	Engine   string        `yaml:"engine"`
	Image    string        `yaml:"image"`
	MountDir string        `yaml:"mount_dir"`
	Timeout  time.Duration `yaml:"timeout"`
}

type ReportConfig struct {
	// CommentClasses are the highlighter classes that mark comment tokens.
	CommentClasses []string `yaml:"comment_classes"`
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analyzer: AnalyzerConfig{
			Engine:   DefaultEngine,
			Image:    DefaultImage,
			MountDir: DefaultMountDir,
			Timeout:  DefaultTimeout,
		},
		Report: ReportConfig{
			CommentClasses: append([]string(nil), report.DefaultCommentClasses...),
		},
		Cache: CacheConfig{Enabled: true},
		Jobs:  runtime.NumCPU(),
	}
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve loads path when given. Otherwise it loads DefaultFileName from
// the working directory if present, falling back to the defaults.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultFileName); err == nil {
		return Load(DefaultFileName)
	}
	cfg := DefaultConfig()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	if err := c.applyEnvironmentOverrides(); err != nil {
		return err
	}
	if err := Validate(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() error {
	if v := os.Getenv(EnvEngine); v != "" {
		c.Analyzer.Engine = v
	}
	if v := os.Getenv(EnvImage); v != "" {
		c.Analyzer.Image = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv(EnvJobs); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvJobs, err)
		}
		c.Jobs = n
	}
	return nil
}

// Validate checks a configuration for errors.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Analyzer.Engine) == "" {
		return errors.New("analyzer.engine: required")
	}
	if strings.TrimSpace(cfg.Analyzer.Image) == "" {
		return errors.New("analyzer.image: required")
	}
	if !strings.HasPrefix(cfg.Analyzer.MountDir, "/") {
		return fmt.Errorf("analyzer.mount_dir: must be an absolute container path, got %q", cfg.Analyzer.MountDir)
	}
	if cfg.Analyzer.Timeout < 0 {
		return errors.New("analyzer.timeout: must not be negative")
	}
	if len(cfg.Report.CommentClasses) == 0 {
		return errors.New("report.comment_classes: at least one class is required")
	}
	for i, c := range cfg.Report.CommentClasses {
		if strings.TrimSpace(c) == "" || strings.ContainsAny(c, " \t") {
			return fmt.Errorf("report.comment_classes[%d]: invalid class %q", i, c)
		}
	}
	if cfg.Jobs < 1 {
		return fmt.Errorf("jobs: must be at least 1, got %d", cfg.Jobs)
	}
	return nil
}
