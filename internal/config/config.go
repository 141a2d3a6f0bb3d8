package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/farcloser/primordium/fault"
	"gopkg.in/yaml.v3"
)

const (
	globalDirName = ".mcp-safety-scan"
	globalFile    = "config.yaml"
	LocalFileName = ".mcp-safety-scan.yaml"
)

// Config mirrors the scan flag names. Nil pointers and empty strings mean
// "not set".
type Config struct {
	Format       string   `yaml:"format,omitempty"`
	FailOn       string   `yaml:"fail_on,omitempty"`
	IgnoreDirs   []string `yaml:"ignore_dirs,omitempty"`
	IncludeTests *bool    `yaml:"include_tests,omitempty"`
	Workers      *int     `yaml:"workers,omitempty"`
	MaxFileBytes *int64   `yaml:"max_file_bytes,omitempty"`
	Baseline     string   `yaml:"baseline,omitempty"`
	OnlyRules    []string `yaml:"only_rules,omitempty"`
	SkipRules    []string `yaml:"skip_rules,omitempty"`
	NoColor      *bool    `yaml:"no_color,omitempty"`
}

// Load reads config from layered sources:
//  1. ~/.mcp-safety-scan/config.yaml (global)
//  2. ./.mcp-safety-scan.yaml (repo-local, takes precedence)
//
// Missing files are silently ignored.
func Load() (Config, error) {
	var globalPath, localPath string
	if home, _ := os.UserHomeDir(); home != "" {
		globalPath = filepath.Join(home, globalDirName, globalFile)
	}
	if cwd, _ := os.Getwd(); cwd != "" {
		localPath = filepath.Join(cwd, LocalFileName)
	}
	return LoadFrom(globalPath, localPath)
}

// LoadFrom merges the files at paths in order, later files winning. Empty
// paths are skipped.
func LoadFrom(paths ...string) (Config, error) {
	var merged Config
	for _, path := range paths {
		if path == "" {
			continue
		}
		layer, err := loadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
		merged = merge(merged, layer)
	}
	return merged, nil
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return Config{}, nil
	}
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", *c.Workers)
	}
	if c.MaxFileBytes != nil && *c.MaxFileBytes < 1 {
		return fmt.Errorf("max_file_bytes must be >= 1, got %d", *c.MaxFileBytes)
	}
	return nil
}

// merge applies overrides from b onto a. Set fields in b win; lists replace
// rather than append.
func merge(a, b Config) Config {
	if b.Format != "" {
		a.Format = b.Format
	}
	if b.FailOn != "" {
		a.FailOn = b.FailOn
	}
	if b.IgnoreDirs != nil {
		a.IgnoreDirs = b.IgnoreDirs
	}
	if b.IncludeTests != nil {
		a.IncludeTests = b.IncludeTests
	}
	if b.Workers != nil {
		a.Workers = b.Workers
	}
	if b.MaxFileBytes != nil {
		a.MaxFileBytes = b.MaxFileBytes
	}
	if b.Baseline != "" {
		a.Baseline = b.Baseline
	}
	if b.OnlyRules != nil {
		a.OnlyRules = b.OnlyRules
	}
	if b.SkipRules != nil {
		a.SkipRules = b.SkipRules
	}
	if b.NoColor != nil {
		a.NoColor = b.NoColor
	}
	return a
}
