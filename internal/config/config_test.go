package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/farcloser/primordium/fault"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_NoFiles(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with no files: %v", err)
	}
	if !reflect.DeepEqual(cfg, Config{}) {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestLoad_GlobalOnly(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	writeConfig(t, filepath.Join(home, ".mcp-safety-scan", "config.yaml"), "format: sarif\nworkers: 2\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Format != "sarif" {
		t.Fatalf("expected format sarif, got %q", cfg.Format)
	}
	if cfg.Workers == nil || *cfg.Workers != 2 {
		t.Fatalf("expected Workers 2, got %v", cfg.Workers)
	}
}

func TestLoad_LocalOverridesGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	repo := t.TempDir()
	t.Chdir(repo)

	writeConfig(t, filepath.Join(home, ".mcp-safety-scan", "config.yaml"),
		"fail_on: medium\nignore_dirs: [vendor]\ninclude_tests: true\nno_color: true\n")
	writeConfig(t, filepath.Join(repo, LocalFileName),
		"fail_on: critical\nignore_dirs: [third_party, generated]\ninclude_tests: false\nskip_rules: [file-delete-apis]\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FailOn != "critical" {
		t.Fatalf("expected local fail_on, got %q", cfg.FailOn)
	}
	if !reflect.DeepEqual(cfg.IgnoreDirs, []string{"third_party", "generated"}) {
		t.Fatalf("expected local ignore_dirs to replace global, got %v", cfg.IgnoreDirs)
	}
	if cfg.IncludeTests == nil || *cfg.IncludeTests {
		t.Fatalf("expected explicit false include_tests to win, got %v", cfg.IncludeTests)
	}
	if cfg.NoColor == nil || !*cfg.NoColor {
		t.Fatalf("expected global no_color to survive, got %v", cfg.NoColor)
	}
	if !reflect.DeepEqual(cfg.SkipRules, []string{"file-delete-apis"}) {
		t.Fatalf("unexpected skip_rules %v", cfg.SkipRules)
	}
}

func TestLoadFrom_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"malformed yaml", "format: [unclosed\n"},
		{"unknown key", "formatt: json\n"},
		{"zero workers", "workers: 0\n"},
		{"negative max bytes", "max_file_bytes: -1\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".yaml")
			writeConfig(t, path, tc.body)
			if _, err := LoadFrom(path); err == nil {
				t.Fatalf("expected error for %q", tc.body)
			}
		})
	}
}

func TestLoadFrom_EmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	writeConfig(t, empty, "  \n")

	cfg, err := LoadFrom("", filepath.Join(dir, "missing.yaml"), empty)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if !reflect.DeepEqual(cfg, Config{}) {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestLoadFrom_UnreadableIsReadFailure(t *testing.T) {
	dir := t.TempDir()
	// A directory cannot be read as a file.
	_, err := LoadFrom(dir)
	if !errors.Is(err, fault.ErrReadFailure) {
		t.Fatalf("expected read failure, got %v", err)
	}
}
