package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/checks"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/config"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/report"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/worker"
)

const failOnNone = "none"

// commonFlags are shared by the scan and watch commands.
type commonFlags struct {
	format       string
	ignoreDirs   []string
	includeTests bool
	baseline     string
	workers      int
	maxFileBytes int64
	onlyRules    []string
	skipRules    []string
	noColor      bool
	noIgnoreFile bool
	verbose      bool
}

func (f *commonFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.format, "format", "text", "Output format: text|json|sarif|github")
	fs.StringSliceVar(&f.ignoreDirs, "ignore-dir", nil, "Extra directory name to skip (repeatable or comma-separated)")
	fs.BoolVar(&f.includeTests, "include-tests", false, "Scan test files and test directories too")
	fs.StringVar(&f.baseline, "baseline", "", "Hide findings recorded in this baseline file")
	fs.IntVar(&f.workers, "workers", 0, "Concurrent file readers (default GOMAXPROCS)")
	fs.Int64Var(&f.maxFileBytes, "max-file-bytes", worker.DefaultMaxFileBytes, "Skip files larger than this many bytes")
	fs.StringSliceVar(&f.onlyRules, "only-rule", nil, "Only run specific rule ID(s) (repeatable or comma-separated)")
	fs.StringSliceVar(&f.skipRules, "skip-rule", nil, "Skip specific rule ID(s) (repeatable or comma-separated)")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored text output")
	fs.BoolVar(&f.noIgnoreFile, "no-ignore-file", false, "Do not read .mcp-safety-scanignore")
	fs.BoolVar(&f.verbose, "verbose", false, "Enable debug logs on stderr")
}

// applyConfig fills every flag the user did not set explicitly from cfg.
func (f *commonFlags) applyConfig(cmd *cobra.Command, cfg config.Config) {
	changed := cmd.Flags().Changed
	if !changed("format") && cfg.Format != "" {
		f.format = cfg.Format
	}
	if !changed("ignore-dir") && cfg.IgnoreDirs != nil {
		f.ignoreDirs = cfg.IgnoreDirs
	}
	if !changed("include-tests") && cfg.IncludeTests != nil {
		f.includeTests = *cfg.IncludeTests
	}
	if !changed("baseline") && cfg.Baseline != "" {
		f.baseline = cfg.Baseline
	}
	if !changed("workers") && cfg.Workers != nil {
		f.workers = *cfg.Workers
	}
	if !changed("max-file-bytes") && cfg.MaxFileBytes != nil {
		f.maxFileBytes = *cfg.MaxFileBytes
	}
	if !changed("only-rule") && cfg.OnlyRules != nil {
		f.onlyRules = cfg.OnlyRules
	}
	if !changed("skip-rule") && cfg.SkipRules != nil {
		f.skipRules = cfg.SkipRules
	}
	if !changed("no-color") && cfg.NoColor != nil {
		f.noColor = *cfg.NoColor
	}
}

func (f *commonFlags) resolveFormat() (report.Format, error) {
	format, err := report.ParseFormat(f.format)
	if err != nil {
		return "", usageError("Invalid --format. Use: text, json, sarif, or github.")
	}
	return format, nil
}

func (f *commonFlags) resolveRules() ([]checks.Rule, error) {
	rules, err := checks.Select(checks.Builtins(), splitList(f.onlyRules), splitList(f.skipRules))
	if err != nil {
		return nil, usageError("Invalid rule selection: %v", err)
	}
	return rules, nil
}

func (f *commonFlags) validate() error {
	if f.workers < 0 {
		return usageError("Invalid --workers: must be >= 0.")
	}
	if f.maxFileBytes <= 0 {
		return usageError("Invalid --max-file-bytes: must be > 0.")
	}
	return nil
}

func (f *commonFlags) useColor(w io.Writer) bool {
	if f.noColor {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// parseFailOn returns "" for none.
func parseFailOn(raw string) (model.Severity, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return model.SeverityHigh, nil
	}
	if v == failOnNone {
		return "", nil
	}
	sev, ok := model.ParseSeverity(v)
	if !ok {
		return "", usageError("Invalid --fail-on. Use one of: critical, high, medium, low, info, none.")
	}
	return sev, nil
}

// splitList flattens comma-separated entries and drops blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// readFileList reads one path per line, skipping blank lines and lines
// starting with '#'. "-" reads stdin.
func readFileList(source string, stdin io.Reader) ([]string, error) {
	var r io.Reader
	if strings.TrimSpace(source) == "-" {
		r = stdin
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	files := []string{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		files = append(files, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read file list: %w", err)
	}
	return files, nil
}
