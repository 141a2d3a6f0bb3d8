package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/baseline"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/config"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/git"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/logging"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/progress"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/report"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/scan"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/tui"
)

const scanExamples = `  mcp-safety-scanner .
  mcp-safety-scanner /path/to/repo --format=json
  mcp-safety-scanner /path/to/repo --format=sarif > results.sarif
  mcp-safety-scanner /path/to/repo --format=github
  mcp-safety-scanner /path/to/repo --fail-on=medium
  mcp-safety-scanner /path/to/repo --ignore-dir=test --ignore-dir=__tests__
  git diff --name-only origin/main...HEAD > changed.txt && mcp-safety-scanner . --files-from=changed.txt
  mcp-safety-scanner . src/server.ts src/auth.py
  mcp-safety-scanner . --include-tests
  mcp-safety-scanner /path/to/repo --write-baseline .mcp-safety-baseline.json`

type scanFlags struct {
	commonFlags
	failOn        string
	filesFrom     string
	writeBaseline string
	tui           bool
	progress      bool
	changed       string
	staged        bool
}

func newScanCmd() *cobra.Command {
	var f scanFlags
	cmd := &cobra.Command{
		Use:     "mcp-safety-scanner [path] [file ...]",
		Short:   "Scan MCP server code for risky patterns",
		Long:    "Scan a directory (default .) for risky code patterns in MCP tool servers.\nExtra positional arguments limit the scan to those files.",
		Example: scanExamples,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args, &f)
		},
	}
	f.register(cmd)
	fs := cmd.Flags()
	fs.StringVar(&f.failOn, "fail-on", "high", "Exit 1 when a finding is at or above: critical|high|medium|low|info|none")
	fs.StringVar(&f.filesFrom, "files-from", "", "Scan only the files listed in FILE, one per line (- for stdin)")
	fs.StringVar(&f.writeBaseline, "write-baseline", "", "Record current findings to this baseline file")
	fs.BoolVar(&f.tui, "tui", false, "Show live progress in an interactive terminal UI")
	fs.BoolVar(&f.progress, "progress", false, "Print per-file progress lines to stderr")
	fs.StringVar(&f.changed, "changed", "", "Scan only files changed since a git ref (default HEAD when given without a value)")
	fs.Lookup("changed").NoOptDefVal = "HEAD"
	fs.BoolVar(&f.staged, "staged", false, "Scan only files staged in the git index")
	return cmd
}

func runScan(cmd *cobra.Command, args []string, f *scanFlags) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, err := config.Load()
	if err != nil {
		return usageError("Failed to load config: %v", err)
	}
	f.applyConfig(cmd, cfg)
	if !cmd.Flags().Changed("fail-on") && cfg.FailOn != "" {
		f.failOn = cfg.FailOn
	}
	// A configured baseline never conflicts with an explicit write.
	if f.writeBaseline != "" && !cmd.Flags().Changed("baseline") {
		f.baseline = ""
	}

	failOn, err := parseFailOn(f.failOn)
	if err != nil {
		return err
	}
	format, err := f.resolveFormat()
	if err != nil {
		return err
	}
	if f.baseline != "" && f.writeBaseline != "" {
		return usageError("Invalid usage: do not combine --baseline with --write-baseline.")
	}
	if err := f.validate(); err != nil {
		return err
	}
	rules, err := f.resolveRules()
	if err != nil {
		return err
	}

	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	sources := 0
	for _, set := range []bool{f.filesFrom != "", len(args) > 1, f.changed != "", f.staged} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return usageError("Invalid usage: choose one of --files-from, --changed, --staged or a positional file list.")
	}

	var files []string
	switch {
	case f.changed != "" || f.staged:
		files, err = gitFileList(cmd.Context(), target, f.changed, f.staged)
		if err != nil {
			return usageError("Failed to list changed files: %v", err)
		}
	case f.filesFrom != "":
		files, err = readFileList(f.filesFrom, cmd.InOrStdin())
		if err != nil {
			return usageError("Failed to read --files-from: %v", err)
		}
	case len(args) > 1:
		files = args[1:]
	}

	var known baseline.Set
	if f.baseline != "" {
		known, err = baseline.Load(f.baseline)
		if err != nil {
			return usageError("Failed to load baseline: %v", err)
		}
	}

	log := logging.NewTo(stderr, f.verbose)
	defer func() { _ = log.Sync() }()

	opts := scan.Options{
		Root:            target,
		Files:           files,
		ExtraIgnoreDirs: splitList(f.ignoreDirs),
		IncludeTests:    f.includeTests,
		NoIgnoreFile:    f.noIgnoreFile,
		MaxFileBytes:    f.maxFileBytes,
		Workers:         f.workers,
		Rules:           rules,
		Logger:          log,
	}
	raw, scanErr := f.execute(cmd.Context(), opts, stderr, log)
	if scanErr != nil && !errors.Is(scanErr, context.Canceled) && !errors.Is(scanErr, context.DeadlineExceeded) {
		return usageError("Failed to scan: %v", scanErr)
	}

	result := raw
	delta := baseline.Diff(raw.Findings, known)
	if known != nil {
		result.Findings = delta.New
		log.Debugw("baseline applied", "known", delta.Known, "stale", delta.Stale)
	}

	if f.writeBaseline != "" {
		// A partial scan would overwrite the accepted findings.
		if scanErr != nil {
			return usageError("Baseline not written: scan interrupted: %v", scanErr)
		}
		doc, err := baseline.Write(f.writeBaseline, raw.Findings, time.Now())
		if err != nil {
			return usageError("Failed to write baseline: %v", err)
		}
		fmt.Fprintf(stderr, "Wrote baseline %s (%d fingerprint(s))\n", f.writeBaseline, len(doc.Fingerprints))
	}

	if err := report.Render(stdout, format, result, report.Options{
		Color:      f.useColor(stdout),
		Rules:      rules,
		Suppressed: delta.Known,
	}); err != nil {
		return usageError("Failed to write report: %v", err)
	}

	if scanErr != nil {
		return usageError("Scan interrupted: %v", scanErr)
	}
	if f.writeBaseline == "" && failOn != "" && reachesThreshold(result.Findings, failOn) {
		return &exitError{code: exitFindings}
	}
	return nil
}

// execute runs the scan, drawing the TUI when requested.
func (f *scanFlags) execute(ctx context.Context, opts scan.Options, stderr io.Writer, log *zap.SugaredLogger) (model.ScanResult, error) {
	if !f.tui {
		var sink progress.Sink = progress.NewLogSink(log)
		if f.progress {
			sink = progress.Multi{progress.NewPlainSink(stderr), sink}
		}
		opts.Sink = sink
		return scan.Run(ctx, opts)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan progress.Event, 256)
	opts.Sink = progress.NewChannelSink(events)
	// The TUI owns stderr while it runs.
	opts.Logger = zap.NewNop().Sugar()

	type runResult struct {
		result model.ScanResult
		err    error
	}
	done := make(chan runResult, 1)
	go func() {
		defer close(events)
		res, err := scan.Run(ctx, opts)
		done <- runResult{result: res, err: err}
	}()

	if err := tui.Run(tui.Options{Events: events, Output: stderr, Cancel: cancel}); err != nil {
		log.Warnw("terminal UI failed", "error", err)
	}
	for range events {
	}
	res := <-done
	return res.result, res.err
}

// gitFileList returns the changed or staged files under target, relative
// to target.
func gitFileList(ctx context.Context, target, ref string, staged bool) ([]string, error) {
	repo, err := git.RepoRoot(ctx, target)
	if err != nil {
		return nil, err
	}
	var abs []string
	if staged {
		abs, err = git.StagedFiles(ctx, repo)
	} else {
		abs, err = git.ChangedFiles(ctx, repo, ref)
	}
	if err != nil {
		return nil, err
	}

	// git reports paths under the resolved top level.
	base, err := filepath.Abs(target)
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}
	files := make([]string, 0, len(abs))
	for _, p := range abs {
		rel, err := filepath.Rel(base, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		files = append(files, rel)
	}
	return files, nil
}

func reachesThreshold(findings []model.Finding, threshold model.Severity) bool {
	for _, f := range findings {
		if f.Severity.AtLeast(threshold) {
			return true
		}
	}
	return false
}
