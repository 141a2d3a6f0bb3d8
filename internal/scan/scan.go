package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/checks"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/intake"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/progress"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/worker"
)

// Options configures a scan run.
type Options struct {
	Root string
	// Files, when non-nil, replaces the directory walk with an explicit
	// list. Relative entries are resolved against Root.
	Files           []string
	ExtraIgnoreDirs []string
	IncludeTests    bool
	NoIgnoreFile    bool
	MaxFileBytes    int64
	Workers         int
	// Rules defaults to the built-in catalog.
	Rules  []checks.Rule
	Sink   progress.Sink
	Logger *zap.SugaredLogger
}

// Run collects candidate files, scans them on a bounded pool and returns the
// findings in report order. When ctx ends early the partial, sorted result
// is returned together with ctx.Err().
func Run(ctx context.Context, opts Options) (model.ScanResult, error) {
	if opts.Sink == nil {
		opts.Sink = progress.NoopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Rules == nil {
		opts.Rules = checks.Builtins()
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("resolve scan root: %w", err)
	}
	result := model.ScanResult{Root: root, Findings: []model.Finding{}}
	started := time.Now()

	candidates, err := collect(ctx, root, opts)
	if err != nil {
		return result, err
	}

	opts.Sink.Emit(progress.Event{
		Type:       progress.EventScanStarted,
		Root:       root,
		FilesTotal: len(candidates),
	})

	tasks := make([]worker.Task, 0, len(candidates))
	for _, c := range candidates {
		tasks = append(tasks, worker.Task{Path: c.Path, Rel: c.Rel})
	}
	files, runErr := worker.RunAll(ctx, tasks, worker.RunOptions{
		Rules:        opts.Rules,
		MaxFileBytes: opts.MaxFileBytes,
		Workers:      opts.Workers,
		Sink:         opts.Sink,
		Logger:       opts.Logger,
	})
	for _, f := range files {
		if !f.Scanned() {
			continue
		}
		result.FilesScanned++
		result.Findings = append(result.Findings, f.Findings...)
	}
	Sort(result.Findings)

	finished := progress.Event{
		Type:         progress.EventScanFinished,
		Root:         root,
		FilesScanned: result.FilesScanned,
		FindingCount: len(result.Findings),
		DurationMS:   time.Since(started).Milliseconds(),
	}
	if runErr != nil {
		finished.Error = runErr.Error()
	}
	opts.Sink.Emit(finished)

	return result, runErr
}

func collect(ctx context.Context, root string, opts Options) ([]intake.Candidate, error) {
	var ignore *intake.IgnoreList
	if !opts.NoIgnoreFile {
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			list, loadErr := intake.LoadIgnoreFile(filepath.Join(root, intake.IgnoreFileName))
			if loadErr != nil {
				opts.Sink.Emit(progress.Event{
					Type:    progress.EventScanWarning,
					Message: "could not read " + intake.IgnoreFileName,
					Error:   loadErr.Error(),
				})
			}
			ignore = list
		}
	}

	walkOpts := intake.Options{
		Root:         root,
		Extensions:   checks.ScanExtensions(opts.Rules),
		IgnoreDirs:   intake.IgnoreDirSet(opts.ExtraIgnoreDirs),
		Ignore:       ignore,
		IncludeTests: opts.IncludeTests,
	}

	var (
		res intake.Result
		err error
	)
	if opts.Files != nil {
		res, err = intake.Resolve(walkOpts, opts.Files)
	} else {
		res, err = intake.Walk(ctx, walkOpts)
	}
	if err != nil {
		return nil, err
	}
	if res.Truncated {
		opts.Sink.Emit(progress.Event{
			Type:    progress.EventScanWarning,
			Message: fmt.Sprintf("file limit reached, scanning the first %d files", len(res.Files)),
		})
	}
	for reason, n := range res.Skipped {
		opts.Logger.Debugw("candidates skipped", "reason", reason, "count", n)
	}
	return res.Files, nil
}
