package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/farcloser/primordium/fault"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/checks"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/progress"
)

const (
	DefaultMaxFileBytes = 1_000_000
	readChunkSize       = 64 * 1024
)

var (
	errBinary   = errors.New("binary content")
	errTooLarge = errors.New("file exceeds size cap")
)

// Task is one file to scan: Path is what gets opened, Rel what findings
// report.
type Task struct {
	Path string
	Rel  string
}

type RunOptions struct {
	Rules        []checks.Rule
	MaxFileBytes int64
	Workers      int
	Sink         progress.Sink
	Logger       *zap.SugaredLogger
}

// FileResult is the outcome for one task. Skip is empty when the file was
// read and matched.
type FileResult struct {
	Rel      string
	Findings []model.Finding
	Skip     string
}

func (r FileResult) Scanned() bool {
	return r.Rel != "" && r.Skip == ""
}

// RunAll scans tasks on a bounded pool. Each task owns one result slot, so
// the returned slice lines up with tasks. Per-file failures never abort the
// run; once ctx is done, pending tasks are marked canceled and ctx.Err() is
// returned with whatever finished.
func RunAll(ctx context.Context, tasks []Task, opts RunOptions) ([]FileResult, error) {
	if opts.Sink == nil {
		opts.Sink = progress.NoopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = DefaultMaxFileBytes
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	results := make([]FileResult, len(tasks))
	var g errgroup.Group
	g.SetLimit(opts.Workers)

	for idx, task := range tasks {
		if ctx.Err() != nil {
			results[idx] = FileResult{Rel: task.Rel, Skip: progress.SkipCanceled}
			continue
		}
		g.Go(func() error {
			results[idx] = runOne(ctx, task, opts)
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}

func runOne(ctx context.Context, task Task, opts RunOptions) FileResult {
	res := FileResult{Rel: task.Rel}
	started := time.Now()

	content, err := readSource(ctx, task.Path, opts.MaxFileBytes)
	if err != nil {
		switch {
		case errors.Is(err, errTooLarge):
			res.Skip = progress.SkipTooLarge
		case errors.Is(err, errBinary):
			res.Skip = progress.SkipBinary
		case ctx.Err() != nil:
			res.Skip = progress.SkipCanceled
		default:
			res.Skip = progress.SkipReadError
		}
		opts.Logger.Debugw("skip file", "file", task.Rel, "reason", res.Skip, "error", err)
		opts.Sink.Emit(progress.Event{
			Type:   progress.EventFileSkipped,
			File:   task.Rel,
			Reason: res.Skip,
			Error:  errorText(err, res.Skip),
		})
		return res
	}

	res.Findings = MatchFile(task.Rel, content, opts.Rules)
	opts.Sink.Emit(progress.Event{
		Type:         progress.EventFileScanned,
		File:         task.Rel,
		FindingCount: len(res.Findings),
		DurationMS:   time.Since(started).Milliseconds(),
	})
	return res
}

// readSource stats and reads path in chunks, checking ctx between chunks and
// stopping at the first NUL byte.
func readSource(ctx context.Context, path string, maxBytes int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", fault.ErrReadFailure, path)
	}
	if info.Size() > maxBytes {
		return "", fmt.Errorf("%w: %d > %d bytes", errTooLarge, info.Size(), maxBytes)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}
	defer f.Close()

	buf := make([]byte, 0, info.Size())
	chunk := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, readErr := f.Read(chunk)
		if n > 0 {
			if bytes.IndexByte(chunk[:n], 0) >= 0 {
				return "", errBinary
			}
			buf = append(buf, chunk[:n]...)
			if int64(len(buf)) > maxBytes {
				return "", fmt.Errorf("%w: grew past %d bytes while reading", errTooLarge, maxBytes)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("%w: %w", fault.ErrReadFailure, readErr)
		}
	}
	return string(buf), nil
}

func errorText(err error, reason string) string {
	if reason == progress.SkipReadError {
		return err.Error()
	}
	return ""
}
