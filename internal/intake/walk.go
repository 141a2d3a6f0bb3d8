package intake

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultMaxFiles = 50_000

// Skip reasons reported in Result.Skipped.
const (
	SkipIgnoreDir   = "ignore_dir"
	SkipIgnoreFile  = "ignore_file"
	SkipTest        = "test_file"
	SkipExtension   = "extension"
	SkipSymlink     = "symlink"
	SkipNotRegular  = "not_regular"
	SkipOutsideRoot = "outside_root"
	SkipMissing     = "missing"
	SkipUnreadable  = "unreadable"
)

var defaultIgnoreDirs = map[string]struct{}{
	".git": {}, "node_modules": {}, "dist": {}, "build": {}, "out": {},
	"coverage": {}, ".next": {}, ".turbo": {}, ".cache": {},
}

// DefaultIgnoreDirs lists the directory names skipped by every walk.
func DefaultIgnoreDirs() []string {
	out := make([]string, 0, len(defaultIgnoreDirs))
	for name := range defaultIgnoreDirs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IgnoreDirSet merges the defaults with extra names into a new set. Extras
// may be comma separated.
func IgnoreDirSet(extra []string) map[string]struct{} {
	set := make(map[string]struct{}, len(defaultIgnoreDirs)+len(extra))
	for name := range defaultIgnoreDirs {
		set[name] = struct{}{}
	}
	for _, raw := range extra {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				set[name] = struct{}{}
			}
		}
	}
	return set
}

// Candidate is a file selected for scanning.
type Candidate struct {
	Path string // absolute
	Rel  string // slash separated, relative to the root when inside it
}

type Options struct {
	Root string
	// Extensions limits candidates to these lower-case extensions. Nil
	// accepts every extension.
	Extensions   []string
	IgnoreDirs   map[string]struct{}
	Ignore       *IgnoreList
	IncludeTests bool
	MaxFiles     int
}

type Result struct {
	Files     []Candidate
	Skipped   map[string]int
	Truncated bool
}

func (o Options) normalized() (Options, error) {
	if strings.TrimSpace(o.Root) == "" {
		return o, errors.New("scan root is required")
	}
	abs, err := filepath.Abs(o.Root)
	if err != nil {
		return o, fmt.Errorf("resolve scan root: %w", err)
	}
	o.Root = abs
	if o.IgnoreDirs == nil {
		o.IgnoreDirs = IgnoreDirSet(nil)
	}
	if o.MaxFiles <= 0 {
		o.MaxFiles = DefaultMaxFiles
	}
	return o, nil
}

// Walk collects candidate files under opts.Root in lexical order. The root
// may also be a single file. Unreadable subdirectories are skipped; only a
// missing root is an error.
func Walk(ctx context.Context, opts Options) (Result, error) {
	opts, err := opts.normalized()
	if err != nil {
		return Result{}, err
	}
	res := Result{Skipped: map[string]int{}}

	info, err := os.Stat(opts.Root)
	if err != nil {
		return Result{}, fmt.Errorf("stat scan root: %w", err)
	}
	if !info.IsDir() {
		if reason, ok := opts.accept(opts.Root, filepath.Base(opts.Root)); ok {
			res.Files = append(res.Files, Candidate{Path: opts.Root, Rel: filepath.Base(opts.Root)})
		} else {
			res.Skipped[reason]++
		}
		return res, nil
	}

	walkErr := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == opts.Root {
				return err
			}
			res.Skipped[SkipUnreadable]++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == opts.Root {
			return nil
		}

		rel := RelPath(opts.Root, path)
		if d.Type()&fs.ModeSymlink != 0 {
			res.Skipped[SkipSymlink]++
			return nil
		}
		if d.IsDir() {
			if reason, skip := opts.skipDir(d.Name(), rel); skip {
				res.Skipped[reason]++
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			res.Skipped[SkipNotRegular]++
			return nil
		}
		if reason, ok := opts.accept(path, rel); !ok {
			res.Skipped[reason]++
			return nil
		}
		if len(res.Files) >= opts.MaxFiles {
			res.Truncated = true
			return filepath.SkipAll
		}
		res.Files = append(res.Files, Candidate{Path: path, Rel: rel})
		return nil
	})
	if walkErr != nil {
		return res, fmt.Errorf("walk %s: %w", opts.Root, walkErr)
	}
	return res, nil
}

// Resolve turns an explicit file list into candidates. Relative entries are
// joined to the root and dropped when they escape it; absolute entries are
// taken as given. Duplicates collapse to the first occurrence.
func Resolve(opts Options, files []string) (Result, error) {
	opts, err := opts.normalized()
	if err != nil {
		return Result{}, err
	}
	res := Result{Skipped: map[string]int{}}
	seen := make(map[string]struct{}, len(files))

	for _, raw := range files {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		var abs string
		if filepath.IsAbs(raw) {
			abs = filepath.Clean(raw)
		} else {
			abs = filepath.Join(opts.Root, filepath.FromSlash(raw))
			if !WithinRoot(opts.Root, abs) {
				res.Skipped[SkipOutsideRoot]++
				continue
			}
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}

		info, err := os.Stat(abs)
		if err != nil {
			res.Skipped[SkipMissing]++
			continue
		}
		if !info.Mode().IsRegular() {
			res.Skipped[SkipNotRegular]++
			continue
		}

		rel := RelPath(opts.Root, abs)
		if WithinRoot(opts.Root, abs) {
			if reason, skip := opts.skipAncestors(rel); skip {
				res.Skipped[reason]++
				continue
			}
		}
		if reason, ok := opts.accept(abs, rel); !ok {
			res.Skipped[reason]++
			continue
		}
		if len(res.Files) >= opts.MaxFiles {
			res.Truncated = true
			break
		}
		res.Files = append(res.Files, Candidate{Path: abs, Rel: rel})
	}
	return res, nil
}

func (o Options) skipDir(name, rel string) (string, bool) {
	if _, ok := o.IgnoreDirs[name]; ok {
		return SkipIgnoreDir, true
	}
	if o.Ignore.Match(rel, true) {
		return SkipIgnoreFile, true
	}
	if !o.IncludeTests {
		if _, ok := testDirNames[strings.ToLower(name)]; ok {
			return SkipTest, true
		}
	}
	return "", false
}

func (o Options) skipAncestors(rel string) (string, bool) {
	parts := strings.Split(rel, "/")
	for i := 0; i < len(parts)-1; i++ {
		if _, ok := o.IgnoreDirs[parts[i]]; ok {
			return SkipIgnoreDir, true
		}
	}
	return "", false
}

// accept applies the per-file filters shared by Walk and Resolve.
func (o Options) accept(path, rel string) (string, bool) {
	if len(o.Extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		found := false
		for _, allowed := range o.Extensions {
			if ext == allowed {
				found = true
				break
			}
		}
		if !found {
			return SkipExtension, false
		}
	}
	if o.Ignore.MatchFile(rel) {
		return SkipIgnoreFile, false
	}
	if !o.IncludeTests && IsTestPath(rel) {
		return SkipTest, false
	}
	return "", true
}

// RelPath returns path relative to root in slash form, or the absolute slash
// path when it lies outside root.
func RelPath(root, path string) string {
	if WithinRoot(root, path) {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != "." {
			return filepath.ToSlash(rel)
		}
		return filepath.ToSlash(filepath.Base(path))
	}
	return filepath.ToSlash(path)
}

// WithinRoot reports whether path is root or lies below it.
func WithinRoot(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}
