// Package git lists the files a change touches so a scan can be limited to
// them.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/farcloser/primordium/fault"
)

func output(ctx context.Context, dir string, args ...string) (string, error) {
	full := append([]string{"-C", dir}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%w: git %s: %s", fault.ErrCommandFailure, strings.Join(args, " "), msg)
	}
	return string(out), nil
}

// RepoRoot returns the top-level directory of the repository containing
// path.
func RepoRoot(ctx context.Context, path string) (string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return "", fmt.Errorf("%w: git executable not found", fault.ErrMissingRequirements)
	}
	out, err := output(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return filepath.Clean(strings.TrimSpace(out)), nil
}

// ChangedFiles returns absolute paths of files that differ between ref and
// the working tree (HEAD when ref is empty). Deleted files are left out.
func ChangedFiles(ctx context.Context, repoRoot, ref string) ([]string, error) {
	if ref == "" {
		ref = "HEAD"
	}
	out, err := output(ctx, repoRoot, "diff", "--name-only", "--diff-filter=d", ref, "--")
	if err != nil {
		return nil, err
	}
	return absLines(repoRoot, out), nil
}

// StagedFiles returns absolute paths of files staged in the index, the set a
// pre-commit hook cares about.
func StagedFiles(ctx context.Context, repoRoot string) ([]string, error) {
	out, err := output(ctx, repoRoot, "diff", "--cached", "--name-only", "--diff-filter=d")
	if err != nil {
		return nil, err
	}
	return absLines(repoRoot, out), nil
}

func absLines(root, s string) []string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, filepath.Join(root, filepath.FromSlash(line)))
		}
	}
	return out
}
