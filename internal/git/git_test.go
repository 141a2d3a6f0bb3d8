package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/farcloser/primordium/fault"
)

func initTestRepo(t *testing.T) (string, func(args ...string)) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test",
			"GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=test",
			"GIT_COMMITTER_EMAIL=test@test.com",
			"GIT_CONFIG_NOSYSTEM=1",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}
	run("init", "-q")
	run("config", "user.email", "test@test.com")
	run("config", "user.name", "test")
	run("config", "commit.gpgsign", "false")
	for _, name := range []string{"server.js", "tool.py", "gone.js"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("// v1\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	run("add", ".")
	run("commit", "-q", "-m", "initial")
	return dir, run
}

// canonical resolves symlinked temp dirs such as /private/var on macOS.
func canonical(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatalf("eval symlinks %s: %v", path, err)
	}
	return resolved
}

func TestRepoRoot(t *testing.T) {
	dir, _ := initTestRepo(t)
	sub := filepath.Join(dir, "pkg")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	root, err := RepoRoot(context.Background(), sub)
	if err != nil {
		t.Fatalf("RepoRoot: %v", err)
	}
	if canonical(t, root) != canonical(t, dir) {
		t.Errorf("RepoRoot = %q, want %q", root, dir)
	}
}

func TestRepoRootNotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CEILING_DIRECTORIES", os.TempDir())
	_, err := RepoRoot(context.Background(), t.TempDir())
	if !errors.Is(err, fault.ErrCommandFailure) {
		t.Fatalf("expected command failure, got %v", err)
	}
}

func TestChangedAndStagedFiles(t *testing.T) {
	dir, gitRun := initTestRepo(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "server.js"), []byte("eval(x)\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tool.py"), []byte("x = 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "gone.js")); err != nil {
		t.Fatal(err)
	}
	gitRun("add", "tool.py")

	changed, err := ChangedFiles(ctx, dir, "")
	if err != nil {
		t.Fatalf("ChangedFiles: %v", err)
	}
	want := []string{filepath.Join(dir, "server.js"), filepath.Join(dir, "tool.py")}
	if len(changed) != 2 || changed[0] != want[0] || changed[1] != want[1] {
		t.Fatalf("ChangedFiles = %v, want %v", changed, want)
	}

	staged, err := StagedFiles(ctx, dir)
	if err != nil {
		t.Fatalf("StagedFiles: %v", err)
	}
	if len(staged) != 1 || staged[0] != want[1] {
		t.Fatalf("StagedFiles = %v, want [%s]", staged, want[1])
	}
}

func TestChangedFilesBadRef(t *testing.T) {
	dir, _ := initTestRepo(t)
	if _, err := ChangedFiles(context.Background(), dir, "no-such-ref"); !errors.Is(err, fault.ErrCommandFailure) {
		t.Fatalf("expected command failure, got %v", err)
	}
}
