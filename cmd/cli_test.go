package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/checks"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
)

// isolate points config lookup at empty directories.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
	cwd := t.TempDir()
	t.Chdir(cwd)
	return cwd
}

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

type jsonOutput struct {
	Root         string `json:"root"`
	FilesScanned int    `json:"filesScanned"`
	Summary      struct {
		Total int `json:"total"`
	} `json:"summary"`
	Findings []model.Finding `json:"findings"`
}

func decodeJSON(t *testing.T, raw string) jsonOutput {
	t.Helper()
	var out jsonOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode json output: %v\n%s", err, raw)
	}
	return out
}

func TestScan_UsageErrors(t *testing.T) {
	isolate(t)
	root := writeRepo(t, map[string]string{"a.js": "const a = 1;\n"})
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad format", []string{root, "--format=xml"}, "Invalid --format. Use: text, json, sarif, or github."},
		{"bad fail-on", []string{root, "--fail-on=severe"}, "Invalid --fail-on. Use one of: critical, high, medium, low, info, none."},
		{"baseline and write-baseline", []string{root, "--baseline=a.json", "--write-baseline=b.json"}, "Invalid usage: do not combine --baseline with --write-baseline."},
		{"unknown rule", []string{root, "--only-rule=nope"}, "unknown rule id(s): nope"},
		{"unknown flag", []string{root, "--frobnicate"}, "unknown flag: --frobnicate"},
		{"missing files-from", []string{root, "--files-from", filepath.Join(root, "missing.txt")}, "Failed to read --files-from:"},
		{"missing root", []string{filepath.Join(root, "nope")}, "Failed to scan:"},
		{"bad max bytes", []string{root, "--max-file-bytes=0"}, "Invalid --max-file-bytes"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, "", tc.args...)
			if code != exitUsage {
				t.Fatalf("exit code = %d, want %d (stderr %q)", code, exitUsage, stderr)
			}
			if !strings.Contains(stderr, tc.want) {
				t.Fatalf("stderr %q does not contain %q", stderr, tc.want)
			}
		})
	}
}

func TestScan_CleanRepoText(t *testing.T) {
	isolate(t)
	root := writeRepo(t, map[string]string{"a.js": "const a = 1;\n"})
	code, stdout, stderr := runCLI(t, "", root)
	if code != exitOK {
		t.Fatalf("exit code = %d (stderr %q)", code, stderr)
	}
	if !strings.HasPrefix(stdout, "mcp-safety-scanner: 0 findings (scanned 1 file)\n") {
		t.Fatalf("unexpected output %q", stdout)
	}
}

func TestScan_FailOnThreshold(t *testing.T) {
	isolate(t)
	critical := writeRepo(t, map[string]string{"a.js": "const v = eval(input);\n"})
	medium := writeRepo(t, map[string]string{"server.js": "app.use(express.json());\n"})

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"critical fails default", []string{critical}, exitFindings},
		{"none never fails", []string{critical, "--fail-on=none"}, exitOK},
		{"medium below default", []string{medium}, exitOK},
		{"medium at medium", []string{medium, "--fail-on", "medium"}, exitFindings},
		{"skipped rule", []string{critical, "--skip-rule", "dangerous-eval"}, exitOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, "", tc.args...)
			if code != tc.want {
				t.Fatalf("exit code = %d, want %d\nstdout %s\nstderr %s", code, tc.want, stdout, stderr)
			}
		})
	}
}

func TestScan_JSONOutput(t *testing.T) {
	isolate(t)
	root := writeRepo(t, map[string]string{
		"a.js":      "const v = eval(input);\n",
		"server.js": "app.use(express.json());\n",
	})
	code, stdout, _ := runCLI(t, "", root, "--format", "json")
	if code != exitFindings {
		t.Fatalf("exit code = %d", code)
	}
	out := decodeJSON(t, stdout)
	if out.FilesScanned != 2 || out.Summary.Total != 2 || len(out.Findings) != 2 {
		t.Fatalf("unexpected result %+v", out)
	}
	if out.Findings[0].RuleID != "dangerous-eval" || out.Findings[1].RuleID != "express-json-no-limit" {
		t.Fatalf("unexpected order %+v", out.Findings)
	}
}

func TestScan_BaselineRoundTrip(t *testing.T) {
	isolate(t)
	root := writeRepo(t, map[string]string{"a.js": "const v = eval(input);\n"})
	baselinePath := filepath.Join(t.TempDir(), "nested", "baseline.json")

	code, _, stderr := runCLI(t, "", root, "--write-baseline", baselinePath)
	if code != exitOK {
		t.Fatalf("write-baseline should skip fail-on, got %d (stderr %q)", code, stderr)
	}
	if !strings.Contains(stderr, "1 fingerprint(s)") {
		t.Fatalf("expected baseline summary on stderr, got %q", stderr)
	}

	code, stdout, _ := runCLI(t, "", root, "--baseline", baselinePath, "--format=json")
	if code != exitOK {
		t.Fatalf("known findings should not fail, got %d", code)
	}
	if out := decodeJSON(t, stdout); len(out.Findings) != 0 {
		t.Fatalf("expected baselined findings hidden, got %+v", out.Findings)
	}

	_, stdout, _ = runCLI(t, "", root, "--baseline", baselinePath)
	if !strings.Contains(stdout, "baseline: 1 known finding hidden") {
		t.Fatalf("expected baseline note in text output, got %q", stdout)
	}

	if err := os.WriteFile(filepath.Join(root, "b.js"), []byte("eval(other);\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, stdout, _ = runCLI(t, "", root, "--baseline", baselinePath, "--format=json")
	out := decodeJSON(t, stdout)
	if code != exitFindings || len(out.Findings) != 1 || out.Findings[0].File != "b.js" {
		t.Fatalf("expected only the new finding, got code=%d %+v", code, out.Findings)
	}
}

func TestScan_InterruptedScanKeepsBaseline(t *testing.T) {
	isolate(t)
	root := writeRepo(t, map[string]string{"a.js": "const v = eval(input);\n"})
	baselinePath := filepath.Join(t.TempDir(), "baseline.json")
	if code, _, stderr := runCLI(t, "", root, "--write-baseline", baselinePath); code != exitOK {
		t.Fatalf("write-baseline: code=%d stderr=%q", code, stderr)
	}
	before, err := os.ReadFile(baselinePath)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{root, "--write-baseline", baselinePath}, strings.NewReader(""), &stdout, &stderr)
	if code != exitUsage || !strings.Contains(stderr.String(), "Baseline not written: scan interrupted") {
		t.Fatalf("code=%d stderr=%q", code, stderr.String())
	}
	if strings.Contains(stderr.String(), "Wrote baseline") {
		t.Fatalf("baseline must not be rewritten, stderr=%q", stderr.String())
	}

	after, err := os.ReadFile(baselinePath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("baseline changed after interrupted scan:\nbefore %s\nafter %s", before, after)
	}
}

func TestScan_BadBaseline(t *testing.T) {
	isolate(t)
	root := writeRepo(t, map[string]string{"a.js": "const a = 1;\n", "baseline.json": `{"fingerprints": 3}`})
	code, _, stderr := runCLI(t, "", root, "--baseline", filepath.Join(root, "baseline.json"))
	if code != exitUsage || !strings.Contains(stderr, "Failed to load baseline:") {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
}

func TestScan_FileLists(t *testing.T) {
	isolate(t)
	root := writeRepo(t, map[string]string{
		"a.js": "eval(a);\n",
		"b.js": "eval(b);\n",
		"c.js": "eval(c);\n",
	})

	t.Run("files-from stdin", func(t *testing.T) {
		_, stdout, _ := runCLI(t, "# changed\n\nb.js\n", root, "--files-from", "-", "--format=json")
		out := decodeJSON(t, stdout)
		if out.FilesScanned != 1 || len(out.Findings) != 1 || out.Findings[0].File != "b.js" {
			t.Fatalf("unexpected result %+v", out)
		}
	})
	t.Run("positional files", func(t *testing.T) {
		_, stdout, _ := runCLI(t, "", root, "a.js", "c.js", "--format=json")
		out := decodeJSON(t, stdout)
		if out.FilesScanned != 2 || len(out.Findings) != 2 {
			t.Fatalf("unexpected result %+v", out)
		}
		if out.Findings[0].File != "a.js" || out.Findings[1].File != "c.js" {
			t.Fatalf("unexpected files %+v", out.Findings)
		}
	})
}

func TestScan_LocalConfig(t *testing.T) {
	cwd := isolate(t)
	root := writeRepo(t, map[string]string{"a.js": "eval(a);\n"})
	cfg := "format: json\nfail_on: none\n"
	if err := os.WriteFile(filepath.Join(cwd, ".mcp-safety-scan.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runCLI(t, "", root)
	if code != exitOK {
		t.Fatalf("config fail_on none should pass, got %d (stderr %q)", code, stderr)
	}
	if out := decodeJSON(t, stdout); len(out.Findings) != 1 {
		t.Fatalf("unexpected result %+v", out)
	}

	code, stdout, _ = runCLI(t, "", root, "--format=github", "--fail-on=high")
	if code != exitFindings || !strings.HasPrefix(stdout, "::error file=a.js,line=1,col=1::dangerous-eval") {
		t.Fatalf("explicit flags should win over config, got code=%d %q", code, stdout)
	}
}

func TestScan_SARIF(t *testing.T) {
	isolate(t)
	root := writeRepo(t, map[string]string{"a.js": "eval(a);\n"})
	_, stdout, _ := runCLI(t, "", root, "--format=sarif", "--only-rule=dangerous-eval")
	var doc struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID string `json:"ruleId"`
			} `json:"results"`
		} `json:"runs"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("decode sarif: %v", err)
	}
	if doc.Version != "2.1.0" || len(doc.Runs) != 1 || len(doc.Runs[0].Results) != 1 {
		t.Fatalf("unexpected sarif %s", stdout)
	}
	if rules := doc.Runs[0].Tool.Driver.Rules; len(rules) != 1 || rules[0].ID != "dangerous-eval" {
		t.Fatalf("expected only the selected rule in the driver, got %+v", rules)
	}
}

func TestRulesCommand(t *testing.T) {
	isolate(t)
	code, stdout, _ := runCLI(t, "", "rules")
	if code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	for _, r := range checks.Builtins() {
		if !strings.Contains(stdout, r.ID) {
			t.Errorf("rules output missing %s", r.ID)
		}
	}

	_, stdout, _ = runCLI(t, "", "rules", "--json")
	var infos []ruleInfo
	if err := json.Unmarshal([]byte(stdout), &infos); err != nil {
		t.Fatalf("decode rules json: %v", err)
	}
	if len(infos) != len(checks.Builtins()) {
		t.Fatalf("expected %d rules, got %d", len(checks.Builtins()), len(infos))
	}
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	code, stdout, _ := runCLI(t, "", "version")
	if code != exitOK || !strings.HasPrefix(stdout, "mcp-safety-scanner dev") {
		t.Fatalf("code=%d stdout=%q", code, stdout)
	}
}

func TestParseFailOn(t *testing.T) {
	tests := []struct {
		raw     string
		want    model.Severity
		wantErr bool
	}{
		{"", model.SeverityHigh, false},
		{"HIGH", model.SeverityHigh, false},
		{"info", model.SeverityInfo, false},
		{"none", "", false},
		{"fatal", "", true},
	}
	for _, tc := range tests {
		got, err := parseFailOn(tc.raw)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("parseFailOn(%q) = %q, %v", tc.raw, got, err)
		}
	}
}

func TestReadFileList(t *testing.T) {
	got, err := readFileList("-", strings.NewReader("a.js\r\n  # skip\n\n  src/b.ts  \n"))
	if err != nil {
		t.Fatalf("readFileList: %v", err)
	}
	if strings.Join(got, "|") != "a.js|src/b.ts" {
		t.Fatalf("unexpected list %v", got)
	}
}

func TestScan_ConflictingFileSources(t *testing.T) {
	isolate(t)
	root := writeRepo(t, map[string]string{"a.js": "eval(a);\n"})
	code, _, stderr := runCLI(t, "", root, "a.js", "--staged")
	if code != exitUsage || !strings.Contains(stderr, "choose one of --files-from, --changed, --staged") {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
}

func TestScan_ChangedFiles(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	isolate(t)
	root := writeRepo(t, map[string]string{
		"old.js": "eval(old);\n",
		"new.js": "const a = 1;\n",
	})
	git := func(args ...string) {
		t.Helper()
		c := exec.Command("git", append([]string{"-C", root, "-c", "user.name=test", "-c", "user.email=test@test.com", "-c", "commit.gpgsign=false"}, args...)...)
		if out, err := c.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	git("init", "-q")
	git("add", ".")
	git("commit", "-q", "-m", "initial")

	if err := os.WriteFile(filepath.Join(root, "new.js"), []byte("eval(fresh);\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runCLI(t, "", root, "--changed", "--format=json")
	if code != exitFindings {
		t.Fatalf("exit code = %d (stderr %q)", code, stderr)
	}
	out := decodeJSON(t, stdout)
	if out.FilesScanned != 1 || len(out.Findings) != 1 || out.Findings[0].File != "new.js" {
		t.Fatalf("expected only the modified file scanned, got %+v", out)
	}

	code, stdout, _ = runCLI(t, "", root, "--staged", "--format=json")
	if out := decodeJSON(t, stdout); code != exitOK || out.FilesScanned != 0 {
		t.Fatalf("nothing staged, got code=%d %+v", code, out)
	}
}
