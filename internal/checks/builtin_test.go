package checks

import (
	"strings"
	"testing"
)

func TestBuiltins_UniqueIDsAndCompleteMetadata(t *testing.T) {
	seen := map[string]struct{}{}
	for _, r := range Builtins() {
		if _, dup := seen[r.ID]; dup {
			t.Fatalf("duplicate rule id %q", r.ID)
		}
		seen[r.ID] = struct{}{}

		if r.ID != strings.ToLower(r.ID) || strings.ContainsAny(r.ID, " _") {
			t.Errorf("rule id %q should be a lower-case slug", r.ID)
		}
		if !r.Severity.Valid() {
			t.Errorf("rule %s has invalid severity %q", r.ID, r.Severity)
		}
		if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Description) == "" || strings.TrimSpace(r.Help) == "" {
			t.Errorf("rule %s is missing title/description/help", r.ID)
		}
		if len(r.Patterns) == 0 {
			t.Errorf("rule %s has no patterns", r.ID)
		}
		if r.Multiline && r.WindowSize < 2 {
			t.Errorf("multiline rule %s needs a window of at least 2 lines", r.ID)
		}
		for _, ext := range r.Extensions {
			if !strings.HasPrefix(ext, ".") || ext != strings.ToLower(ext) {
				t.Errorf("rule %s has malformed extension %q", r.ID, ext)
			}
		}
	}
}

func TestBuiltins_SupersedesReferencesKnownRules(t *testing.T) {
	for _, r := range Builtins() {
		for _, id := range r.Supersedes {
			if _, ok := Lookup(id); !ok {
				t.Errorf("rule %s supersedes unknown rule %q", r.ID, id)
			}
		}
	}
}

func TestBuiltins_ReturnsCopy(t *testing.T) {
	a := Builtins()
	a[0] = Rule{ID: "mutated"}
	if Builtins()[0].ID == "mutated" {
		t.Fatal("expected Builtins to return an independent slice")
	}
}

func TestRule_AppliesTo(t *testing.T) {
	r := Rule{Extensions: []string{".js", ".go"}}
	if !r.AppliesTo("src/Server.JS") {
		t.Fatal("expected extension match to be case-insensitive")
	}
	if r.AppliesTo("main.py") {
		t.Fatal("expected .py to be excluded")
	}
	if !(Rule{}).AppliesTo("anything.txt") {
		t.Fatal("expected unrestricted rule to apply everywhere")
	}
}

func TestPatterns_DetectReferenceConstructs(t *testing.T) {
	tests := []struct {
		rule  string
		input string
		want  bool
	}{
		{"dangerous-eval", `const out = eval(userInput);`, true},
		{"dangerous-eval", `return await redis_client.eval(script, 1, key)`, false},
		{"dangerous-eval", `value = ast.literal_eval(raw)`, false},
		{"dangerous-eval", `const fn = new Function("a", body);`, true},
		{"child-process-exec", `import { exec } from "node:child_process";`, true},
		{"child-process-exec", `const m = re.exec(str);`, false},
		{"child-process-exec", `const { execSync } = require("child_process");`, true},
		{"cors-wildcard-origin", `res.setHeader("Access-Control-Allow-Origin", "*");`, true},
		{"cors-wildcard-origin", `app.add_middleware(CORSMiddleware, allow_origins=["*"])`, true},
		{"cors-reflect-origin", `w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))`, true},
		{"cors-reflect-origin", `res.setHeader("Access-Control-Allow-Origin", req.headers.origin);`, true},
		{"cors-credentials-any-origin", `app.use(cors({ origin: "*", credentials: true }))`, true},
		{"cors-credentials-any-origin", `app.use(cors({ credentials: true, origin: '*' }))`, true},
		{"cors-credentials-any-origin", `app.use(cors({ origin: "*" }))`, false},
		{"child-process-shell-true", `spawn("echo", ["hello"], { shell: true });`, true},
		{"child-process-shell-true", `subprocess.run(["ls", str(p)], shell=True)`, true},
		{"child-process-shell-true", `spawn("echo", ["hello"]);`, false},
		{"go-exec-shell", `cmd := exec.Command("sh", "-c", script)`, true},
		{"go-exec-shell", `cmd := exec.CommandContext(ctx, "/bin/bash", "-c", script)`, true},
		{"go-exec-shell", `cmd := exec.Command("git", "status")`, false},
		{"bind-all-interfaces", `server.listen(3000, "0.0.0.0");`, true},
		{"bind-all-interfaces", `log.Fatal(http.ListenAndServe(":8080", nil))`, true},
		{"bind-all-interfaces", `http.ListenAndServe("127.0.0.1:8080", nil)`, false},
		{"go-readall-request-body", `body, _ := io.ReadAll(r.Body)`, true},
		{"request-body-no-limit", `const data = await request.json();`, true},
		{"express-json-no-limit", `app.use(express.json());`, true},
		{"express-json-no-limit", `app.use(express.json({ limit: "100kb" }));`, false},
	}
	for _, tc := range tests {
		t.Run(tc.rule+"/"+tc.input, func(t *testing.T) {
			r, ok := Lookup(tc.rule)
			if !ok {
				t.Fatalf("rule %s not found", tc.rule)
			}
			got := false
			for _, p := range r.Patterns {
				if p.MatchString(tc.input) {
					got = true
					break
				}
			}
			if got != tc.want {
				t.Fatalf("rule %s on %q = %v, want %v", tc.rule, tc.input, got, tc.want)
			}
		})
	}
}

func TestPattern_FindReturnsCharacterOffsets(t *testing.T) {
	p := mustPattern(`eval\(`)
	start, end, ok := p.Find("é = eval(x)")
	if !ok {
		t.Fatal("expected match")
	}
	if start != 4 || end != 9 {
		t.Fatalf("expected [4,9), got [%d,%d)", start, end)
	}
}

func TestCompilePattern_RejectsInvalid(t *testing.T) {
	if _, err := CompilePattern(`(unclosed`); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestScanExtensions(t *testing.T) {
	got := ScanExtensions([]Rule{
		{Extensions: []string{".js", ".go"}},
		{Extensions: []string{".go", ".py"}},
	})
	if strings.Join(got, ",") != ".js,.go,.py" {
		t.Fatalf("unexpected union: %v", got)
	}
	if ScanExtensions([]Rule{{Extensions: []string{".js"}}, {}}) != nil {
		t.Fatal("expected nil when a rule is unrestricted")
	}
}
