package checks

import "github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"

var jsExts = []string{".js", ".mjs", ".cjs", ".ts", ".tsx", ".jsx", ".mts", ".cts", ".gs"}

var (
	pyExts = []string{".py"}
	goExts = []string{".go"}
)

func exts(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func patterns(exprs ...string) []Pattern {
	out := make([]Pattern, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, mustPattern(expr))
	}
	return out
}

const defaultWindow = 8

var builtins = []Rule{
	{
		ID:       "cors-credentials-any-origin",
		Severity: model.SeverityCritical,
		Title:    "Credentialed CORS with wildcard origin",
		Description: "Combining a wildcard origin with credentials lets any website make authenticated " +
			"cross-site requests on behalf of a signed-in user.",
		Help:       "Replace the wildcard with an explicit origin allowlist, or drop credentials for public endpoints.",
		Extensions: exts(jsExts, pyExts, goExts),
		Patterns: patterns(
			`(?i)\bcors\s*\(\s*\{(?=[^}]*\bcredentials\s*:\s*true\b)[^}]*\borigin\s*:\s*["']\*["']`,
			`\badd_middleware\s*\(\s*CORSMiddleware\b(?=[^)]*\ballow_credentials\s*=\s*True\b)[^)]*\ballow_origins\s*=\s*\[\s*["']\*["']`,
			`\bcors\.Options\s*\{(?=[\s\S]*?\bAllowCredentials\s*:\s*true\b)[\s\S]*?\bAllowedOrigins\s*:\s*\[\]string\s*\{\s*"\*"`,
			`\bcors\.Config\s*\{(?=[\s\S]*?\bAllowCredentials\s*:\s*true\b)[\s\S]*?\bAllowAllOrigins\s*:\s*true\b`,
		),
		Multiline:  true,
		WindowSize: defaultWindow,
		Supersedes: []string{"cors-wildcard-origin"},
	},
	{
		ID:       "cors-wildcard-origin",
		Severity: model.SeverityHigh,
		Title:    "Wildcard CORS origin",
		Description: "Allowing any origin enables cross-site requests. For MCP/tool servers, prefer an allowlist " +
			"(e.g. chatgpt.com) and do not combine wildcard origin with credentials.",
		Help:       "Configure an explicit list of allowed origins instead of \"*\".",
		Extensions: exts(jsExts, pyExts, goExts),
		Patterns: patterns(
			`(?i)Access-Control-Allow-Origin[^\n]*["']\*["']`,
			`(?i)setHeader\(\s*["']Access-Control-Allow-Origin["']\s*,\s*["']\*["']\s*\)`,
			`(?i)\bcors\s*\(\s*\{[^}]*\borigin\s*:\s*["']\*["']`,
			`\ballow_origins\s*=\s*\[\s*["']\*["']`,
			`\bAllowedOrigins\s*:\s*\[\]string\s*\{\s*"\*"`,
			`\bAllowAllOrigins\s*:\s*true\b`,
		),
		Multiline:  true,
		WindowSize: defaultWindow,
	},
	{
		ID:       "cors-reflect-origin",
		Severity: model.SeverityHigh,
		Title:    "Reflected CORS origin",
		Description: "Reflecting the request Origin header without validation effectively allows any website " +
			"to call your server.",
		Help:       "Check the Origin header against an explicit allowlist before echoing it back.",
		Extensions: exts(jsExts, pyExts, goExts),
		Patterns: patterns(
			`(?i)Access-Control-Allow-Origin[^\n]*\b(?:req|request)\.headers\.origin`,
			`(?i)setHeader\(\s*["']Access-Control-Allow-Origin["'][^\n]*\b(?:req|request)\.headers\.origin`,
			`(?i)Access-Control-Allow-Origin[^\n]*\breq\.get\(\s*["']origin["']\s*\)`,
			`(?i)Access-Control-Allow-Origin["'][^\n]*\b(?:r|req|request)\.Header\.Get\(\s*"Origin"\s*\)`,
			`(?i)Access-Control-Allow-Origin[^\n]*\brequest\.headers(?:\.get\(\s*|\[\s*)["']origin["']`,
		),
	},
	{
		ID:       "cors-unconfigured-middleware",
		Severity: model.SeverityMedium,
		Title:    "cors() used without origin restrictions",
		Description: "Using `cors()` with default settings is often broader than intended. Configure `origin` " +
			"explicitly (allowlist) for servers that accept authenticated requests.",
		Help:       "Pass an options object with an explicit `origin` allowlist to cors().",
		Extensions: jsExts,
		Patterns: patterns(
			`\buse\s*\(\s*cors\s*\(\s*\)\s*\)`,
			`\bapp\.use\s*\(\s*cors\s*\(\s*\)\s*\)`,
		),
	},
	{
		ID:       "dangerous-eval",
		Severity: model.SeverityCritical,
		Title:    "Dynamic code execution (eval / new Function)",
		Description: "`eval()` / `new Function()` can turn untrusted input into code execution. Avoid entirely " +
			"in networked services.",
		Help:       "Parse data with a real parser (JSON.parse, ast.literal_eval) instead of evaluating it.",
		Extensions: exts(jsExts, pyExts),
		Patterns: patterns(
			`(?<![.\w$])eval\s*\(`,
			`\bnew\s+Function\s*\(`,
		),
	},
	{
		ID:       "child-process-exec",
		Severity: model.SeverityHigh,
		Title:    "Shell execution (child_process exec/execSync)",
		Description: "`exec()`/`execSync()` invokes a shell and is easy to misuse with untrusted input. Prefer " +
			"safe APIs or strict allowlists + argument arrays (`spawn`) when absolutely required.",
		Help:       "Use execFile/spawn with an argument array and no shell.",
		Extensions: jsExts,
		Patterns: patterns(
			`\bimport\s*\{[^}]*\bexecSync\b[^}]*\}\s*from\s*["'](?:node:)?child_process["']`,
			`\bimport\s*\{[^}]*\bexec\b[^}]*\}\s*from\s*["'](?:node:)?child_process["']`,
			`\brequire\s*\(\s*["'](?:node:)?child_process["']\s*\)\s*\.\s*execSync\s*\(`,
			`\brequire\s*\(\s*["'](?:node:)?child_process["']\s*\)\s*\.\s*exec\s*\(`,
			`\{\s*[^}]*\bexecSync\b[^}]*\}\s*=\s*require\s*\(\s*["'](?:node:)?child_process["']\s*\)`,
			`\{\s*[^}]*\bexec\b[^}]*\}\s*=\s*require\s*\(\s*["'](?:node:)?child_process["']\s*\)`,
			`\bchild_process\s*\.\s*execSync\s*\(`,
			`\bchild_process\s*\.\s*exec\s*\(`,
		),
	},
	{
		ID:       "child-process-shell-true",
		Severity: model.SeverityHigh,
		Title:    "Process spawned through a shell (shell: true)",
		Description: "Passing `shell: true` (or `shell=True`) routes the command through a shell, so any " +
			"untrusted argument becomes a command injection.",
		Help:       "Drop the shell option and pass arguments as an array.",
		Extensions: exts(jsExts, pyExts),
		Patterns: patterns(
			`\b(?:spawn|spawnSync|execFile|execFileSync|fork)\s*\((?=(?:[^()]|\([^()]*\))*\bshell\s*:\s*true\b)`,
			`\bsubprocess\.(?:run|call|Popen|check_output|check_call)\s*\((?=(?:[^()]|\([^()]*\))*\bshell\s*=\s*True\b)`,
		),
		Multiline:  true,
		WindowSize: defaultWindow,
	},
	{
		ID:          "go-exec-shell",
		Severity:    model.SeverityHigh,
		Title:       "Shell execution via exec.Command(\"sh\", \"-c\")",
		Description: "Running a command string through `sh -c` turns any interpolated input into shell syntax.",
		Help:        "Invoke the target binary directly with an argument slice.",
		Extensions:  goExts,
		Patterns: patterns(
			`\bexec\.Command(?:Context)?\(\s*(?:[\w.]+\s*,\s*)?"(?:/usr)?(?:/bin/)?(?:ba|z)?sh"\s*,\s*"-c"`,
		),
	},
	{
		ID:       "file-delete-apis",
		Severity: model.SeverityMedium,
		Title:    "File delete APIs used (rm/unlink)",
		Description: "Deletion APIs are fine in trusted code, but become dangerous when parameters can be " +
			"influenced by requests. Ensure strict path allowlists and never pass user input directly.",
		Help:       "Resolve the target path and confirm it stays inside an allowed directory before deleting.",
		Extensions: jsExts,
		Patterns: patterns(
			`\brmSync\s*\(`,
			`\bunlinkSync\s*\(`,
			`\brm\s*\(`,
			`\bunlink\s*\(`,
		),
	},
	{
		ID:       "log-request-headers",
		Severity: model.SeverityLow,
		Title:    "Request headers logged",
		Description: "Logging request headers can leak credentials (Authorization, cookies). Redact sensitive " +
			"headers before logging.",
		Help:       "Log an allowlisted subset of headers, or redact Authorization and Cookie.",
		Extensions: jsExts,
		Patterns: patterns(
			`\bconsole\.(?:log|info|debug)\s*\(\s*req\.headers\b`,
			`\bconsole\.(?:log|info|debug)\s*\(\s*request\.headers\b`,
		),
	},
	{
		ID:       "express-json-no-limit",
		Severity: model.SeverityMedium,
		Title:    "Express JSON parser without explicit size limit",
		Description: "`express.json()` defaults may be too large/surprising for tool endpoints. Set an explicit " +
			"`limit` to reduce DoS risk.",
		Help:       "Pass { limit: \"100kb\" } (or a size that fits the endpoint).",
		Extensions: jsExts,
		Patterns: patterns(
			`\bexpress\.json\s*\(\s*\)`,
			`\bbodyParser\.json\s*\(\s*\)`,
		),
	},
	{
		ID:       "request-body-no-limit",
		Severity: model.SeverityLow,
		Title:    "Request body read without a size check",
		Description: "Reading the whole request body with `request.json()`/`text()` buffers arbitrarily large " +
			"payloads in memory.",
		Help:             "Check Content-Length (or stream with a byte cap) before reading the body.",
		Extensions:       jsExts,
		Patterns:         patterns(`\b(?:req|request)\.(?:json|text|arrayBuffer|formData)\s*\(\s*\)`),
		LookbackPatterns: patterns(`(?i)content-length`, `\b(?:bodyLimit|maxBodySize|maxBodyBytes)\b`),
		LookbackLines:    20,
	},
	{
		ID:       "go-readall-request-body",
		Severity: model.SeverityMedium,
		Title:    "Request body read without http.MaxBytesReader",
		Description: "`io.ReadAll(r.Body)` on a server request reads an unbounded amount of attacker-controlled " +
			"data into memory.",
		Help:       "Wrap the body first: r.Body = http.MaxBytesReader(w, r.Body, limit).",
		Extensions: goExts,
		Patterns: patterns(
			`\bio(?:util)?\.ReadAll\(\s*(?:r|req|request)\.Body\s*\)`,
			`\bjson\.NewDecoder\(\s*(?:r|req|request)\.Body\s*\)`,
		),
		LookbackPatterns: patterns(`\bMaxBytesReader\s*\(`, `\bRoundTrip\s*\(`),
		LookbackLines:    40,
	},
	{
		ID:       "bind-all-interfaces",
		Severity: model.SeverityMedium,
		Title:    "Server bound to all network interfaces",
		Description: "Listening on 0.0.0.0 (or an empty host) exposes a local tool server to every network " +
			"the machine is attached to.",
		Help:       "Bind to 127.0.0.1 unless the service is meant to be reachable remotely.",
		Extensions: exts(jsExts, pyExts, goExts),
		Patterns: patterns(
			`\.listen\s*\([^)]*["']0\.0\.0\.0["']`,
			`\bhost(?:name)?\s*:\s*["']0\.0\.0\.0["']`,
			`\bhost\s*=\s*["']0\.0\.0\.0["']`,
			`\b(?:ListenAndServe(?:TLS)?|Listen)\(\s*(?:"tcp[46]?"\s*,\s*)?"(?:0\.0\.0\.0|\[::\])?:\d+"`,
			`\bAddr\s*:\s*"(?:0\.0\.0\.0)?:\d+"`,
		),
	},
}

// Builtins returns the catalog in declaration order. The slice is a copy; the
// rules themselves are shared and must not be modified.
func Builtins() []Rule {
	out := make([]Rule, len(builtins))
	copy(out, builtins)
	return out
}
