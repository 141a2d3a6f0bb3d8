// Package redact masks credentials that appear in reported source text, so
// excerpts, baselines and CI annotations never republish a secret.
package redact

import "regexp"

type rule struct {
	re   *regexp.Regexp
	repl string
}

var rules = []rule{
	{regexp.MustCompile(`-----BEGIN [A-Z0-9 ]*PRIVATE KEY-----(?:[\s\S]*?-----END [A-Z0-9 ]*PRIVATE KEY-----)?`), "[REDACTED PRIVATE KEY]"},
	{regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._~+/=-]{8,}`), "Bearer [REDACTED]"},
	{regexp.MustCompile(`(?i)\b(api[_-]?key|secret|token|password|passwd|pwd|client[_-]?secret)\b(\s*[:=]\s*)(["'` + "`" + `]?)([A-Za-z0-9._~+/=-]{8,})(["'` + "`" + `]?)`), `${1}${2}${3}[REDACTED]${5}`},
	{regexp.MustCompile(`\b(?:A3T|AKIA|ASIA|AGPA|AIDA|ANPA|ANVA|AROA|AIPA)[0-9A-Z]{16}\b`), "[REDACTED_AWS_ACCESS_KEY]"},
	{regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{20,}\b`), "[REDACTED_GITHUB_TOKEN]"},
	{regexp.MustCompile(`\bsk-(?:ant-|proj-)?[A-Za-z0-9_-]{20,}\b`), "[REDACTED_API_KEY]"},
	{regexp.MustCompile(`\bxox[abprs]-[A-Za-z0-9-]{10,}\b`), "[REDACTED_SLACK_TOKEN]"},
}

// Text masks common secret and token shapes in one piece of source text.
func Text(in string) string {
	out := in
	for _, r := range rules {
		out = r.re.ReplaceAllString(out, r.repl)
	}
	return out
}

// Lines applies Text to each line, returning a new slice.
func Lines(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, len(in))
	for i, line := range in {
		out[i] = Text(line)
	}
	return out
}
