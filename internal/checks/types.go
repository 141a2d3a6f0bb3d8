package checks

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
)

const patternMatchTimeout = 2 * time.Second

// Pattern is a compiled detector expression. The engine supports lookahead
// and lookbehind, which several rules rely on.
type Pattern struct {
	source string
	re     *regexp2.Regexp
}

func mustPattern(expr string) Pattern {
	re := regexp2.MustCompile(expr, regexp2.None)
	re.MatchTimeout = patternMatchTimeout
	return Pattern{source: expr, re: re}
}

// CompilePattern compiles a user-supplied expression.
func CompilePattern(expr string) (Pattern, error) {
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return Pattern{}, err
	}
	re.MatchTimeout = patternMatchTimeout
	return Pattern{source: expr, re: re}, nil
}

func (p Pattern) String() string {
	return p.source
}

// Find returns the character offsets [start, end) of the first match in s.
// A match that exceeds the timeout counts as no match.
func (p Pattern) Find(s string) (start, end int, ok bool) {
	if p.re == nil {
		return 0, 0, false
	}
	m, err := p.re.FindStringMatch(s)
	if err != nil || m == nil {
		return 0, 0, false
	}
	return m.Index, m.Index + m.Length, true
}

func (p Pattern) MatchString(s string) bool {
	_, _, ok := p.Find(s)
	return ok
}

// Rule is one immutable detector in the catalog.
type Rule struct {
	ID          string
	Severity    model.Severity
	Title       string
	Description string
	Help        string

	// Extensions restricts the rule to these lower-case extensions. Empty
	// means every file.
	Extensions []string
	Patterns   []Pattern

	Multiline  bool
	WindowSize int

	LookbackPatterns []Pattern
	LookbackLines    int

	// Supersedes names rules whose findings are dropped on lines covered by
	// a match of this rule.
	Supersedes []string
}

// AppliesTo reports whether the rule should run against path.
func (r Rule) AppliesTo(path string) bool {
	if len(r.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range r.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// HasLookback reports whether the rule carries a usable lookback exclusion.
func (r Rule) HasLookback() bool {
	return len(r.LookbackPatterns) > 0 && r.LookbackLines > 0
}

// ScanExtensions returns the union of extensions the rules apply to, in first
// seen order. It returns nil when any rule is unrestricted.
func ScanExtensions(rules []Rule) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 16)
	for _, r := range rules {
		if len(r.Extensions) == 0 {
			return nil
		}
		for _, ext := range r.Extensions {
			if _, ok := seen[ext]; ok {
				continue
			}
			seen[ext] = struct{}{}
			out = append(out, ext)
		}
	}
	return out
}
