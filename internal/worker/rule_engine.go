package worker

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/checks"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/redact"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/sanitize"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/suppress"
)

// maxLookbackLines bounds the lookback guard regardless of rule settings.
const maxLookbackLines = 200

type commentStyle int

const (
	commentsSlash commentStyle = iota // "//" and "/* */"
	commentsHash                      // "#"
)

var hashCommentExts = map[string]struct{}{
	".py":   {},
	".sh":   {},
	".bash": {},
	".rb":   {},
	".yaml": {},
	".yml":  {},
	".toml": {},
}

func commentStyleFor(path string) commentStyle {
	if _, ok := hashCommentExts[strings.ToLower(filepath.Ext(path))]; ok {
		return commentsHash
	}
	return commentsSlash
}

// candidate is a finding plus the last line its match covered, which
// supersession needs.
type candidate struct {
	finding    model.Finding
	lastLine   int
	supersedes []string
}

// MatchFile runs rules over the content of one file. relPath is recorded on
// every finding as-is. Rules that do not apply to relPath's extension are
// ignored. Findings come back in line order; callers sort globally.
func MatchFile(relPath string, content string, rules []checks.Rule) []model.Finding {
	applicable := make([]checks.Rule, 0, len(rules))
	for _, r := range rules {
		if r.AppliesTo(relPath) {
			applicable = append(applicable, r)
		}
	}
	if len(applicable) == 0 {
		return nil
	}

	lines := splitLines(content)
	code := codeMask(lines, commentStyleFor(relPath))
	directives := suppress.NewIndex(lines)

	candidates := make([]candidate, 0, 8)
	for i := range lines {
		if !code[i] {
			continue
		}
		for _, rule := range applicable {
			if directives.Suppressed(i, rule.ID) {
				continue
			}
			if c, ok := matchLine(rule, relPath, lines, code, i); ok {
				candidates = append(candidates, c)
			}
		}
	}

	candidates = dropSuperseded(candidates)
	if len(candidates) == 0 {
		return nil
	}
	findings := make([]model.Finding, 0, len(candidates))
	for _, c := range candidates {
		findings = append(findings, c.finding)
	}
	return findings
}

// matchLine evaluates one rule at line i. The first pattern whose match
// starts on line i wins.
func matchLine(rule checks.Rule, relPath string, lines []string, code []bool, i int) (candidate, bool) {
	haystack := lines[i]
	var window []string
	if rule.Multiline {
		window = windowLines(lines, code, i, rule.WindowSize)
		haystack = strings.Join(window, "\n")
	}
	firstLineLen := utf8.RuneCountInString(lines[i])

	for _, p := range rule.Patterns {
		start, end, ok := p.Find(haystack)
		if !ok {
			continue
		}
		if rule.Multiline && start >= firstLineLen {
			continue
		}
		if rule.HasLookback() && lookbackHit(rule, lines, i) {
			return candidate{}, false
		}

		f := model.Finding{
			RuleID:   rule.ID,
			Severity: rule.Severity,
			Title:    rule.Title,
			Help:     rule.Help,
			File:     relPath,
			Line:     i + 1,
			Column:   start + 1,
			Excerpt:  sanitize.Excerpt(redact.Text(lines[i])),
		}
		if rule.Multiline {
			f.Context = sanitize.Flatten(redact.Lines(window))
		}
		return candidate{
			finding:    f,
			lastLine:   i + 1 + newlinesIn(haystack, start, end),
			supersedes: rule.Supersedes,
		}, true
	}
	return candidate{}, false
}

// windowLines returns up to size lines starting at i, with comment and blank
// lines blanked so they cannot contribute to a match.
func windowLines(lines []string, code []bool, i int, size int) []string {
	if size < 1 {
		size = 1
	}
	end := min(len(lines), i+size)
	out := make([]string, 0, end-i)
	for j := i; j < end; j++ {
		if code[j] {
			out = append(out, lines[j])
		} else {
			out = append(out, "")
		}
	}
	return out
}

func lookbackHit(rule checks.Rule, lines []string, i int) bool {
	n := min(rule.LookbackLines, maxLookbackLines)
	from := max(0, i-n)
	if from >= i {
		return false
	}
	text := strings.Join(lines[from:i], "\n")
	for _, p := range rule.LookbackPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// dropSuperseded removes candidates of a rule that another matched rule
// supersedes, when they sit on a line within the superseding match.
func dropSuperseded(candidates []candidate) []candidate {
	type span struct{ first, last int }
	covered := make(map[string][]span)
	for _, c := range candidates {
		for _, id := range c.supersedes {
			covered[id] = append(covered[id], span{c.finding.Line, c.lastLine})
		}
	}
	if len(covered) == 0 {
		return candidates
	}

	out := candidates[:0]
	for _, c := range candidates {
		dropped := false
		for _, s := range covered[c.finding.RuleID] {
			if c.finding.Line >= s.first && c.finding.Line <= s.last {
				dropped = true
				break
			}
		}
		if !dropped {
			out = append(out, c)
		}
	}
	return out
}

// codeMask reports per line whether it holds code worth matching. Blank
// lines, whole-line comments and lines inside a block comment are false.
func codeMask(lines []string, style commentStyle) []bool {
	mask := make([]bool, len(lines))
	inBlock := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if inBlock {
			if strings.Contains(trimmed, "*/") {
				inBlock = false
			}
			continue
		}
		if trimmed == "" {
			continue
		}
		switch style {
		case commentsHash:
			if strings.HasPrefix(trimmed, "#") {
				continue
			}
		default:
			hasCode, open := scanSlashLine(trimmed)
			inBlock = open
			if !hasCode {
				continue
			}
		}
		mask[i] = true
	}
	return mask
}

// scanSlashLine walks one line outside any block comment. It reports whether
// anything other than comments remains and whether the line ends inside an
// unterminated block comment. Quoted strings are skipped, so "**/*.js" opens
// nothing.
func scanSlashLine(line string) (hasCode, openBlock bool) {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '\'' || c == '`':
			quote = c
			hasCode = true
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return hasCode, false
		case c == '/' && i+1 < len(line) && line[i+1] == '*':
			end := strings.Index(line[i+2:], "*/")
			if end < 0 {
				return hasCode, true
			}
			i += 2 + end + 1
		case c == ' ' || c == '\t':
		default:
			hasCode = true
		}
	}
	return hasCode, false
}

func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// newlinesIn counts line breaks between the character offsets start and end.
func newlinesIn(s string, start, end int) int {
	n, idx := 0, 0
	for _, r := range s {
		if idx >= end {
			break
		}
		if idx >= start && r == '\n' {
			n++
		}
		idx++
	}
	return n
}
