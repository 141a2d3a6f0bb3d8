package intake

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreFileName is read from the scan root when present.
const IgnoreFileName = ".mcp-safety-scanignore"

// IgnoreList holds gitignore-style patterns. A nil list ignores nothing.
type IgnoreList struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	negated bool
	dirOnly bool
	regex   *regexp.Regexp
}

// LoadIgnoreFile parses path. A missing file yields a nil list and no error.
func LoadIgnoreFile(path string) (*IgnoreList, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ParseIgnore(lines), nil
}

// ParseIgnore compiles pattern lines. Blank lines and "#" comments are
// skipped, as are patterns that fail to compile.
func ParseIgnore(lines []string) *IgnoreList {
	list := &IgnoreList{}
	for _, raw := range lines {
		if p, ok := compileIgnoreLine(raw); ok {
			list.patterns = append(list.patterns, p)
		}
	}
	return list
}

func compileIgnoreLine(raw string) (ignorePattern, bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return ignorePattern{}, false
	}

	var p ignorePattern
	if rest, ok := strings.CutPrefix(line, "!"); ok {
		p.negated = true
		line = rest
	}
	if rest, ok := strings.CutSuffix(line, "/"); ok {
		p.dirOnly = true
		line = rest
	}
	anchored := false
	if rest, ok := strings.CutPrefix(line, "/"); ok {
		anchored = true
		line = rest
	}
	if line == "" {
		return ignorePattern{}, false
	}

	re, err := regexp.Compile(globToRegex(line, anchored || strings.Contains(line, "/")))
	if err != nil {
		return ignorePattern{}, false
	}
	p.regex = re
	return p, true
}

// Match reports whether relPath itself is excluded; the last matching
// pattern wins.
func (l *IgnoreList) Match(relPath string, isDir bool) bool {
	if l == nil || len(l.patterns) == 0 {
		return false
	}
	relPath = filepath.ToSlash(strings.TrimSpace(relPath))
	if relPath == "" {
		return false
	}

	ignored := false
	for _, p := range l.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		if p.regex.MatchString(relPath) {
			ignored = !p.negated
		}
	}
	return ignored
}

// MatchFile reports whether a file is excluded either directly or through
// one of its parent directories.
func (l *IgnoreList) MatchFile(relPath string) bool {
	if l == nil || len(l.patterns) == 0 {
		return false
	}
	relPath = filepath.ToSlash(relPath)
	parts := strings.Split(relPath, "/")
	for i := 1; i < len(parts); i++ {
		if l.Match(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return l.Match(relPath, false)
}

// globToRegex converts a glob to an anchored regex. Unanchored globs match
// the basename at any depth.
func globToRegex(glob string, anchored bool) string {
	var b strings.Builder
	b.WriteString("^")
	if !anchored {
		b.WriteString("(?:.*/)?")
	}

	r := []rune(glob)
	for i := 0; i < len(r); i++ {
		switch r[i] {
		case '*':
			switch {
			case i+2 < len(r) && r[i+1] == '*' && r[i+2] == '/':
				b.WriteString("(?:.*/)?")
				i += 2
			case i+1 < len(r) && r[i+1] == '*':
				b.WriteString(".*")
				i++
			default:
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(r[i])))
		}
	}
	b.WriteString("$")
	return b.String()
}
