package suppress

import (
	"path"
	"regexp"
	"strings"
)

// Marker is the keyword that introduces an inline directive, e.g.
//
//	// mcp-safety-scan ignore-next-line dangerous-eval -- fixture only
const Marker = "mcp-safety-scan"

type Mode string

const (
	ModeIgnore         Mode = "ignore"
	ModeIgnoreNextLine Mode = "ignore-next-line"
)

// Directive is one parsed inline suppression. An empty RuleIDs set covers
// every rule.
type Directive struct {
	Mode    Mode
	RuleIDs []string
	Reason  string
}

var directiveRe = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(Marker) + `\s+(ignore-next-line|ignore)\b(.*)$`)

// commentClosers are stripped from the tail so "*/" never turns into a "*" id.
var commentClosers = []string{"*/", "-->", "#}", "%>"}

// ParseDirective extracts a directive from a single line of source text.
func ParseDirective(line string) (Directive, bool) {
	if !strings.Contains(strings.ToLower(line), Marker) {
		return Directive{}, false
	}
	m := directiveRe.FindStringSubmatch(line)
	if m == nil {
		return Directive{}, false
	}

	d := Directive{Mode: Mode(strings.ToLower(m[1]))}
	rest := strings.TrimSpace(m[2])
	for _, closer := range commentClosers {
		if idx := strings.Index(rest, closer); idx >= 0 {
			rest = rest[:idx]
		}
	}

	fields := strings.Fields(rest)
	for i, field := range fields {
		// "--" ends the id list and starts a free-form reason.
		if field == "--" {
			d.Reason = strings.Join(fields[i+1:], " ")
			break
		}
		for _, token := range strings.Split(field, ",") {
			if id := sanitizeID(token); id != "" {
				d.RuleIDs = append(d.RuleIDs, id)
			}
		}
	}
	return d, true
}

// Covers reports whether the directive applies to ruleID.
func (d Directive) Covers(ruleID string) bool {
	if len(d.RuleIDs) == 0 {
		return true
	}
	ruleID = strings.ToLower(ruleID)
	for _, id := range d.RuleIDs {
		switch {
		case id == "*" || id == "all" || id == ruleID:
			return true
		case strings.Contains(id, "*"):
			if ok, _ := path.Match(id, ruleID); ok {
				return true
			}
		}
	}
	return false
}

func sanitizeID(raw string) string {
	var b strings.Builder
	for _, ch := range strings.ToLower(raw) {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		case ch == '_' || ch == '*' || ch == '.' || ch == '-':
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// Index holds the directives of one file, keyed by 0-based line index.
type Index struct {
	byLine map[int]Directive
}

// NewIndex parses every line once. A file without directives yields an
// empty index whose lookups are free.
func NewIndex(lines []string) Index {
	idx := Index{}
	for i, line := range lines {
		d, ok := ParseDirective(line)
		if !ok {
			continue
		}
		if idx.byLine == nil {
			idx.byLine = make(map[int]Directive)
		}
		idx.byLine[i] = d
	}
	return idx
}

// Len returns the number of directives found.
func (x Index) Len() int {
	return len(x.byLine)
}

// Suppressed reports whether ruleID is silenced on the 0-based line i, either
// by an "ignore" directive on that line or an "ignore-next-line" directive on
// the line before. Directives never reach further than that.
func (x Index) Suppressed(i int, ruleID string) bool {
	if len(x.byLine) == 0 {
		return false
	}
	if d, ok := x.byLine[i]; ok && d.Mode == ModeIgnore && d.Covers(ruleID) {
		return true
	}
	if d, ok := x.byLine[i-1]; ok && d.Mode == ModeIgnoreNextLine && d.Covers(ruleID) {
		return true
	}
	return false
}
