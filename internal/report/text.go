package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/sanitize"
)

var severityColors = map[model.Severity]lipgloss.Color{
	model.SeverityCritical: lipgloss.Color("196"),
	model.SeverityHigh:     lipgloss.Color("208"),
	model.SeverityMedium:   lipgloss.Color("220"),
	model.SeverityLow:      lipgloss.Color("75"),
	model.SeverityInfo:     lipgloss.Color("244"),
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// RenderText formats a result as a human-readable report. File names and
// source snippets are stripped of control characters first.
func RenderText(result model.ScanResult, opts Options) string {
	style := func(s lipgloss.Style, text string) string {
		if !opts.Color {
			return text
		}
		return s.Render(text)
	}

	counts := model.SeverityCounts(result.Findings)
	var b strings.Builder
	b.WriteString(style(headerStyle, fmt.Sprintf("mcp-safety-scanner: %s (scanned %s)",
		plural(len(result.Findings), "finding"), plural(result.FilesScanned, "file"))))
	b.WriteString("\n")
	fmt.Fprintf(&b, "severity counts: critical=%d, high=%d, medium=%d, low=%d, info=%d\n",
		counts[model.SeverityCritical], counts[model.SeverityHigh], counts[model.SeverityMedium],
		counts[model.SeverityLow], counts[model.SeverityInfo])
	if opts.Suppressed > 0 {
		b.WriteString(style(dimStyle, fmt.Sprintf("baseline: %s hidden", plural(opts.Suppressed, "known finding"))))
		b.WriteString("\n")
	}

	for _, f := range result.Findings {
		tag := fmt.Sprintf("[%s]", f.Severity)
		if opts.Color {
			tag = lipgloss.NewStyle().Foreground(severityColors[f.Severity]).Bold(true).Render(tag)
		}
		fmt.Fprintf(&b, "%s %s %s\n", tag, f.RuleID, f.Title)
		fmt.Fprintf(&b, "  %s:%d:%d\n", sanitize.Inline(f.File), f.Line, f.Column)

		snippet := f.Context
		if snippet == "" {
			snippet = f.Excerpt
		}
		if snippet = sanitize.Inline(snippet); snippet != "" {
			fmt.Fprintf(&b, "  %s\n", style(dimStyle, snippet))
		}
		if help := strings.TrimSpace(f.Help); help != "" {
			fmt.Fprintf(&b, "  help: %s\n", help)
		}
	}
	return b.String()
}
