// Package report renders scan results for terminals, machines and CI.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/checks"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
)

type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatSARIF  Format = "sarif"
	FormatGitHub Format = "github"
)

var formats = []Format{FormatText, FormatJSON, FormatSARIF, FormatGitHub}

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid format %q: use one of text, json, sarif, github", raw)
}

type Options struct {
	// Color enables ANSI styling in the text format.
	Color bool
	// Rules describes the catalog in SARIF output. Defaults to the
	// built-in rules.
	Rules []checks.Rule
	// Suppressed is the number of findings hidden by a baseline; shown in
	// the text summary when non-zero.
	Suppressed int
}

// Render writes result to w in the requested format.
func Render(w io.Writer, format Format, result model.ScanResult, opts Options) error {
	if result.Findings == nil {
		result.Findings = []model.Finding{}
	}
	switch format {
	case FormatText:
		_, err := io.WriteString(w, RenderText(result, opts))
		return err
	case FormatJSON:
		return WriteJSON(w, result)
	case FormatSARIF:
		rules := opts.Rules
		if rules == nil {
			rules = checks.Builtins()
		}
		return WriteSARIF(w, result, rules)
	case FormatGitHub:
		_, err := io.WriteString(w, RenderGitHub(result))
		return err
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// Summary is the per-severity tally included in JSON output.
type Summary struct {
	Total  int                    `json:"total"`
	Counts map[model.Severity]int `json:"counts"`
}

func Summarize(findings []model.Finding) Summary {
	return Summary{Total: len(findings), Counts: model.SeverityCounts(findings)}
}
