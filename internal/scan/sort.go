package scan

import (
	"sort"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
)

// Sort orders findings by severity (most severe first), then file, line,
// column and rule id, so the order never depends on scheduling.
func Sort(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if ra, rb := a.Severity.Rank(), b.Severity.Rank(); ra != rb {
			return ra > rb
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.RuleID < b.RuleID
	})
}
