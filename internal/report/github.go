package report

import (
	"fmt"
	"strings"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
)

var (
	messageEscaper  = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	propertyEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
)

func workflowCommand(sev model.Severity) string {
	switch {
	case sev.AtLeast(model.SeverityHigh):
		return "error"
	case sev.AtLeast(model.SeverityMedium):
		return "warning"
	default:
		return "notice"
	}
}

// RenderGitHub emits one GitHub Actions workflow command per finding so the
// findings show up as annotations on the changed files.
func RenderGitHub(result model.ScanResult) string {
	var b strings.Builder
	for _, f := range result.Findings {
		props := make([]string, 0, 3)
		if f.File != "" {
			props = append(props, "file="+propertyEscaper.Replace(f.File))
		}
		if f.Line > 0 {
			props = append(props, fmt.Sprintf("line=%d", f.Line))
		}
		if f.Column > 0 {
			props = append(props, fmt.Sprintf("col=%d", f.Column))
		}

		msg := f.RuleID + " " + f.Title
		if f.Excerpt != "" {
			msg += ": " + f.Excerpt
		}

		b.WriteString("::")
		b.WriteString(workflowCommand(f.Severity))
		if len(props) > 0 {
			b.WriteString(" ")
			b.WriteString(strings.Join(props, ","))
		}
		b.WriteString("::")
		b.WriteString(messageEscaper.Replace(msg))
		b.WriteString("\n")
	}
	return b.String()
}
