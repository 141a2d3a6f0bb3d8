package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/baseline"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/checks"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/version"
)

const (
	sarifSchema    = "https://json.schemastore.org/sarif-2.1.0.json"
	sarifVersion   = "2.1.0"
	informationURI = "https://github.com/TheodorNEngoy/mcp-safety-scanner"
	ruleHelpURI    = informationURI + "/blob/main/docs/MCP_SECURITY_BASELINE.md"
	fingerprintKey = "mcp-safety-scan/v1"
	rootURIBaseID  = "ROOT"
	sarifToolName  = "mcp-safety-scanner"
)

// SARIF v2.1.0 subset accepted by GitHub code scanning.

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool               sarifTool                        `json:"tool"`
	OriginalURIBaseIDs map[string]sarifArtifactLocation `json:"originalUriBaseIds,omitempty"`
	Results            []sarifResult                    `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	InformationURI string      `json:"informationUri"`
	Version        string      `json:"version,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	Name             string             `json:"name,omitempty"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	FullDescription  sarifMessage       `json:"fullDescription"`
	Help             sarifMessage       `json:"help"`
	HelpURI          string             `json:"helpUri,omitempty"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
	Properties       sarifRuleProps     `json:"properties"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifRuleProps struct {
	Severity model.Severity `json:"severity"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	PartialFingerprints map[string]string `json:"partialFingerprints"`
	Locations           []sarifLocation   `json:"locations"`
	Properties          sarifResultProps  `json:"properties"`
}

type sarifResultProps struct {
	Severity        model.Severity `json:"severity"`
	Title           string         `json:"title"`
	RuleDescription string         `json:"ruleDescription,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
}

func WriteSARIF(w io.Writer, result model.ScanResult, rules []checks.Rule) error {
	b, err := json.MarshalIndent(buildSARIF(result, rules), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sarif report: %w", err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

func buildSARIF(result model.ScanResult, rules []checks.Rule) sarifLog {
	descriptions := make(map[string]string, len(rules))
	sarifRules := make([]sarifRule, 0, len(rules))
	for _, r := range rules {
		descriptions[r.ID] = r.Description
		sarifRules = append(sarifRules, sarifRule{
			ID:               r.ID,
			Name:             r.Title,
			ShortDescription: sarifMessage{Text: r.Title},
			FullDescription:  sarifMessage{Text: r.Description},
			Help:             sarifMessage{Text: r.Help},
			HelpURI:          ruleHelpURI,
			DefaultConfig:    sarifDefaultConfig{Level: mapSeverityToSARIF(r.Severity)},
			Properties:       sarifRuleProps{Severity: r.Severity},
		})
	}

	results := make([]sarifResult, 0, len(result.Findings))
	for _, f := range result.Findings {
		snippet := f.Context
		if snippet == "" {
			snippet = f.Excerpt
		}
		text := f.Title
		if snippet != "" {
			text += ": " + snippet
		}

		loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: f.File},
		}}
		if !filepath.IsAbs(filepath.FromSlash(f.File)) {
			loc.PhysicalLocation.ArtifactLocation.URIBaseID = rootURIBaseID
		}
		if f.Line > 0 {
			loc.PhysicalLocation.Region = &sarifRegion{StartLine: f.Line, StartColumn: f.Column}
		}

		results = append(results, sarifResult{
			RuleID:  f.RuleID,
			Level:   mapSeverityToSARIF(f.Severity),
			Message: sarifMessage{Text: text},
			PartialFingerprints: map[string]string{
				fingerprintKey: baseline.Fingerprint(f),
			},
			Locations: []sarifLocation{loc},
			Properties: sarifResultProps{
				Severity:        f.Severity,
				Title:           f.Title,
				RuleDescription: descriptions[f.RuleID],
			},
		})
	}

	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           sarifToolName,
			InformationURI: informationURI,
			Version:        version.Version,
			Rules:          sarifRules,
		}},
		Results: results,
	}
	if root := strings.TrimSpace(result.Root); root != "" {
		run.OriginalURIBaseIDs = map[string]sarifArtifactLocation{
			rootURIBaseID: {URI: rootURI(root)},
		}
	}

	return sarifLog{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs:    []sarifRun{run},
	}
}

// rootURI renders the scan root as a directory URI with a trailing slash.
func rootURI(root string) string {
	uri := filepath.ToSlash(root)
	if !strings.HasSuffix(uri, "/") {
		uri += "/"
	}
	if strings.HasPrefix(uri, "/") {
		return "file://" + uri
	}
	return uri
}

func mapSeverityToSARIF(sev model.Severity) string {
	switch {
	case sev.AtLeast(model.SeverityHigh):
		return "error"
	case sev.AtLeast(model.SeverityMedium):
		return "warning"
	default:
		return "note"
	}
}
