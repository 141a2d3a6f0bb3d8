package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
)

type jsonReport struct {
	Root         string          `json:"root"`
	FilesScanned int             `json:"filesScanned"`
	Summary      Summary         `json:"summary"`
	Findings     []model.Finding `json:"findings"`
}

func WriteJSON(w io.Writer, result model.ScanResult) error {
	findings := result.Findings
	if findings == nil {
		findings = []model.Finding{}
	}
	b, err := json.MarshalIndent(jsonReport{
		Root:         result.Root,
		FilesScanned: result.FilesScanned,
		Summary:      Summarize(findings),
		Findings:     findings,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scan result: %w", err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
