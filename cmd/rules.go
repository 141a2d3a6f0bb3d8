package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/checks"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
)

type ruleInfo struct {
	ID          string         `json:"id"`
	Severity    model.Severity `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Help        string         `json:"help,omitempty"`
	Extensions  []string       `json:"extensions,omitempty"`
	Multiline   bool           `json:"multiline,omitempty"`
}

func newRulesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List built-in rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules := checks.Builtins()
			out := cmd.OutOrStdout()
			if asJSON {
				infos := make([]ruleInfo, 0, len(rules))
				for _, r := range rules {
					infos = append(infos, ruleInfo{
						ID:          r.ID,
						Severity:    r.Severity,
						Title:       r.Title,
						Description: r.Description,
						Help:        r.Help,
						Extensions:  r.Extensions,
						Multiline:   r.Multiline,
					})
				}
				b, err := json.MarshalIndent(infos, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal rules: %w", err)
				}
				fmt.Fprintln(out, string(b))
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSEVERITY\tFILES\tTITLE")
			for _, r := range rules {
				exts := "*"
				if len(r.Extensions) > 0 {
					exts = strings.Join(r.Extensions, ",")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Severity, exts, r.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")
	return cmd
}
