package tui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/progress"
)

type Options struct {
	Events <-chan progress.Event
	// Output defaults to stderr so reports on stdout stay clean.
	Output io.Writer
	// Cancel runs when the user quits with q or ctrl+c.
	Cancel func()
}

// Run draws live scan progress until the scan_finished event arrives or the
// channel closes.
func Run(opts Options) error {
	if opts.Events == nil {
		return fmt.Errorf("tui events channel is required")
	}
	progOpts := []tea.ProgramOption{}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	m := newModel(opts.Events)
	m.cancel = opts.Cancel
	p := tea.NewProgram(m, progOpts...)
	_, err := p.Run()
	return err
}
