package tui

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/progress"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/sanitize"
)

const maxRecentLines = 12

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

type eventMsg struct {
	event progress.Event
	ok    bool
}

type tickMsg time.Time

type uiModel struct {
	events <-chan progress.Event
	// cancel stops the scan when the user quits early.
	cancel func()

	root       string
	status     string
	runError   string
	startedAt  time.Time
	finishedAt time.Time

	filesTotal int
	scanned    int
	findings   int
	skips      map[string]int
	warnings   int

	showDetails bool
	done        bool
	plain       bool

	recent []string
	tick   int
}

func newModel(events <-chan progress.Event) uiModel {
	return uiModel{
		events:      events,
		status:      "running",
		skips:       make(map[string]int),
		showDetails: true,
		plain:       noColorEnabled(),
		recent:      make([]string, 0, maxRecentLines),
	}
}

func noColorEnabled() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func waitForEvent(ch <-chan progress.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return eventMsg{event: ev, ok: ok}
	}
}

func nextTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), nextTick())
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "d":
			m.showDetails = !m.showDetails
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil
	case eventMsg:
		if !msg.ok {
			m.done = true
			return m, tea.Quit
		}
		m.applyEvent(msg.event)
		if m.done {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, nextTick()
	default:
		return m, nil
	}
}

func (m uiModel) render(s lipgloss.Style, text string) string {
	if m.plain {
		return text
	}
	return s.Render(text)
}

func (m uiModel) View() string {
	var b strings.Builder

	b.WriteString(m.render(titleStyle, "mcp-safety-scanner"))
	b.WriteString("\n")
	if !m.done {
		b.WriteString(fmt.Sprintf("Active: %s\n", m.render(runningStyle, m.runningFrame())))
	}
	b.WriteString(fmt.Sprintf("Root: %s\n", valueOrDash(m.root)))
	b.WriteString(fmt.Sprintf("Status: %s\n", m.render(styleStatus(m.status), strings.ToUpper(m.status))))
	b.WriteString(fmt.Sprintf("Files: %s\n", m.progressLine()))
	b.WriteString(fmt.Sprintf("Findings: %d\n", m.findings))
	b.WriteString(fmt.Sprintf("Elapsed: %s\n", m.elapsedString()))

	if len(m.skips) > 0 {
		b.WriteString("\n")
		b.WriteString(m.render(headerStyle, fmt.Sprintf("%-14s %s", "Skipped", "Files")))
		b.WriteString("\n")
		for _, reason := range sortedKeys(m.skips) {
			b.WriteString(m.render(warnStyle, fmt.Sprintf("%-14s %d", reason, m.skips[reason])))
			b.WriteString("\n")
		}
	}

	if m.showDetails {
		b.WriteString("\n")
		b.WriteString(m.render(headerStyle, "Recent Events"))
		b.WriteString("\n")
		if len(m.recent) == 0 {
			b.WriteString(m.render(idleStyle, "No events yet."))
			b.WriteString("\n")
		}
		for _, line := range m.recent {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.render(helpStyle, "d toggle details, q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *uiModel) applyEvent(e progress.Event) {
	switch e.Type {
	case progress.EventScanStarted:
		m.root = e.Root
		m.filesTotal = e.FilesTotal
		m.status = "running"
		if !e.At.IsZero() {
			m.startedAt = e.At
		}
		m.appendLine(e, fmt.Sprintf("scan started files=%d", e.FilesTotal))
	case progress.EventScanWarning:
		m.warnings++
		m.appendLine(e, "warning: "+firstNonEmpty(e.Message, e.Error))
	case progress.EventFileScanned:
		m.scanned++
		m.findings += e.FindingCount
		if e.FindingCount > 0 {
			m.appendLine(e, fmt.Sprintf("%s findings=%d", e.File, e.FindingCount))
		}
	case progress.EventFileSkipped:
		m.skips[firstNonEmpty(e.Reason, "unknown")]++
		m.appendLine(e, fmt.Sprintf("%s skipped (%s)", e.File, firstNonEmpty(e.Reason, "unknown")))
	case progress.EventScanFinished:
		m.runError = strings.TrimSpace(e.Error)
		m.findings = e.FindingCount
		m.scanned = e.FilesScanned
		switch {
		case m.runError != "":
			m.status = "failed"
		case m.warnings > 0:
			m.status = "warning"
		default:
			m.status = "success"
		}
		if !e.At.IsZero() {
			m.finishedAt = e.At
		}
		m.done = true
		msg := fmt.Sprintf("scan finished files=%d findings=%d", e.FilesScanned, e.FindingCount)
		if m.runError != "" {
			msg += " error=" + m.runError
		}
		m.appendLine(e, msg)
	}
}

func (m uiModel) progressLine() string {
	done := m.scanned
	for _, n := range m.skips {
		done += n
	}
	if m.filesTotal <= 0 {
		return fmt.Sprintf("%d scanned", m.scanned)
	}
	pct := done * 100 / m.filesTotal
	return fmt.Sprintf("%d/%d (%d%%) scanned=%d", done, m.filesTotal, pct, m.scanned)
}

func (m uiModel) elapsedString() string {
	if m.startedAt.IsZero() {
		return "0s"
	}
	end := time.Now().UTC()
	if !m.finishedAt.IsZero() {
		end = m.finishedAt
	}
	return end.Sub(m.startedAt).Round(time.Second).String()
}

func (m *uiModel) appendLine(e progress.Event, text string) {
	ts := e.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	m.recent = append(m.recent, fmt.Sprintf("[%s] %s", ts.Format("15:04:05"), sanitize.Inline(text)))
	if len(m.recent) > maxRecentLines {
		m.recent = m.recent[len(m.recent)-maxRecentLines:]
	}
}

func (m uiModel) runningFrame() string {
	frames := []string{"-", "\\", "|", "/"}
	return frames[m.tick%len(frames)]
}

func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func valueOrDash(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return "-"
	}
	return v
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "success":
		return okStyle
	case "warning":
		return warnStyle
	case "failed":
		return errorStyle
	case "running":
		return runningStyle
	default:
		return idleStyle
	}
}
