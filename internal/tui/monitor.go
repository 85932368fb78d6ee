// Package tui provides a Bubble Tea dashboard showing the live
// countdown of every tracked workspace.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/worklog/internal/session"
)

// refreshInterval drives countdown redraws.
const refreshInterval = 250 * time.Millisecond

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	rootStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Source is the registry surface the monitor needs.
type Source interface {
	Snapshots() []session.Snapshot
	Restart()
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the root Bubble Tea model for the monitor dashboard.
type Model struct {
	source Source
	rows   []session.Snapshot
	bars   map[string]progress.Model
	width  int
}

// New creates a monitor model backed by src.
func New(src Source) Model {
	return Model{
		source: src,
		rows:   src.Snapshots(),
		bars:   make(map[string]progress.Model),
	}
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "d", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.source.Restart()
			m.rows = m.source.Snapshots()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		m.rows = m.source.Snapshots()
		return m, tick()
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("worklog monitor"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("no workspaces tracked"))
		b.WriteString("\n")
	}

	for _, row := range m.rows {
		b.WriteString(rootStyle.Render(row.Root))
		b.WriteString("\n")

		bar := m.bar(row.Root)
		frac := 0.0
		if row.Duration > 0 {
			frac = float64(row.Remaining) / float64(row.Duration)
		}
		b.WriteString("  " + bar.ViewAs(frac))
		b.WriteString(fmt.Sprintf("  %s %s\n",
			labelStyle.Render("remaining:"),
			row.Remaining.Round(time.Second)))

		status := fmt.Sprintf("  %s %d  %s %d",
			labelStyle.Render("fires:"), row.Fires,
			labelStyle.Render("commits:"), row.Commits)
		if row.CommitInFlight {
			status += "  " + dimStyle.Render("committing…")
		}
		b.WriteString(status + "\n")

		if row.LastErr != "" {
			b.WriteString("  " + errStyle.Render(row.LastErr) + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(hintStyle.Render("r restart · d disable and quit · q quit"))
	b.WriteString("\n")
	return b.String()
}

// bar returns the progress bar for a workspace row, creating it lazily
// so restarts with new roots pick up bars of the right width.
func (m Model) bar(root string) progress.Model {
	if bar, ok := m.bars[root]; ok {
		return bar
	}
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	if m.width > 20 {
		bar.Width = m.width - 20
	}
	m.bars[root] = bar
	return bar
}

// Run renders the monitor until the user quits.
func Run(src Source) error {
	p := tea.NewProgram(New(src))
	_, err := p.Run()
	return err
}
