// Package ui provides a terminal UI for watching the activity event stream.
// Uses Bubbletea to show open build/run sessions and recent normalized
// errors as records arrive.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mlinna/devlog/internal/event"
)

// maxVisibleEvents bounds the scrollback kept in the model.
const maxVisibleEvents = 200

// Model holds the TUI state.
type Model struct {
	width    int
	height   int
	quitting bool

	events <-chan event.Record

	openBuild string
	openRun   string

	buildsSeen int
	runsSeen   int
	errorsSeen int

	recent []event.Record
	scroll int

	styles *Styles
}

// Styles holds the lipgloss styles for the watch view.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Session  lipgloss.Style
	Error    lipgloss.Style
	Warn     lipgloss.Style
	Success  lipgloss.Style
	HelpKey  lipgloss.Style
	HelpText lipgloss.Style
}

func newStyles() *Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#666", Dark: "#888"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	green := lipgloss.AdaptiveColor{Light: "#22863a", Dark: "#3fb950"}
	yellow := lipgloss.AdaptiveColor{Light: "#b08800", Dark: "#d29922"}
	red := lipgloss.AdaptiveColor{Light: "#cb2431", Dark: "#f85149"}
	blue := lipgloss.AdaptiveColor{Light: "#0366d6", Dark: "#58a6ff"}

	return &Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(highlight).MarginBottom(1),
		Label:    lipgloss.NewStyle().Foreground(subtle),
		Value:    lipgloss.NewStyle().Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(subtle),
		Session:  lipgloss.NewStyle().Foreground(blue).Bold(true),
		Error:    lipgloss.NewStyle().Foreground(red),
		Warn:     lipgloss.NewStyle().Foreground(yellow),
		Success:  lipgloss.NewStyle().Foreground(green),
		HelpKey:  lipgloss.NewStyle().Foreground(highlight).Bold(true),
		HelpText: lipgloss.NewStyle().Foreground(subtle),
	}
}

// eventMsg carries one record from the stream into the update loop.
type eventMsg event.Record

// streamClosedMsg signals the end of the event channel.
type streamClosedMsg struct{}

// New creates a watch model over a stream of records.
func New(events <-chan event.Record) *Model {
	return &Model{
		width:  80,
		height: 24,
		events: events,
		styles: newStyles(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), tea.EnterAltScreen)
}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		r, ok := <-m.events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(r)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.scroll < len(m.recent)-1 {
				m.scroll++
			}
		case "down", "j":
			if m.scroll > 0 {
				m.scroll--
			}
		case "end", "G":
			m.scroll = 0
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		m = m.apply(event.Record(msg))
		return m, m.waitForEvent()

	case streamClosedMsg:
		return m, nil
	}

	return m, nil
}

// apply folds one record into the session view.
func (m Model) apply(r event.Record) Model {
	switch r.Sequence {
	case event.SeqBuildStart:
		m.openBuild = r.BuildID
		m.buildsSeen++
	case event.SeqBuildEnd:
		m.openBuild = ""
	case event.SeqRunStart:
		m.openRun = r.RunID
		m.runsSeen++
	case event.SeqRunEnd:
		m.openRun = ""
	case event.SeqErrorNormalized:
		m.errorsSeen++
	}

	m.recent = append(m.recent, r)
	if len(m.recent) > maxVisibleEvents {
		m.recent = m.recent[len(m.recent)-maxVisibleEvents:]
	}
	return m
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("devlog watch"))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")
	b.WriteString(m.renderEvents())
	b.WriteString("\n")
	b.WriteString(m.styles.HelpKey.Render("q") + m.styles.HelpText.Render(" quit  ") +
		m.styles.HelpKey.Render("j/k") + m.styles.HelpText.Render(" scroll"))
	return b.String()
}

func (m Model) renderStatus() string {
	build := "none"
	if m.openBuild != "" {
		build = m.openBuild
	}
	run := "none"
	if m.openRun != "" {
		run = m.openRun
	}
	return fmt.Sprintf("%s %s   %s %s   %s %s",
		m.styles.Label.Render("build:"), m.styles.Session.Render(build),
		m.styles.Label.Render("run:"), m.styles.Session.Render(run),
		m.styles.Label.Render("errors:"), m.styles.Value.Render(fmt.Sprintf("%d", m.errorsSeen)))
}

func (m Model) renderEvents() string {
	visible := m.height - 7
	if visible < 1 {
		visible = 1
	}

	end := len(m.recent) - m.scroll
	if end < 0 {
		end = 0
	}
	start := end - visible
	if start < 0 {
		start = 0
	}

	var lines []string
	for _, r := range m.recent[start:end] {
		lines = append(lines, m.renderRecord(r))
	}
	if len(lines) == 0 {
		return m.styles.Muted.Render("waiting for events...")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRecord(r event.Record) string {
	ts := r.Time
	if t, err := time.Parse(event.TimeLayout, r.Time); err == nil {
		ts = t.Format("15:04:05")
	}

	prefix := m.styles.Muted.Render(ts) + " "
	switch r.Sequence {
	case event.SeqErrorNormalized:
		style := m.styles.Error
		if r.Severity == event.SeverityWarning {
			style = m.styles.Warn
		}
		loc := r.FilePath
		if loc == "" {
			loc = r.Filename
		}
		if loc != "" && r.Line > 0 {
			loc = fmt.Sprintf(" %s:%d", loc, r.Line)
		} else if loc != "" {
			loc = " " + loc
		}
		return prefix + style.Render(fmt.Sprintf("%-15s %s%s", r.Sequence, r.ErrorCategory, loc))

	case event.SeqBuildEnd:
		style := m.styles.Error
		if r.Success != nil && *r.Success {
			style = m.styles.Success
		}
		return prefix + style.Render(fmt.Sprintf("%-15s %s", r.Sequence, r.Message))

	default:
		id := r.BuildID
		if id == "" {
			id = r.RunID
		}
		return prefix + fmt.Sprintf("%-15s %s", r.Sequence, m.styles.Muted.Render(id))
	}
}

// Run starts the watch program and blocks until quit or stream end.
func Run(events <-chan event.Record) error {
	_, err := tea.NewProgram(New(events)).Run()
	return err
}
