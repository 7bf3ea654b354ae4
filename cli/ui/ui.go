// Package ui provides the interactive terminal components of the
// bugline CLI, built on bubbletea.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bugline/bugline/cli/styles"
)

// SpinnerDoneMsg ends a spinner program. Result is printed as a success
// line, Err as an error line.
type SpinnerDoneMsg struct {
	Result string
	Err    error
}

// SpinnerModel renders a spinner with a message until a SpinnerDoneMsg
// arrives.
type SpinnerModel struct {
	spinner  spinner.Model
	message  string
	done     bool
	quitting bool
	result   string
	err      error
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(message string) SpinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)
	return SpinnerModel{spinner: s, message: message}
}

func (m SpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case SpinnerDoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

func (m SpinnerModel) View() string {
	if m.quitting {
		return styles.FormatWarning("cancelled") + "\n"
	}
	if m.done {
		if m.err != nil {
			return styles.FormatError(m.err.Error()) + "\n"
		}
		return styles.FormatSuccess(m.result) + "\n"
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), styles.Normal.Render(m.message))
}

// Err returns the error carried by the final SpinnerDoneMsg, if any.
func (m SpinnerModel) Err() error { return m.err }

// Banner renders the bugline header with a version tag.
func Banner(version string) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render(styles.IconBug + " bugline"))
	b.WriteString("\n")
	b.WriteString(styles.Muted.Render("collaborative bug tracking, v" + version))
	b.WriteString("\n")
	return b.String()
}

// Checklist renders a list of labelled pass/fail checks.
func Checklist(items []CheckItem) string {
	var b strings.Builder
	for _, it := range items {
		switch {
		case it.Err != nil:
			b.WriteString(styles.FormatError(fmt.Sprintf("%s: %v", it.Label, it.Err)))
		case it.Detail != "":
			b.WriteString(styles.FormatSuccess(fmt.Sprintf("%s (%s)", it.Label, it.Detail)))
		default:
			b.WriteString(styles.FormatSuccess(it.Label))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// CheckItem is one line of a Checklist.
type CheckItem struct {
	Label  string
	Detail string
	Err    error
}
