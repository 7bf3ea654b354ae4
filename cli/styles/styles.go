// Package styles defines the color palette and reusable text styles of
// the bugline CLI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	Primary      = lipgloss.Color("#E0533D") // Bug red-orange
	PrimaryLight = lipgloss.Color("#F08A74")
	Secondary    = lipgloss.Color("#3DA9E0") // Sky blue

	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#F59E0B")
	Error   = lipgloss.Color("#EF4444")
	Info    = lipgloss.Color("#3B82F6")

	Text      = lipgloss.Color("#F9FAFB")
	TextMuted = lipgloss.Color("#9CA3AF")
	Border    = lipgloss.Color("#374151")
)

// Text styles.
var (
	Bold = lipgloss.NewStyle().Bold(true)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Normal = lipgloss.NewStyle().Foreground(Text)

	Muted = lipgloss.NewStyle().Foreground(TextMuted)

	Code = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	SuccessStyle = lipgloss.NewStyle().Foreground(Success).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Error).Bold(true)
	InfoStyle    = lipgloss.NewStyle().Foreground(Info)
)

// Icons.
const (
	IconBug     = "🐛"
	IconOK      = "✓"
	IconFail    = "✗"
	IconWarn    = "!"
	IconInfo    = "ℹ"
	IconPending = "◌"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(msg string) string {
	return SuccessStyle.Render(IconOK) + " " + Normal.Render(msg)
}

// FormatError formats an error message with icon.
func FormatError(msg string) string {
	return ErrorStyle.Render(IconFail) + " " + Normal.Render(msg)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(msg string) string {
	return WarningStyle.Render(IconWarn) + " " + Normal.Render(msg)
}

// FormatInfo formats an informational message with icon.
func FormatInfo(msg string) string {
	return InfoStyle.Render(IconInfo) + " " + Normal.Render(msg)
}

// FormatKeyValue renders an aligned "key: value" line.
func FormatKeyValue(key, value string) string {
	return Muted.Width(22).Render(key+":") + Normal.Render(value)
}

// DisableColors strips color from every style, for --no-color runs and
// dumb terminals.
func DisableColors() {
	plain := lipgloss.NewStyle()
	Title = plain.Bold(true)
	Normal = plain
	Muted = plain
	Code = plain.Bold(true)
	SuccessStyle = plain
	WarningStyle = plain
	ErrorStyle = plain
	InfoStyle = plain
}
