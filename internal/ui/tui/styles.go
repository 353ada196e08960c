package tui

import "github.com/charmbracelet/lipgloss"

// Colors adapt to light and dark terminals.
var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#c2410c", Dark: "#ff6a3d"}
	colorOK     = lipgloss.AdaptiveColor{Light: "#15803d", Dark: "#22c55e"}
	colorFail   = lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#ef4444"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#a16207", Dark: "#eab308"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#4b5563", Dark: "#9ca3af"}
	colorText   = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#f9fafb"}
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	subtitleStyle = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText).MarginTop(1).Underline(true)

	readyStyle   = lipgloss.NewStyle().Foreground(colorOK)
	failedStyle  = lipgloss.NewStyle().Foreground(colorFail).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarn)
	dimStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	activeStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	progressBarFull  = lipgloss.NewStyle().Foreground(colorAccent)
	progressBarEmpty = lipgloss.NewStyle().Foreground(colorMuted)

	footerStyle = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
)

// Status marks stay ASCII so that piped output stays readable.
const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	warnMark  = "[??]"
)

var spinnerFrames = []string{"◐", "◓", "◑", "◒"}
