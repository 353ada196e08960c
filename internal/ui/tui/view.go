package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderWait(m Model) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.Title))
	b.WriteString(" ")
	switch {
	case m.Done:
		b.WriteString(readyStyle.Render("completed"))
	case m.Err != nil:
		b.WriteString(failedStyle.Render(fmt.Sprintf("Error: %v", m.Err)))
	case m.Canceled:
		b.WriteString(dimStyle.Render("canceled"))
	default:
		b.WriteString(activeStyle.Render(currentSpinner(m.SpinnerFrame)) + " " + warningStyle.Render("waiting"))
	}
	b.WriteString("\n")

	if m.Hint != "" {
		b.WriteString(subtitleStyle.Render("  " + m.Hint))
		b.WriteString("\n")
	}

	elapsed := m.Elapsed()
	if m.Budget > 0 {
		fmt.Fprintf(&b, "  %s %s left\n", progressBar(elapsed, m.Budget, barWidth(m.Width)), formatDuration(remaining(elapsed, m.Budget)))
	}

	b.WriteString(footerStyle.Render(fmt.Sprintf("  elapsed: %s  |  q: cancel", formatDuration(elapsed))))
	b.WriteString("\n")
	return b.String()
}

func barWidth(width int) int {
	w := 40
	if width > 0 && width < 80 {
		w = width - 30
		if w < 10 {
			w = 10
		}
	}
	return w
}

// progressBar renders the spent share of budget.
func progressBar(elapsed, budget time.Duration, width int) string {
	progress := float64(elapsed) / float64(budget)
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))
	return progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", width-filled))
}

func remaining(elapsed, budget time.Duration) time.Duration {
	if elapsed >= budget {
		return 0
	}
	return budget - elapsed
}

func currentSpinner(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func statusIcon(ok, required bool) (string, styleFunc) {
	switch {
	case ok:
		return checkMark, sf(readyStyle)
	case required:
		return crossMark, sf(failedStyle)
	default:
		return warnMark, sf(warningStyle)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
