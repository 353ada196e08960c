// Package tui provides the Bubble Tea screens wsdeploy shows outside huh
// forms: the wait screen of browser and device-code logins, and the
// rendered doctor and review summaries.
package tui

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// DoneMsg reports that the awaited login completed.
type DoneMsg struct{}

// ErrMsg reports that the awaited login failed or timed out.
type ErrMsg struct {
	Err error
}
