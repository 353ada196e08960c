package tui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrCanceled is returned when the user leaves the wait screen.
var ErrCanceled = errors.New("canceled by user")

// Model is the Bubble Tea model of the login wait screen.
type Model struct {
	// Title names the login, e.g. "AWS SSO login for dev".
	Title string
	// Hint tells the user what to do meanwhile.
	Hint string
	// Budget is the time the poll gives the login, zero if unknown.
	Budget time.Duration

	StartTime time.Time
	now       func() time.Time

	// Animation
	SpinnerFrame int

	// UI state
	Width    int
	Err      error
	Done     bool
	Canceled bool
}

// NewWaitModel creates a wait screen model.
func NewWaitModel(title, hint string, budget time.Duration) Model {
	return Model{
		Title:     title,
		Hint:      hint,
		Budget:    budget,
		StartTime: time.Now(),
		now:       time.Now,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.Canceled = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// Elapsed returns the time since the screen opened.
func (m Model) Elapsed() time.Duration {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	return now().Sub(m.StartTime)
}

// Result maps the final model to the error RunWait returns.
func (m Model) Result() error {
	switch {
	case m.Err != nil:
		return m.Err
	case m.Canceled:
		return ErrCanceled
	}
	return nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderWait(m)
}
