package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// RunWait shows the wait screen until done delivers the login outcome, the
// user quits or ctx ends. A nil outcome on done is a completed login; a
// closed channel without a value means the login was abandoned.
func RunWait(ctx context.Context, m Model, done <-chan error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(m, tea.WithContext(ctx))

	go func() {
		select {
		case <-ctx.Done():
		case err, ok := <-done:
			switch {
			case !ok:
				p.Send(ErrMsg{Err: ErrCanceled})
			case err != nil:
				p.Send(ErrMsg{Err: err})
			default:
				p.Send(DoneMsg{})
			}
		}
	}()

	finalModel, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("TUI error: %w", err)
	}

	fm := finalModel.(Model)
	return fm.Result()
}
