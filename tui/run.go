package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/YuminosukeSato/stepml/pkg/errors"
	"github.com/YuminosukeSato/stepml/workflow"
)

// Run starts the wizard on cfg.Path and blocks until the operator quits or
// ctx is cancelled.
func Run(ctx context.Context, s *workflow.Session, cfg Config) error {
	if cfg.Path == "" {
		return errors.NewValidationError("path", "a CSV file is required", cfg.Path)
	}
	if !cfg.Theme.Title.GetBold() {
		cfg.Theme = DefaultTheme
	}

	p := tea.NewProgram(newModel(s, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err == nil || (ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled)) {
		return nil
	}
	return errors.Wrap(err, "tui failed")
}
