package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plstat/internal/shared"
	"github.com/desertthunder/plstat/internal/ui"
)

// TUI launches the interactive statistics browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Logs and progress bars must not draw over the UI
	fileLogger, err := shared.NewFileLogger(filepath.Join(os.TempDir(), "plstat", "tui.log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	r.errOutput = io.Discard

	var runner ui.PipelineRunner
	if engine, err := r.engine(); err != nil {
		r.logger.Warn("runs disabled", "error", err)
	} else {
		runner = engine
	}

	model := ui.NewModel(ctx, r.loadSummary, runner)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
