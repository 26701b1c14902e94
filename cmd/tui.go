package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/convx/internal/session"
	"github.com/desertthunder/convx/internal/shared"
	"github.com/desertthunder/convx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for running conversions.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.converter == nil {
		return fmt.Errorf("%w: converter client not initialized", shared.ErrServiceUnavailable)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/convx-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	ctrl := session.NewController(r.converter, fileLogger, r.controllerOpts())
	defer ctrl.Close()

	model := ui.NewModel(ctx, r.converter, ctrl)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	final := ctrl.Session()
	if final.Phase.Terminal() {
		r.recordConversion(final, "")
	}

	return nil
}
