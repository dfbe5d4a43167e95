package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/imusic/internal/notify"
	"github.com/desertthunder/imusic/internal/shared"
	"github.com/desertthunder/imusic/internal/ui"
)

// TUI launches the interactive player.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	r.interactive = true

	bus := notify.NewBus()
	defer bus.Close()
	sub := bus.Subscribe()

	a, err := r.newApp(notify.Multi(bus, notify.LogSink(fileLogger)), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	model := ui.NewModel(ctx, a, sub)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
