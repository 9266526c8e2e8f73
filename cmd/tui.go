package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/shared"
	"github.com/desertthunder/pitch/internal/tasks"
	"github.com/desertthunder/pitch/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI over a fresh session.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	recorder, err := r.recorder()
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	s := r.newSession(tasks.SessionOptions{Progress: progress, Recorder: recorder})
	if err := r.loadSource(ctx, cmd, s, false); err != nil {
		return err
	}

	model := ui.NewModel(ctx, s, ui.Options{
		OutputDir:       r.config.Export.OutputDir,
		Format:          models.FormatCSV,
		Labels:          r.config.Export.Labels,
		DefaultCap:      r.config.Campaign.DefaultCap,
		DefaultLanguage: r.config.Campaign.DefaultLanguage,
		Progress:        progress,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
