package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/flowmaster/internal/formatter"
	"github.com/desertthunder/flowmaster/internal/models"
	"github.com/desertthunder/flowmaster/internal/shared"
	"github.com/desertthunder/flowmaster/internal/ui"
	"github.com/urfave/cli/v3"
)

// Sync revalidates the session and reloads every store, printing progress as it goes.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}

	r.writePlain("Syncing...\n")
	progress, stop := r.printProgress()
	result, err := r.refresh(ctx, progress)
	stop()
	if result == nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete")
	r.writePlain("User:  %s\n", displayName(result.User, "unknown"))
	for _, lt := range models.ListTypes() {
		r.writePlain("%-6s %d\n", formatter.Title(lt)+":", len(result.Board.Bucket(lt)))
	}
	if result.Card != nil {
		done := 0
		for _, t := range result.Card.Tasks {
			if t.IsCompleted {
				done++
			}
		}
		r.writePlain("Card:  %s, %d/%d done\n", result.Card.Date, done, len(result.Card.Tasks))
	} else {
		r.writePlain("Card:  none for today\n")
	}
	return err
}

// Board launches the interactive terminal board.
func (r *Runner) Board(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if err := r.requireSession(); err != nil {
		return err
	}
	if r.engine == nil {
		return fmt.Errorf("%w: refresh engine not initialized", shared.ErrServiceUnavailable)
	}

	model := ui.NewModel(ctx, r.engine, r.tasks, r.cards)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

