package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/flowmaster/internal/engine"
	"github.com/desertthunder/flowmaster/internal/formatter"
	"github.com/desertthunder/flowmaster/internal/models"
	"github.com/desertthunder/flowmaster/internal/shared"
	"github.com/urfave/cli/v3"
)

// loadTasks fetches every bucket into the task store.
func (r *Runner) loadTasks(ctx context.Context) error {
	if err := r.requireSession(); err != nil {
		return err
	}
	r.tasks.FetchTasks(ctx)
	return r.storeError(r.tasks.LastError())
}

// refresh runs a full refresh and turns any store failure into an error.
func (r *Runner) refresh(ctx context.Context, progress chan<- engine.ProgressUpdate) (*engine.RefreshResult, error) {
	if err := r.requireSession(); err != nil {
		return nil, err
	}
	result, err := r.engine.Refresh(ctx, progress)
	if err != nil {
		return result, err
	}
	if result.Failed() {
		msgs := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			msgs[i] = e.Error()
		}
		return result, fmt.Errorf("%w: %s", shared.ErrAPIRequest, strings.Join(msgs, "; "))
	}
	return result, nil
}

// storeError converts a store's last error into a command error, noticing when a 401 ended the session.
func (r *Runner) storeError(msg string) error {
	if !r.session.IsAuthenticated() {
		return fmt.Errorf("%w: session expired, please log in again", shared.ErrNotAuthenticated)
	}
	if msg != "" {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, msg)
	}
	return nil
}

// TasksList prints the buckets in the requested format.
func (r *Runner) TasksList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.loadTasks(ctx); err != nil {
		return err
	}

	board := formatter.BoardFrom(r.tasks)
	if name := cmd.String("list"); name != "" {
		lt, err := models.ParseListType(name)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		board = board.Only(lt)
	}

	data, err := formatter.BoardTo(format, board)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// TasksAdd creates a task in the --list bucket.
func (r *Runner) TasksAdd(ctx context.Context, cmd *cli.Command) error {
	title := strings.TrimSpace(cmd.StringArg("title"))
	if title == "" {
		return fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}
	lt, err := models.ParseListType(cmd.String("list"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	data := models.TaskCreate{
		Title:       title,
		ListType:    lt,
		Description: cmd.String("description"),
		Tags:        cmd.StringSlice("tag"),
	}
	if cmd.IsSet("priority") {
		p := int(cmd.Int("priority"))
		data.Priority = &p
	}
	if due, err := parseDue(cmd.String("due")); err != nil {
		return err
	} else if due != nil {
		data.DueDate = due
	}

	if err := r.requireSession(); err != nil {
		return err
	}
	task := r.tasks.CreateTask(ctx, data)
	if task == nil {
		return r.storeError(r.tasks.LastError())
	}

	r.logger.Debug("task created", "id", task.ID, "list", task.ListType)
	return r.writePlain("✓ Added to %s: %s\n", task.ListType, formatter.TaskLine(*task))
}

// TasksUpdate sends only the fields whose flags were set.
func (r *Runner) TasksUpdate(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	var patch models.TaskPatch
	changed := false
	if cmd.IsSet("title") {
		title := cmd.String("title")
		patch.Title = &title
		changed = true
	}
	if cmd.IsSet("description") {
		desc := cmd.String("description")
		patch.Description = &desc
		changed = true
	}
	if cmd.IsSet("priority") {
		p := int(cmd.Int("priority"))
		patch.Priority = &p
		changed = true
	}
	if cmd.IsSet("due") {
		due, err := parseDue(cmd.String("due"))
		if err != nil {
			return err
		}
		patch.DueDate = due
		changed = true
	}
	if cmd.IsSet("tag") {
		patch.Tags = cmd.StringSlice("tag")
		changed = true
	}
	if cmd.IsSet("list") {
		lt, err := models.ParseListType(cmd.String("list"))
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		patch.ListType = &lt
		changed = true
	}
	if !changed {
		return fmt.Errorf("%w: nothing to update", shared.ErrMissingArgument)
	}

	if err := r.loadTasks(ctx); err != nil {
		return err
	}
	task := r.tasks.UpdateTask(ctx, id, patch)
	if task == nil {
		return r.storeError(r.tasks.LastError())
	}
	return r.writePlain("✓ Updated: %s\n", formatter.TaskLine(*task))
}

// TasksDone completes a task in its bucket and on today's card.
func (r *Runner) TasksDone(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	if _, err := r.refresh(ctx, nil); err != nil {
		return err
	}

	if err := r.engine.CompleteEverywhere(ctx, id); err != nil {
		if !r.session.IsAuthenticated() {
			return fmt.Errorf("%w: session expired, please log in again", shared.ErrNotAuthenticated)
		}
		return err
	}
	return r.writePlain("✓ Completed %s\n", id)
}

// TasksMove moves a task to another bucket.
func (r *Runner) TasksMove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	lt, err := models.ParseListType(cmd.StringArg("list"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	if err := r.loadTasks(ctx); err != nil {
		return err
	}
	task := r.tasks.MoveTask(ctx, id, lt)
	if task == nil {
		return r.storeError(r.tasks.LastError())
	}
	return r.writePlain("✓ Moved to %s: %s\n", task.ListType, formatter.TaskLine(*task))
}

// TasksDelete deletes a task.
func (r *Runner) TasksDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	if err := r.loadTasks(ctx); err != nil {
		return err
	}
	if !r.tasks.DeleteTask(ctx, id) {
		return r.storeError(r.tasks.LastError())
	}
	return r.writePlain("✓ Deleted %s\n", id)
}

// TasksExport refreshes the stores and writes each bucket and today's card to --output.
func (r *Runner) TasksExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if _, err := r.refresh(ctx, nil); err != nil {
		return err
	}

	progress, stop := r.printProgress()
	result, err := r.engine.Export(ctx, progress, engine.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		SkipCard:   cmd.Bool("no-card"),
	})
	stop()
	if err != nil {
		return err
	}

	r.writePlainln("Export complete: %d written, %d failed", result.Successful, result.Failed)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d files failed to export", result.Failed, len(result.Files))
	}
	return nil
}

func parseDue(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	due, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("%w: due date %q must be YYYY-MM-DD", shared.ErrInvalidArgument, s)
	}
	return &due, nil
}
