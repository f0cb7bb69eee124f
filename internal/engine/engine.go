package engine

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flowmaster/internal/formatter"
	"github.com/desertthunder/flowmaster/internal/models"
	"github.com/desertthunder/flowmaster/internal/shared"
	"github.com/desertthunder/flowmaster/internal/stores"
	"golang.org/x/sync/errgroup"
)

// MaxCardTasks is the most tasks a daily card may hold.
const MaxCardTasks = 5

// StoreError is a failure recorded by one store during a workflow.
type StoreError struct {
	Store   string
	Message string
}

func (e StoreError) Error() string {
	return e.Store + ": " + e.Message
}

// RefreshResult is the state of every store after [RefreshEngine.Refresh].
type RefreshResult struct {
	User   *models.User
	Board  formatter.Board
	Card   *models.DailyCard
	Errors []StoreError
}

// Failed reports whether any store recorded an error.
func (r *RefreshResult) Failed() bool {
	return len(r.Errors) > 0
}

// RefreshEngine drives the session, task and card stores together.
type RefreshEngine struct {
	session *stores.SessionStore
	tasks   *stores.TaskListStore
	cards   *stores.DailyCardStore
	logger  *log.Logger
}

// NewRefreshEngine creates a RefreshEngine over the given stores.
func NewRefreshEngine(session *stores.SessionStore, tasks *stores.TaskListStore, cards *stores.DailyCardStore, logger *log.Logger) *RefreshEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &RefreshEngine{
		session: session,
		tasks:   tasks,
		cards:   cards,
		logger:  shared.WithLogger(logger, "component", "engine"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *RefreshEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Refresh revalidates the session, then reloads the task buckets and today's card concurrently.
//
// Returns [shared.ErrNotAuthenticated] when there is no token or the server rejected it.
// Task and card failures do not stop the refresh; they are reported in [RefreshResult.Errors].
func (e *RefreshEngine) Refresh(ctx context.Context, progress chan<- ProgressUpdate) (*RefreshResult, error) {
	if !e.session.IsAuthenticated() {
		return nil, fmt.Errorf("%w: run 'flowmaster auth login' first", shared.ErrNotAuthenticated)
	}

	e.sendProgress(progress, fetchProfileUpdate())
	e.session.FetchUserProfile(ctx)
	if !e.session.IsAuthenticated() {
		return nil, fmt.Errorf("%w: session expired, please log in again", shared.ErrNotAuthenticated)
	}

	user := e.session.User()
	e.sendProgress(progress, profileLoadedUpdate(user))

	var g errgroup.Group
	g.Go(func() error {
		e.tasks.FetchTasks(ctx)
		board := formatter.BoardFrom(e.tasks)
		e.sendProgress(progress, fetchTasksUpdate(board.Len(), e.tasks.LastError()))
		return nil
	})
	g.Go(func() error {
		e.cards.FetchTodayCard(ctx)
		e.sendProgress(progress, fetchCardUpdate(e.cards.TodayCard(), e.cards.LastError()))
		return nil
	})
	g.Wait()

	result := &RefreshResult{
		User:  user,
		Board: formatter.BoardFrom(e.tasks),
		Card:  e.cards.TodayCard(),
	}
	if msg := e.session.LastError(); msg != "" {
		result.Errors = append(result.Errors, StoreError{Store: "session", Message: msg})
	}
	if msg := e.tasks.LastError(); msg != "" {
		result.Errors = append(result.Errors, StoreError{Store: "tasks", Message: msg})
	}
	if msg := e.cards.LastError(); msg != "" {
		result.Errors = append(result.Errors, StoreError{Store: "daily_card", Message: msg})
	}

	// A 401 on tasks or the card may have torn the session down after the profile check.
	if !e.session.IsAuthenticated() {
		return result, fmt.Errorf("%w: session expired, please log in again", shared.ErrNotAuthenticated)
	}

	e.logger.Debug("refresh complete", "tasks", result.Board.Len(), "card", result.Card != nil, "errors", len(result.Errors))
	return result, nil
}

// PlanDay puts the given tasks on today's card, creating the card or replacing its task list.
//
// Every id must be held by the task store; between 1 and [MaxCardTasks] distinct ids are accepted.
// Completion flags are carried over from the tasks.
func (e *RefreshEngine) PlanDay(ctx context.Context, taskIDs []string, progress chan<- ProgressUpdate) (*models.DailyCard, error) {
	if len(taskIDs) < 1 || len(taskIDs) > MaxCardTasks {
		return nil, fmt.Errorf("%w: a daily card holds 1-%d tasks, got %d", shared.ErrInvalidInput, MaxCardTasks, len(taskIDs))
	}

	seen := make(map[string]bool, len(taskIDs))
	cardTasks := make([]models.CardTask, 0, len(taskIDs))
	for i, id := range taskIDs {
		if seen[id] {
			return nil, fmt.Errorf("%w: task %s listed twice", shared.ErrInvalidInput, id)
		}
		seen[id] = true

		task, ok := e.tasks.GetTaskByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
		}
		cardTasks = append(cardTasks, models.CardTask{TaskID: task.ID, Title: task.Title, IsCompleted: task.IsCompleted})
		e.sendProgress(progress, planCardUpdate(i+1, len(taskIDs), task.Title))
	}

	var card *models.DailyCard
	if e.cards.TodayCard() != nil {
		card = e.cards.UpdateDailyCard(ctx, models.CardUpdate{Tasks: cardTasks})
	} else {
		card = e.cards.CreateDailyCard(ctx, models.CardCreate{Tasks: cardTasks})
	}
	if card == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrAPIRequest, e.cards.LastError())
	}
	return card, nil
}

// CompleteEverywhere completes taskID on today's card and in its bucket, whichever hold it.
//
// Completing a card task also records an accomplishment with source "task".
func (e *RefreshEngine) CompleteEverywhere(ctx context.Context, taskID string) error {
	card := e.cards.TodayCard()
	onCard := card != nil && card.FindTask(taskID) >= 0
	task, inBucket := e.tasks.GetTaskByID(taskID)

	if !onCard && !inBucket {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, taskID)
	}

	if inBucket && !task.IsCompleted {
		if e.tasks.CompleteTask(ctx, taskID) == nil {
			return fmt.Errorf("%w: %s", shared.ErrAPIRequest, e.tasks.LastError())
		}
	}

	if !onCard {
		return nil
	}

	cardTask := card.Tasks[card.FindTask(taskID)]
	if cardTask.IsCompleted {
		return nil
	}
	if !e.cards.CompleteCardTask(ctx, taskID) {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, e.cards.LastError())
	}

	id := taskID
	acc := e.cards.AddAccomplishment(ctx, models.AccomplishmentCreate{Title: cardTask.Title, Source: "task", TaskID: &id})
	if acc == nil {
		e.logger.Warn("task completed but accomplishment not recorded", "task_id", taskID, "error", e.cards.LastError())
	}
	return nil
}
