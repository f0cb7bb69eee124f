package engine

import (
	"fmt"

	"github.com/desertthunder/flowmaster/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchProfile Phase = iota
	FetchTasks
	FetchCard
	PlanCard
	ExportBoard
)

func (p Phase) String() string {
	switch p {
	case FetchProfile:
		return "fetch_profile"
	case FetchTasks:
		return "fetch_tasks"
	case FetchCard:
		return "fetch_card"
	case PlanCard:
		return "plan_card"
	case ExportBoard:
		return "export_board"
	default:
		return ""
	}
}

func fetchProfileUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchProfile, Step: 1, Total: 1, Message: "Validating session..."}
}

func profileLoadedUpdate(user *models.User) ProgressUpdate {
	name := "unknown user"
	if user != nil {
		name = user.Username
	}
	return ProgressUpdate{
		Phase:   FetchProfile,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Signed in as %s", name),
		Data:    user,
	}
}

func fetchTasksUpdate(count int, errMsg string) ProgressUpdate {
	if errMsg != "" {
		return ProgressUpdate{Phase: FetchTasks, Step: 1, Total: 1, Message: "✗ tasks: " + errMsg}
	}
	return ProgressUpdate{Phase: FetchTasks, Step: 1, Total: 1, Message: fmt.Sprintf("✓ %d tasks", count)}
}

func fetchCardUpdate(card *models.DailyCard, errMsg string) ProgressUpdate {
	switch {
	case errMsg != "":
		return ProgressUpdate{Phase: FetchCard, Step: 1, Total: 1, Message: "✗ daily card: " + errMsg}
	case card == nil:
		return ProgressUpdate{Phase: FetchCard, Step: 1, Total: 1, Message: "No card for today yet"}
	default:
		return ProgressUpdate{
			Phase:   FetchCard,
			Step:    1,
			Total:   1,
			Message: fmt.Sprintf("✓ card %s (%d tasks)", card.Date, len(card.Tasks)),
			Data:    card,
		}
	}
}

func planCardUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PlanCard,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, title),
	}
}

func exportCompletedUpdate(step, total int, name string, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportBoard,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s -> %s", step, total, name, path),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportBoard,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
