package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/flowmaster/internal/models"
)

var (
	_ list.Item = taskItem{}
	_ list.Item = cardTaskItem{}
)

// taskItem wraps [models.Task] to implement [list.Item].
type taskItem struct {
	task models.Task
}

func (i taskItem) FilterValue() string { return i.task.Title }
func (i taskItem) Title() string {
	if i.task.IsCompleted {
		return "✓ " + i.task.Title
	}
	return i.task.Title
}

func (i taskItem) Description() string {
	var parts []string
	if i.task.Priority != nil {
		parts = append(parts, fmt.Sprintf("p%d", *i.task.Priority))
	}
	if i.task.DueDate != nil {
		parts = append(parts, "due "+i.task.DueDate.Format(time.DateOnly))
	}
	if len(i.task.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(i.task.Tags, " #"))
	}
	if len(parts) == 0 {
		return i.task.ID
	}
	return strings.Join(parts, " • ")
}

// cardTaskItem wraps [models.CardTask] to implement [list.Item].
type cardTaskItem struct {
	task models.CardTask
}

func (i cardTaskItem) FilterValue() string { return i.task.Title }
func (i cardTaskItem) Title() string {
	if i.task.IsCompleted {
		return "[x] " + i.task.Title
	}
	return "[ ] " + i.task.Title
}
func (i cardTaskItem) Description() string { return i.task.TaskID }

func taskItems(tasks []models.Task) []list.Item {
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = taskItem{task: t}
	}
	return items
}

func cardTaskItems(tasks []models.CardTask) []list.Item {
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = cardTaskItem{task: t}
	}
	return items
}
