// package formatter renders task buckets and daily cards as plain text, Markdown, CSV and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/flowmaster/internal/models"
	"github.com/desertthunder/flowmaster/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat converts a flag value into a [Format]. "txt" and "md" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, markdown, csv or json)", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension used for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

// Board is a snapshot of the three task buckets.
type Board struct {
	Todo  []models.Task `json:"todo"`
	Watch []models.Task `json:"watch"`
	Later []models.Task `json:"later"`
}

// BucketSource is anything that can hand out a copy of a bucket, such as stores.TaskListStore.
type BucketSource interface {
	Bucket(lt models.ListType) []models.Task
}

// BoardFrom snapshots every bucket of src.
func BoardFrom(src BucketSource) Board {
	return Board{
		Todo:  src.Bucket(models.ListTodo),
		Watch: src.Bucket(models.ListWatch),
		Later: src.Bucket(models.ListLater),
	}
}

// Bucket returns the tasks of lt.
func (b Board) Bucket(lt models.ListType) []models.Task {
	switch lt {
	case models.ListTodo:
		return b.Todo
	case models.ListWatch:
		return b.Watch
	case models.ListLater:
		return b.Later
	default:
		return nil
	}
}

// Only returns a board holding just the bucket lt.
func (b Board) Only(lt models.ListType) Board {
	var out Board
	switch lt {
	case models.ListTodo:
		out.Todo = b.Todo
	case models.ListWatch:
		out.Watch = b.Watch
	case models.ListLater:
		out.Later = b.Later
	}
	return out
}

// Len returns the number of tasks on the board.
func (b Board) Len() int {
	return len(b.Todo) + len(b.Watch) + len(b.Later)
}

// BoardToCSV renders every task with columns: ID, Title, List, Completed, Priority, Due, Tags
func BoardToCSV(b Board) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "List", "Completed", "Priority", "Due", "Tags"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, lt := range models.ListTypes() {
		for _, task := range b.Bucket(lt) {
			record := []string{
				task.ID,
				task.Title,
				string(task.ListType),
				strconv.FormatBool(task.IsCompleted),
				priority(task.Priority),
				dueDate(task.DueDate),
				strings.Join(task.Tags, ";"),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// BoardToMarkdown renders the board as a checklist per bucket.
func BoardToMarkdown(b Board) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Board\n")
	for _, lt := range models.ListTypes() {
		tasks := b.Bucket(lt)
		buf.WriteString(fmt.Sprintf("\n## %s (%d)\n\n", Title(lt), len(tasks)))
		if len(tasks) == 0 {
			buf.WriteString("_empty_\n")
			continue
		}
		for _, task := range tasks {
			buf.WriteString(fmt.Sprintf("- %s **%s**", checkbox(task.IsCompleted), task.Title))
			if d := details(task); d != "" {
				buf.WriteString(" (" + d + ")")
			}
			for _, tag := range task.Tags {
				buf.WriteString(" `" + tag + "`")
			}
			buf.WriteString("\n")
		}
	}

	return buf.Bytes(), nil
}

// BoardToText renders the board for a terminal.
func BoardToText(b Board) ([]byte, error) {
	var buf bytes.Buffer

	for i, lt := range models.ListTypes() {
		if i > 0 {
			buf.WriteString("\n")
		}
		tasks := b.Bucket(lt)
		buf.WriteString(fmt.Sprintf("%s (%d)\n", strings.ToUpper(string(lt)), len(tasks)))
		for _, task := range tasks {
			buf.WriteString("  " + TaskLine(task) + "\n")
		}
	}

	return buf.Bytes(), nil
}

// TaskLine renders a single task on one line, e.g. "[ ] write report (p1, due 2026-10-20) #work [task-3]".
func TaskLine(task models.Task) string {
	var sb strings.Builder
	sb.WriteString(checkbox(task.IsCompleted) + " " + task.Title)
	if d := details(task); d != "" {
		sb.WriteString(" (" + d + ")")
	}
	for _, tag := range task.Tags {
		sb.WriteString(" #" + tag)
	}
	sb.WriteString(" [" + task.ID + "]")
	return sb.String()
}

// CardToText renders the daily card for a terminal. A nil card renders as a short notice.
func CardToText(c *models.DailyCard) ([]byte, error) {
	var buf bytes.Buffer

	if c == nil {
		buf.WriteString("No card for today.\n")
		return buf.Bytes(), nil
	}

	buf.WriteString(fmt.Sprintf("Daily card %s\n", c.Date))
	buf.WriteString(fmt.Sprintf("Tasks: %d/%d done\n", completed(c), len(c.Tasks)))
	for _, task := range c.Tasks {
		buf.WriteString(fmt.Sprintf("  %s %s [%s]\n", checkbox(task.IsCompleted), task.Title, task.TaskID))
	}

	if len(c.Accomplishments) > 0 {
		buf.WriteString("Accomplishments:\n")
		for _, acc := range c.Accomplishments {
			buf.WriteString("  - " + accomplishment(acc) + "\n")
		}
	}

	return buf.Bytes(), nil
}

// CardToMarkdown renders the daily card as Markdown.
func CardToMarkdown(c *models.DailyCard) ([]byte, error) {
	var buf bytes.Buffer

	if c == nil {
		buf.WriteString("# Daily card\n\n_No card for today._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString(fmt.Sprintf("# Daily card: %s\n\n", c.Date))
	buf.WriteString(fmt.Sprintf("**Progress**: %d/%d\n\n", completed(c), len(c.Tasks)))

	buf.WriteString("## Tasks\n\n")
	for _, task := range c.Tasks {
		buf.WriteString(fmt.Sprintf("- %s %s\n", checkbox(task.IsCompleted), task.Title))
	}

	buf.WriteString("\n## Accomplishments\n\n")
	if len(c.Accomplishments) == 0 {
		buf.WriteString("_none yet_\n")
	}
	for i, acc := range c.Accomplishments {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, accomplishment(acc)))
	}

	return buf.Bytes(), nil
}

// CardToCSV renders the card's tasks with columns: TaskID, Title, Completed
func CardToCSV(c *models.DailyCard) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"TaskID", "Title", "Completed"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	if c != nil {
		for _, task := range c.Tasks {
			if err := writer.Write([]string{task.TaskID, task.Title, strconv.FormatBool(task.IsCompleted)}); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// BoardTo renders b in format f.
func BoardTo(f Format, b Board) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return BoardToMarkdown(b)
	case FormatCSV:
		return BoardToCSV(b)
	case FormatJSON:
		return shared.MarshalJSON(b, true)
	default:
		return BoardToText(b)
	}
}

// CardTo renders c in format f.
func CardTo(f Format, c *models.DailyCard) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return CardToMarkdown(c)
	case FormatCSV:
		return CardToCSV(c)
	case FormatJSON:
		return shared.MarshalJSON(c, true)
	default:
		return CardToText(c)
	}
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Title returns the display name of a bucket.
func Title(lt models.ListType) string {
	switch lt {
	case models.ListTodo:
		return "Todo"
	case models.ListWatch:
		return "Watch"
	case models.ListLater:
		return "Later"
	default:
		return string(lt)
	}
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func details(task models.Task) string {
	var parts []string
	if task.Priority != nil {
		parts = append(parts, "p"+priority(task.Priority))
	}
	if task.DueDate != nil {
		parts = append(parts, "due "+dueDate(task.DueDate))
	}
	return strings.Join(parts, ", ")
}

func priority(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func dueDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(time.DateOnly)
}

func completed(c *models.DailyCard) int {
	n := 0
	for _, t := range c.Tasks {
		if t.IsCompleted {
			n++
		}
	}
	return n
}

func accomplishment(acc models.Accomplishment) string {
	if acc.Source == "" {
		return acc.Title
	}
	return fmt.Sprintf("%s (%s)", acc.Title, acc.Source)
}
