package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/flowmaster/internal/engine"
	"github.com/desertthunder/flowmaster/internal/formatter"
	"github.com/desertthunder/flowmaster/internal/models"
	"github.com/desertthunder/flowmaster/internal/shared"
	"github.com/desertthunder/flowmaster/internal/stores"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	BoardView ViewState = iota
	CardView
	ConfirmDeleteView
)

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	engine   *engine.RefreshEngine
	tasks    *stores.TaskListStore
	cards    *stores.DailyCardStore
	width    int
	height   int
	column   int
	columns  [3]list.Model
	cardList list.Model
	card     *models.DailyCard
	user     *models.User
	busy     bool
	progress engine.ProgressUpdate
	status   string
	err      error
	fatal    error
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model over the given stores and engine.
func NewModel(ctx context.Context, eng *engine.RefreshEngine, tasks *stores.TaskListStore, cards *stores.DailyCardStore) *Model {
	m := &Model{
		ctx:    ctx,
		view:   BoardView,
		engine: eng,
		tasks:  tasks,
		cards:  cards,
		help:   help.New(),
		keys:   newKeyMap(),
	}
	for i, lt := range models.ListTypes() {
		m.columns[i] = newList(formatter.Title(lt))
	}
	m.cardList = newList("Today")
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	return l
}

// Init starts a refresh of every store.
func (m *Model) Init() tea.Cmd {
	return m.startRefresh()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case BoardView:
			return m.handleBoardKeys(msg)
		case CardView:
			return m.handleCardKeys(msg)
		case ConfirmDeleteView:
			return m.handleConfirmKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		data := msg.data.(progressed)
		m.progress = data.update
		return m, waitForProgress(data.run)

	case MsgRefreshed:
		data := msg.data.(refreshed)
		m.busy = false
		m.progress = engine.ProgressUpdate{}
		if errors.Is(data.err, shared.ErrNotAuthenticated) {
			m.fatal = data.err
			return m, nil
		}
		m.err = data.err
		if data.result != nil {
			m.user = data.result.User
			m.err = errors.Join(m.err, storeErrors(data.result.Errors))
		}
		m.sync()
		if m.err == nil {
			m.status = "Refreshed"
		}
		return m, nil

	case MsgMutationDone:
		data := msg.data.(mutationDone)
		m.busy = false
		m.err = data.err
		if data.err == nil {
			m.status = data.status
		}
		m.sync()
		return m, nil
	}
	return m, nil
}

func storeErrors(errs []engine.StoreError) error {
	var joined error
	for _, e := range errs {
		joined = errors.Join(joined, e)
	}
	return joined
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.fatal != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.fatal))
	}

	var body string
	switch m.view {
	case CardView:
		body = m.renderCard()
	case ConfirmDeleteView:
		body = m.renderConfirm()
	default:
		body = m.renderBoard()
	}
	return fmt.Sprintf("%s\n%s\n%s", m.renderHeader(), body, m.renderFooter())
}

func (m *Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.left):
		m.column = (m.column + len(m.columns) - 1) % len(m.columns)
		return m, nil
	case key.Matches(msg, m.keys.right):
		m.column = (m.column + 1) % len(m.columns)
		return m, nil
	case key.Matches(msg, m.keys.card):
		m.view = CardView
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.startRefresh()
	}

	if m.busy {
		return m.updateList(msg)
	}

	task, ok := m.selectedTask()
	switch {
	case key.Matches(msg, m.keys.complete) && ok:
		return m, m.mutate(func() (string, error) {
			if err := m.engine.CompleteEverywhere(m.ctx, task.ID); err != nil {
				return "", err
			}
			return fmt.Sprintf("Completed %q", task.Title), nil
		})
	case key.Matches(msg, m.keys.move) && ok:
		next := nextList(task.ListType)
		return m, m.mutate(func() (string, error) {
			if m.tasks.MoveTask(m.ctx, task.ID, next) == nil {
				return "", errors.New(m.tasks.LastError())
			}
			return fmt.Sprintf("Moved %q to %s", task.Title, next), nil
		})
	case key.Matches(msg, m.keys.plan) && ok:
		ids, added := m.plannedIDs(task.ID)
		if !added {
			m.status = fmt.Sprintf("%q is already on today's card", task.Title)
			return m, nil
		}
		return m, m.mutate(func() (string, error) {
			if _, err := m.engine.PlanDay(m.ctx, ids, nil); err != nil {
				return "", err
			}
			return fmt.Sprintf("Added %q to today's card", task.Title), nil
		})
	case key.Matches(msg, m.keys.remove) && ok:
		m.view = ConfirmDeleteView
		return m, nil
	}

	return m.updateList(msg)
}

func (m *Model) handleCardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.card):
		m.view = BoardView
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.startRefresh()
	case key.Matches(msg, m.keys.complete) && !m.busy:
		item, ok := m.cardList.SelectedItem().(cardTaskItem)
		if !ok || item.task.IsCompleted {
			return m, nil
		}
		return m, m.mutate(func() (string, error) {
			if err := m.engine.CompleteEverywhere(m.ctx, item.task.TaskID); err != nil {
				return "", err
			}
			return fmt.Sprintf("Completed %q", item.task.Title), nil
		})
	}

	var cmd tea.Cmd
	m.cardList, cmd = m.cardList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.no):
		m.view = BoardView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = BoardView
		task, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		return m, m.mutate(func() (string, error) {
			if !m.tasks.DeleteTask(m.ctx, task.ID) {
				return "", errors.New(m.tasks.LastError())
			}
			return fmt.Sprintf("Deleted %q", task.Title), nil
		})
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.columns[m.column], cmd = m.columns[m.column].Update(msg)
	return m, cmd
}

func (m *Model) selectedTask() (models.Task, bool) {
	item, ok := m.columns[m.column].SelectedItem().(taskItem)
	if !ok {
		return models.Task{}, false
	}
	return item.task, true
}

// plannedIDs returns the ids already on today's card followed by id. added is false when id is already there.
func (m *Model) plannedIDs(id string) (ids []string, added bool) {
	for _, t := range m.cards.CardTasks() {
		if t.TaskID == id {
			return nil, false
		}
		ids = append(ids, t.TaskID)
	}
	return append(ids, id), true
}

func nextList(lt models.ListType) models.ListType {
	all := models.ListTypes()
	for i, l := range all {
		if l == lt {
			return all[(i+1)%len(all)]
		}
	}
	return models.ListTodo
}

// mutate runs fn off the update loop and reports its outcome as [MsgMutationDone].
func (m *Model) mutate(fn func() (string, error)) tea.Cmd {
	m.busy = true
	m.status = ""
	return func() tea.Msg {
		status, err := fn()
		return mutationDoneMsg(status, err)
	}
}

// refreshRun is a refresh in flight. result and err are set before progress is closed.
type refreshRun struct {
	progress chan engine.ProgressUpdate
	result   *engine.RefreshResult
	err      error
}

func (m *Model) startRefresh() tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	m.status = ""
	run := &refreshRun{progress: make(chan engine.ProgressUpdate, 10)}

	go func() {
		run.result, run.err = m.engine.Refresh(m.ctx, run.progress)
		close(run.progress)
	}()

	return waitForProgress(run)
}

func waitForProgress(run *refreshRun) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-run.progress
		if !ok {
			return refreshedMsg(run.result, run.err)
		}
		return progressUpdateMsg(run, update)
	}
}

// sync rebuilds every list from the stores.
func (m *Model) sync() {
	for i, lt := range models.ListTypes() {
		m.columns[i].SetItems(taskItems(m.tasks.Bucket(lt)))
	}
	m.card = m.cards.TodayCard()
	if m.card != nil {
		m.cardList.SetItems(cardTaskItems(m.card.Tasks))
		m.cardList.Title = "Today " + m.card.Date
	} else {
		m.cardList.SetItems(nil)
		m.cardList.Title = "Today"
	}
}

func (m *Model) resize() {
	w := max((m.width-8)/len(m.columns), 10)
	h := max(m.height-8, 5)
	for i := range m.columns {
		m.columns[i].SetSize(w, h)
	}
	m.cardList.SetSize(max(m.width-4, 10), max(h-6, 3))
}

func (m *Model) renderHeader() string {
	name := "FlowMaster"
	if m.user != nil {
		name = fmt.Sprintf("FlowMaster · %s", m.user.Username)
	}
	return styles.title.Render(name)
}

func (m *Model) renderBoard() string {
	cols := make([]string, len(m.columns))
	for i := range m.columns {
		style := styles.column
		if i == m.column {
			style = styles.active
		}
		cols[i] = style.Render(m.columns[i].View())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m *Model) renderCard() string {
	if m.card == nil {
		return styles.warn.Render("No card for today. Press tab, select a task and press p to plan one.")
	}

	var sb strings.Builder
	sb.WriteString(m.cardList.View())
	sb.WriteString("\n\n")
	sb.WriteString(styles.title.Render("Accomplishments"))
	sb.WriteString("\n")
	if len(m.card.Accomplishments) == 0 {
		sb.WriteString(styles.help.Render("none yet"))
	}
	for _, acc := range m.card.Accomplishments {
		sb.WriteString(styles.ok.Render("• ") + acc.Title + "\n")
	}
	return sb.String()
}

func (m *Model) renderConfirm() string {
	task, ok := m.selectedTask()
	if !ok {
		return ""
	}
	title := styles.warn.Render(fmt.Sprintf("Delete %q?", task.Title))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n\n%s", title, helpView)
}

func (m *Model) renderFooter() string {
	var line string
	switch {
	case m.busy && m.progress.Message != "":
		line = styles.help.Render(m.progress.Message)
	case m.busy:
		line = styles.help.Render("Working...")
	case m.err != nil:
		line = styles.err.Render(m.err.Error())
	case m.status != "":
		line = styles.ok.Render(m.status)
	}

	var helpKeys []key.Binding
	switch m.view {
	case CardView:
		helpKeys = []key.Binding{m.keys.up, m.keys.down, m.keys.complete, m.keys.card, m.keys.refresh, m.keys.quit}
	case ConfirmDeleteView:
		return line
	default:
		helpKeys = []key.Binding{m.keys.left, m.keys.right, m.keys.complete, m.keys.move, m.keys.plan, m.keys.remove, m.keys.card, m.keys.refresh, m.keys.quit}
	}
	return fmt.Sprintf("%s\n%s", line, m.help.ShortHelpView(helpKeys))
}
