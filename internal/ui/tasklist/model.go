package tasklist

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/axora/taskdeck/internal/api"
	"github.com/axora/taskdeck/internal/keys"
	"github.com/axora/taskdeck/internal/model"
	"github.com/axora/taskdeck/internal/store"
	"github.com/axora/taskdeck/internal/theme"
)

// cacheLimit bounds how many tasks the offline fallback loads.
const cacheLimit = 200

// TasksLoadedMsg is sent when the task list has been fetched.
type TasksLoadedMsg struct {
	Tasks []model.Task
	// Stale is true when the server was unreachable and the tasks
	// came from the local cache instead.
	Stale bool
	Err   error
}

// SelectedTaskMsg is sent when a user selects a task to view details.
type SelectedTaskMsg struct {
	TaskID int64
}

// Model is the main task list view component.
type Model struct {
	list   list.Model
	client *api.Client
	cache  store.Cache
	keys   *keys.KeyMap
	filter model.TaskFilter
	stale  bool
	width  int
	height int
}

// New creates a new task list model.
func New(client *api.Client, cache store.Cache, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "My Tasks"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		client: client,
		cache:  cache,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init returns a command that loads the initial set of tasks.
func (m Model) Init() tea.Cmd {
	return m.LoadTasks()
}

// Update handles messages for the task list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TasksLoadedMsg:
		m.stale = msg.Stale
		items := make([]list.Item, len(msg.Tasks))
		for i, task := range msg.Tasks {
			items[i] = TaskItem{Task: task}
		}
		cmd := m.list.SetItems(items)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleKeys processes key input for the task list.
func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(TaskItem)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedTaskMsg{TaskID: item.Task.ID}
		}

	case key.Matches(msg, m.keys.Refresh):
		return m, m.LoadTasks()

	case key.Matches(msg, m.keys.FilterTodo):
		m.toggleStatusFilter(model.StatusTodo)
		return m, m.LoadTasks()

	case key.Matches(msg, m.keys.FilterInProgress):
		m.toggleStatusFilter(model.StatusInProgress)
		return m, m.LoadTasks()

	case key.Matches(msg, m.keys.FilterDone):
		m.toggleStatusFilter(model.StatusDone)
		return m, m.LoadTasks()
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// toggleStatusFilter applies a status filter, or clears it when the
// same status is pressed twice.
func (m *Model) toggleStatusFilter(s model.TaskStatus) {
	if m.filter.Status != nil && *m.filter.Status == s {
		m.filter.Status = nil
		return
	}
	m.filter.Status = &s
}

// SelectedTaskID returns the id of the focused task, or 0 when the
// list is empty.
func (m Model) SelectedTaskID() int64 {
	item, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return 0
	}
	return item.Task.ID
}

// View renders the task list view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	if m.stale {
		banner := theme.DimStyle.Padding(0, 1).Render("offline: showing cached tasks")
		return lipgloss.JoinVertical(lipgloss.Left, banner, m.list.View())
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when no tasks are available.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.filter.Status != nil {
		return style.Render("No matching tasks.\nPress the same number again to clear the filter.")
	}

	return style.Render("No tasks assigned to you.\n\nPress c to create one.")
}

// LoadTasks returns a tea.Cmd that fetches tasks from the server,
// falling back to the local cache when the server is unreachable.
func (m Model) LoadTasks() tea.Cmd {
	filter := m.filter
	client := m.client
	cache := m.cache
	return func() tea.Msg {
		ctx := context.Background()
		tasks, err := client.MyTasks(ctx, filter)
		if err == nil {
			if cache != nil {
				_ = cache.UpsertTasks(ctx, tasks)
			}
			return TasksLoadedMsg{Tasks: tasks}
		}
		if api.IsAuthError(err) || cache == nil {
			return TasksLoadedMsg{Err: err}
		}
		cached, cerr := cache.GetTasks(ctx, cacheLimit)
		if cerr != nil {
			return TasksLoadedMsg{Err: err}
		}
		return TasksLoadedMsg{Tasks: filterCached(cached, filter), Stale: true, Err: err}
	}
}

// filterCached applies the active filter to cached tasks, since the
// cache stores the unfiltered list.
func filterCached(tasks []model.Task, f model.TaskFilter) []model.Task {
	if f.Status == nil && f.Priority == nil && f.CategoryID == nil {
		return tasks
	}
	out := tasks[:0:0]
	for _, t := range tasks {
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Priority != nil && t.Priority != *f.Priority {
			continue
		}
		if f.CategoryID != nil && (t.Category == nil || t.Category.ID != *f.CategoryID) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
