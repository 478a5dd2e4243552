package detail

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/axora/taskdeck/internal/api"
	"github.com/axora/taskdeck/internal/keys"
	"github.com/axora/taskdeck/internal/model"
	"github.com/axora/taskdeck/internal/store"
	"github.com/axora/taskdeck/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// TaskLoadedMsg carries the loaded task and its comments.
type TaskLoadedMsg struct {
	Task     *model.Task
	Comments []model.Comment
	// Stale is true when the task came from the local cache.
	Stale bool
	Err   error
}

// StatusChangedMsg reports the outcome of a status transition.
type StatusChangedMsg struct {
	Task *model.Task
	Err  error
}

// CommentAddedMsg reports the outcome of posting a comment.
type CommentAddedMsg struct {
	Comment *model.Comment
	Err     error
}

// formBindings holds the values the huh forms write into. Kept
// behind a pointer so form updates survive model copies.
type formBindings struct {
	status string
	body   string
}

type detailMode int

const (
	modeView detailMode = iota
	modeTransition
	modeComment
)

// Model is the task detail view component.
type Model struct {
	mode     detailMode
	task     *model.Task
	comments []model.Comment
	viewport viewport.Model
	client   *api.Client
	cache    store.Cache
	keys     *keys.KeyMap
	form     *huh.Form
	fb       *formBindings
	stale    bool
	loading  bool
	width    int
	height   int
}

// New creates a new detail view model.
func New(client *api.Client, cache store.Cache, k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		fb:       &formBindings{},
		client:   client,
		cache:    cache,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Load returns a command that fetches the task and its comments,
// falling back to the cached task when the server is unreachable.
func (m *Model) Load(taskID int64) tea.Cmd {
	m.loading = true
	m.mode = modeView
	client := m.client
	cache := m.cache
	return func() tea.Msg {
		ctx := context.Background()
		task, err := client.Task(ctx, taskID)
		if err != nil {
			if api.IsAuthError(err) || cache == nil {
				return TaskLoadedMsg{Err: err}
			}
			cached, cerr := cache.GetTaskByID(ctx, taskID)
			if cerr != nil || cached == nil {
				return TaskLoadedMsg{Err: err}
			}
			return TaskLoadedMsg{Task: cached, Stale: true, Err: err}
		}
		// Comments are best effort: the detail is still useful
		// without them.
		comments, _ := client.Comments(ctx, taskID)
		return TaskLoadedMsg{Task: task, Comments: comments}
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TaskLoadedMsg:
		m.loading = false
		if msg.Task != nil {
			m.task = msg.Task
			m.comments = msg.Comments
			m.stale = msg.Stale
			m.viewport.SetContent(m.renderContent())
			m.viewport.GotoTop()
		}
		return m, nil

	case StatusChangedMsg:
		if msg.Err == nil && msg.Task != nil {
			m.task = msg.Task
			m.viewport.SetContent(m.renderContent())
		}
		m.mode = modeView
		return m, nil

	case CommentAddedMsg:
		if msg.Err == nil && msg.Comment != nil {
			m.comments = append(m.comments, *msg.Comment)
			m.viewport.SetContent(m.renderContent())
		}
		m.mode = modeView
		return m, nil
	}

	switch m.mode {
	case modeTransition, modeComment:
		return m.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleKeys processes key input in view mode.
func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return BackMsg{} }

	case key.Matches(msg, m.keys.Transition):
		if m.task == nil || m.stale {
			return m, nil
		}
		return m.openTransitionForm()

	case key.Matches(msg, m.keys.Comment):
		if m.task == nil || m.stale {
			return m, nil
		}
		return m.openCommentForm()
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// openTransitionForm shows a status picker for the current task.
func (m Model) openTransitionForm() (Model, tea.Cmd) {
	m.fb.status = string(m.task.Status)
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Status").
				Options(
					huh.NewOption("To do", string(model.StatusTodo)),
					huh.NewOption("In progress", string(model.StatusInProgress)),
					huh.NewOption("Done", string(model.StatusDone)),
				).
				Value(&m.fb.status),
		),
	).WithWidth(min(m.width-4, 50))
	m.mode = modeTransition
	return m, m.form.Init()
}

// openCommentForm shows a text input for a new comment.
func (m Model) openCommentForm() (Model, tea.Cmd) {
	m.fb.body = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Comment").
				CharLimit(2000).
				Value(&m.fb.body),
		),
	).WithWidth(min(m.width-4, 70))
	m.mode = modeComment
	return m, m.form.Init()
}

// updateForm drives the active huh form and fires the API call on
// completion.
func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
		m.mode = modeView
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	mode := m.mode
	m.mode = modeView
	m.form = nil

	switch mode {
	case modeTransition:
		return m, m.changeStatus(model.TaskStatus(m.fb.status))
	case modeComment:
		body := strings.TrimSpace(m.fb.body)
		if body == "" {
			return m, nil
		}
		return m, m.postComment(body)
	}
	return m, nil
}

// changeStatus returns a command that updates the task status on the
// server.
func (m Model) changeStatus(status model.TaskStatus) tea.Cmd {
	if m.task.Status == status {
		return nil
	}
	client := m.client
	cache := m.cache
	id := m.task.ID
	return func() tea.Msg {
		ctx := context.Background()
		task, err := client.UpdateTaskStatus(ctx, id, status)
		if err != nil {
			return StatusChangedMsg{Err: err}
		}
		if cache != nil && task != nil {
			_ = cache.UpsertTasks(ctx, []model.Task{*task})
		}
		return StatusChangedMsg{Task: task}
	}
}

// postComment returns a command that posts a comment to the server.
func (m Model) postComment(body string) tea.Cmd {
	client := m.client
	id := m.task.ID
	return func() tea.Msg {
		comment, err := client.AddComment(context.Background(), id, body)
		if err != nil {
			return CommentAddedMsg{Err: err}
		}
		return CommentAddedMsg{Comment: comment}
	}
}

// View renders the detail view.
func (m Model) View() string {
	if m.loading {
		return m.centered("Loading task...")
	}
	if m.task == nil {
		return m.centered("No task selected")
	}

	if m.mode != modeView && m.form != nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.viewport.View(),
			theme.DetailPanelStyle.Render(m.form.View()),
		)
	}

	return m.viewport.View()
}

// centered renders a single gray message centered in the view.
func (m Model) centered(text string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(text)
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	task := m.task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(task.Title))

	statusBadge := theme.StatusStyle(task.Status).Render(string(task.Status))
	priBadge := theme.PriorityStyle(task.Priority).Render(string(task.Priority))
	badgeLine := lipgloss.JoinHorizontal(lipgloss.Top, statusBadge, "  ", priBadge)
	if m.stale {
		badgeLine = lipgloss.JoinHorizontal(
			lipgloss.Top, badgeLine, "  ",
			theme.DimStyle.Render("(cached)"),
		)
	}
	sections = append(sections, badgeLine, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	if task.AssignedUser != nil {
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			metaStyle.Render("Assignee:"),
			valStyle.Render(task.AssignedUser.Name),
		))
	}
	if task.CreatedBy != nil {
		sections = append(sections, fmt.Sprintf(
			"%s   %s",
			metaStyle.Render("Creator:"),
			valStyle.Render(task.CreatedBy.Name),
		))
	}
	if task.Category != nil {
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			metaStyle.Render("Category:"),
			valStyle.Render(task.Category.Name),
		))
	}
	if task.DueDate != nil {
		due := task.DueDate.Format("2006-01-02")
		sections = append(sections, fmt.Sprintf(
			"%s       %s",
			metaStyle.Render("Due:"),
			valStyle.Render(due),
		))
	}
	if !task.CreatedAt.IsZero() {
		sections = append(sections, fmt.Sprintf(
			"%s   %s",
			metaStyle.Render("Created:"),
			valStyle.Render(task.CreatedAt.Format("2006-01-02 15:04")),
		))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", min(m.width-4, 80)))
	sections = append(sections, "", separator, "")

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, headerStyle.Render("Description"))

	desc := task.Description
	if desc == "" {
		desc = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, desc)

	sections = append(sections, "", separator, "")
	sections = append(sections, headerStyle.Render(
		fmt.Sprintf("Comments (%d)", len(m.comments)),
	))
	if len(m.comments) == 0 {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No comments"))
	}
	for _, c := range m.comments {
		author := c.Author.Name
		when := c.CreatedAt.Format("2006-01-02 15:04")
		sections = append(sections, "")
		sections = append(sections, fmt.Sprintf(
			"%s %s",
			lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Render(author),
			metaStyle.Render(when),
		))
		sections = append(sections, c.Content)
	}

	return strings.Join(sections, "\n")
}

// Task returns the currently shown task, or nil.
func (m Model) Task() *model.Task {
	return m.task
}

// SetSize updates the viewport dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.task != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
