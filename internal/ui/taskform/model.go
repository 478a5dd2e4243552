package taskform

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/axora/taskdeck/internal/api"
	"github.com/axora/taskdeck/internal/model"
	"github.com/axora/taskdeck/internal/theme"
)

// CancelMsg signals the parent to close the form without saving.
type CancelMsg struct{}

// CreatedMsg reports the outcome of the create call.
type CreatedMsg struct {
	Task *model.Task
	Err  error
}

// optionsLoadedMsg carries the categories and users for the pickers.
type optionsLoadedMsg struct {
	categories []model.Category
	users      []model.User
	err        error
}

// formBindings holds the values the huh form writes into.
type formBindings struct {
	title       string
	description string
	priority    string
	categoryID  string
	assigneeID  string
	dueDate     string
}

// Model is the task creation form.
type Model struct {
	form      *huh.Form
	client    *api.Client
	fb        *formBindings
	loading   bool
	submitted bool
	loadErr   error
	width     int
	height    int
}

// New creates a new task form model.
func New(client *api.Client, width, height int) Model {
	return Model{
		client:  client,
		fb:      &formBindings{priority: string(model.PriorityMedium)},
		loading: true,
		width:   width,
		height:  height,
	}
}

// Init fetches the category and user options before building the form.
func (m Model) Init() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx := context.Background()
		categories, err := client.Categories(ctx)
		if err != nil {
			return optionsLoadedMsg{err: err}
		}
		// The user list is admin-only on some deployments; an
		// empty assignee picker is fine.
		users, _ := client.Users(ctx)
		return optionsLoadedMsg{categories: categories, users: users}
	}
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case optionsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.loadErr = msg.err
			return m, nil
		}
		m.form = m.buildForm(msg.categories, msg.users)
		return m, m.form.Init()

	case tea.KeyMsg:
		if msg.String() == "esc" {
			return m, func() tea.Msg { return CancelMsg{} }
		}
	}

	if m.form == nil || m.submitted {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.submitted = true
		return m, m.submit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// buildForm assembles the huh form from the fetched options.
func (m Model) buildForm(categories []model.Category, users []model.User) *huh.Form {
	categoryOpts := make([]huh.Option[string], 0, len(categories))
	for _, c := range categories {
		categoryOpts = append(categoryOpts,
			huh.NewOption(c.Name, strconv.FormatInt(c.ID, 10)))
	}

	assigneeOpts := []huh.Option[string]{huh.NewOption("Unassigned", "")}
	for _, u := range users {
		assigneeOpts = append(assigneeOpts,
			huh.NewOption(u.Name, strconv.FormatInt(u.ID, 10)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				CharLimit(200).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}).
				Value(&m.fb.title),
			huh.NewText().
				Title("Description").
				CharLimit(4000).
				Value(&m.fb.description),
			huh.NewSelect[string]().
				Title("Priority").
				Options(
					huh.NewOption("Low", string(model.PriorityLow)),
					huh.NewOption("Medium", string(model.PriorityMedium)),
					huh.NewOption("High", string(model.PriorityHigh)),
				).
				Value(&m.fb.priority),
			huh.NewSelect[string]().
				Title("Category").
				Options(categoryOpts...).
				Value(&m.fb.categoryID),
			huh.NewSelect[string]().
				Title("Assignee").
				Options(assigneeOpts...).
				Value(&m.fb.assigneeID),
			huh.NewInput().
				Title("Due date (YYYY-MM-DD, optional)").
				Validate(validateDueDate).
				Value(&m.fb.dueDate),
		),
	).WithWidth(min(m.width-4, 70))
}

// submit returns a command that creates the task on the server.
func (m Model) submit() tea.Cmd {
	client := m.client
	fb := *m.fb
	return func() tea.Msg {
		req := model.CreateTaskRequest{
			Title:       strings.TrimSpace(fb.title),
			Description: strings.TrimSpace(fb.description),
			Priority:    model.TaskPriority(fb.priority),
		}
		if fb.categoryID != "" {
			req.CategoryID, _ = strconv.ParseInt(fb.categoryID, 10, 64)
		}
		if fb.assigneeID != "" {
			req.AssignedUserID, _ = strconv.ParseInt(fb.assigneeID, 10, 64)
		}
		if fb.dueDate != "" {
			due, err := time.Parse("2006-01-02", fb.dueDate)
			if err == nil {
				req.DueDate = &due
			}
		}

		task, err := client.CreateTask(context.Background(), req)
		if err != nil {
			return CreatedMsg{Err: err}
		}
		return CreatedMsg{Task: task}
	}
}

// validateDueDate accepts an empty value or a YYYY-MM-DD date.
func validateDueDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("use YYYY-MM-DD")
	}
	return nil
}

// View renders the form.
func (m Model) View() string {
	header := theme.HeaderStyle.Render("New Task")

	var body string
	switch {
	case m.loading:
		body = theme.DimStyle.Padding(1, 2).Render("Loading options...")
	case m.loadErr != nil:
		body = lipgloss.NewStyle().
			Foreground(theme.ColorRed).
			Padding(1, 2).
			Render("Could not load categories: " + m.loadErr.Error())
	default:
		body = m.form.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
