package login

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/axora/taskdeck/internal/api"
	"github.com/axora/taskdeck/internal/credential"
	"github.com/axora/taskdeck/internal/session"
	"github.com/axora/taskdeck/internal/theme"
)

// DoneMsg is sent when sign-in succeeded and the session has been
// persisted.
type DoneMsg struct {
	Session session.Session
}

// failedMsg carries a sign-in error back into the form.
type failedMsg struct {
	err error
}

// formBindings holds the values the huh form writes into.
type formBindings struct {
	email    string
	password string
}

// Model is the sign-in screen.
type Model struct {
	form    *huh.Form
	client  *api.Client
	creds   credential.Store
	fb      *formBindings
	busy    bool
	lastErr error
	width   int
	height  int
}

// New creates a new login model.
func New(client *api.Client, creds credential.Store, width, height int) Model {
	m := Model{
		client: client,
		creds:  creds,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
	m.form = m.buildForm()
	return m
}

// buildForm assembles the sign-in form.
func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Validate(func(s string) error {
					if !strings.Contains(s, "@") {
						return fmt.Errorf("enter a valid email")
					}
					return nil
				}).
				Value(&m.fb.email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("password is required")
					}
					return nil
				}).
				Value(&m.fb.password),
		),
	).WithWidth(min(m.width-4, 50))
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the sign-in screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(failedMsg); ok {
		m.busy = false
		m.lastErr = msg.err
		m.form = m.buildForm()
		return m, m.form.Init()
	}

	if m.busy {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.busy = true
		return m, m.signIn()
	}
	return m, cmd
}

// signIn returns a command that authenticates against the server and
// persists the resulting session.
func (m Model) signIn() tea.Cmd {
	client := m.client
	creds := m.creds
	email := strings.TrimSpace(m.fb.email)
	password := m.fb.password
	return func() tea.Msg {
		resp, err := client.Login(context.Background(), email, password)
		if err != nil {
			return failedMsg{err: err}
		}
		s := session.New(resp.User, resp.Token)
		if err := session.Save(creds, s); err != nil {
			return failedMsg{err: fmt.Errorf("save session: %w", err)}
		}
		return DoneMsg{Session: s}
	}
}

// View renders the sign-in screen.
func (m Model) View() string {
	header := theme.HeaderStyle.Render("Sign in to Axora")

	var parts []string
	parts = append(parts, header, "")

	if m.lastErr != nil {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(theme.ColorRed).
			Padding(0, 1).
			Render("Sign-in failed: "+m.lastErr.Error()), "")
	}

	if m.busy {
		parts = append(parts, theme.DimStyle.Padding(0, 1).Render("Signing in..."))
	} else {
		parts = append(parts, m.form.View())
	}

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

// SetSize updates the screen dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
