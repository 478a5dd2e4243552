package app

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/axora/taskdeck/internal/api"
	"github.com/axora/taskdeck/internal/credential"
	"github.com/axora/taskdeck/internal/keys"
	"github.com/axora/taskdeck/internal/notify"
	"github.com/axora/taskdeck/internal/session"
	"github.com/axora/taskdeck/internal/store"
	"github.com/axora/taskdeck/internal/ui"
	"github.com/axora/taskdeck/internal/ui/detail"
	helpview "github.com/axora/taskdeck/internal/ui/help"
	loginview "github.com/axora/taskdeck/internal/ui/login"
	"github.com/axora/taskdeck/internal/ui/notifcenter"
	"github.com/axora/taskdeck/internal/ui/taskform"
	"github.com/axora/taskdeck/internal/ui/tasklist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewList
	ViewDetail
	ViewNotifications
	ViewTaskForm
	ViewHelp
)

// Model is the root Bubble Tea model that manages view routing,
// layout, the REST client, and the websocket notification manager.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	client       *api.Client
	cache        store.Cache
	notifyStore  *notify.Store
	manager      *notify.Manager
	session      session.Session
	creds        credential.Store
	keys         *keys.KeyMap
	logger       *slog.Logger

	taskList  tasklist.Model
	detail    detail.Model
	notifView notifcenter.Model
	taskForm  taskform.Model
	loginView loginview.Model
	helpView  helpview.Model

	ready    bool
	toast    string
	toastSeq int
}

// Options bundles the dependencies for the root model.
type Options struct {
	Client      *api.Client
	Cache       store.Cache
	Store       *notify.Store
	Manager     *notify.Manager
	Session     session.Session
	Credentials credential.Store
	Logger      *slog.Logger
}

// New creates a new root application model. When the session carries
// no token the app starts on the sign-in screen.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	view := ViewList
	if opts.Session.Token == "" {
		view = ViewLogin
	}

	return Model{
		currentView: view,
		client:      opts.Client,
		cache:       opts.Cache,
		notifyStore: opts.Store,
		manager:     opts.Manager,
		session:     opts.Session,
		creds:       opts.Credentials,
		keys:        k,
		logger:      logger,
		taskList:    tasklist.New(opts.Client, opts.Cache, k, 80, 24),
		detail:      detail.New(opts.Client, opts.Cache, k, 80, 24),
		notifView:   notifcenter.New(opts.Store, opts.Client, opts.Cache, k, 80, 24),
		loginView:   loginview.New(opts.Client, opts.Credentials, 80, 24),
		helpView:    helpview.New(k, 80, 24),
	}
}

// Init returns the initial commands. With a valid session it opens
// the notification stream and loads the task list; otherwise it
// starts the sign-in form.
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewLogin {
		return m.loginView.Init()
	}
	return m.startSession()
}

// startSession opens the websocket subscription for the current user
// and kicks off the initial loads.
func (m Model) startSession() tea.Cmd {
	m.manager.Start(m.session.UserID, m.session.Token)
	return tea.Batch(
		m.taskList.Init(),
		m.syncNotifications(),
		m.waitForEvent(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.taskList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.notifView.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.loginView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	// Terminal focus drives the connection: backgrounded terminals
	// do not hold a websocket open.
	case tea.FocusMsg:
		m.manager.SetForeground(true)
		return m, nil

	case tea.BlurMsg:
		m.manager.SetForeground(false)
		return m, nil

	case notifyEventMsg:
		return m.handleNotifyEvent(msg)

	case ExternalNotificationMsg:
		m.notifView.Refresh()
		return m, nil

	case notificationsSyncedMsg:
		m.notifView.Refresh()
		if msg.err != nil && msg.stale {
			return m.showToast("Offline: showing cached notifications")
		}
		return m, nil

	case showToastMsg:
		return m.showToast(msg.text)

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case loginview.DoneMsg:
		m.session = msg.Session
		m.currentView = ViewList
		return m, m.startSession()

	case logoutDoneMsg:
		m.loginView = loginview.New(m.client, m.creds, m.layout.ContentWidth(), m.layout.ContentHeight())
		m.currentView = ViewLogin
		return m, m.loginView.Init()

	case tasklist.SelectedTaskMsg:
		return m.openTask(msg.TaskID)

	case tasklist.TasksLoadedMsg:
		if api.IsAuthError(msg.Err) {
			return m.handleAuthError()
		}
		var cmd tea.Cmd
		m.taskList, cmd = m.taskList.Update(msg)
		if msg.Stale {
			return m, tea.Batch(cmd, m.toastCmd("Offline: showing cached tasks"))
		}
		return m, cmd

	case detail.BackMsg:
		m.currentView = ViewList
		return m, m.taskList.LoadTasks()

	case detail.StatusChangedMsg:
		if api.IsAuthError(msg.Err) {
			return m.handleAuthError()
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		if msg.Err != nil {
			return m, tea.Batch(cmd, m.toastCmd("Status change failed: "+msg.Err.Error()))
		}
		return m, cmd

	case detail.CommentAddedMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		if msg.Err != nil {
			return m, tea.Batch(cmd, m.toastCmd("Comment failed: "+msg.Err.Error()))
		}
		return m, cmd

	case notifcenter.CloseMsg:
		m.currentView = m.previousView
		return m, nil

	case notifcenter.OpenTaskMsg:
		return m.openTask(msg.TaskID)

	case notifcenter.MarkedReadMsg:
		var cmd tea.Cmd
		m.notifView, cmd = m.notifView.Update(msg)
		if msg.Err != nil {
			return m, tea.Batch(cmd, m.toastCmd("Mark read failed: "+msg.Err.Error()))
		}
		return m, cmd

	case notifcenter.MarkedAllReadMsg:
		var cmd tea.Cmd
		m.notifView, cmd = m.notifView.Update(msg)
		if msg.Err != nil {
			return m, tea.Batch(cmd, m.toastCmd("Mark all read failed: "+msg.Err.Error()))
		}
		return m, cmd

	case taskform.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case taskform.CreatedMsg:
		if msg.Err != nil {
			m.currentView = ViewList
			return m, m.toastCmd("Create failed: " + msg.Err.Error())
		}
		m.currentView = ViewList
		return m, tea.Batch(
			m.taskList.LoadTasks(),
			m.toastCmd("Task created"),
		)

	case tea.KeyMsg:
		if model, cmd, handled := m.handleGlobalKeys(msg); handled {
			return model, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKeys processes keys that work regardless of the active
// view. Returns handled=false when the key should fall through.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	// Text-entry views own the keyboard except for ctrl+c.
	typing := m.currentView == ViewLogin || m.currentView == ViewTaskForm
	if msg.String() == "ctrl+c" {
		m.manager.Stop()
		return m, tea.Quit, true
	}
	if typing {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewList {
			m.manager.Stop()
			return m, tea.Quit, true
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
		} else {
			m.previousView = m.currentView
			m.currentView = ViewHelp
		}
		return m, nil, true

	case key.Matches(msg, m.keys.Notifications):
		if m.currentView == ViewNotifications {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewNotifications
		m.notifView.Refresh()
		return m, nil, true

	case key.Matches(msg, m.keys.NewTask):
		if m.currentView == ViewList {
			m.previousView = m.currentView
			m.currentView = ViewTaskForm
			m.taskForm = taskform.New(m.client, m.layout.ContentWidth(), m.layout.ContentHeight())
			return m, m.taskForm.Init(), true
		}

	case key.Matches(msg, m.keys.Refresh):
		if m.currentView == ViewList {
			return m, tea.Batch(m.taskList.LoadTasks(), m.syncNotifications()), true
		}

	case key.Matches(msg, m.keys.Logout):
		return m, m.logout(), true
	}

	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewNotifications:
		m.notifView, cmd = m.notifView.Update(msg)
	case ViewTaskForm:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// openTask navigates to the detail view for the given task.
func (m Model) openTask(taskID int64) (tea.Model, tea.Cmd) {
	if taskID == 0 {
		return m, nil
	}
	m.previousView = ViewList
	m.currentView = ViewDetail
	return m, m.detail.Load(taskID)
}

// handleAuthError tears the session down and returns to sign-in.
func (m Model) handleAuthError() (tea.Model, tea.Cmd) {
	return m, tea.Batch(
		m.logout(),
		m.toastCmd("Session expired, sign in again"),
	)
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.currentView == ViewLogin {
		return m.loginView.View()
	}

	header := m.layout.RenderHeader(
		"Axora Tasks",
		m.notifyStore.UnreadCount(),
		m.connStatus(),
	)
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.toast)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.taskList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewNotifications:
		return m.notifView.View()
	case ViewTaskForm:
		return m.taskForm.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

// connStatus describes the websocket connection for the header.
func (m Model) connStatus() string {
	switch m.manager.State() {
	case notify.StateConnected:
		return "live"
	case notify.StateConnecting:
		return "connecting"
	case notify.StateError:
		return "reconnecting"
	default:
		return "offline"
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewDetail:
		return "esc back | t status | m comment | j/k scroll"
	case ViewNotifications:
		return "enter open | A mark all read | esc close"
	case ViewTaskForm:
		return "enter submit | esc cancel"
	case ViewHelp:
		return "? close help"
	default:
		return "q quit | ? help | n notifications | c new | r refresh | 1/2/3 filter"
	}
}

// logout closes the subscription and wipes all local state so the
// next user starts clean.
func (m *Model) logout() tea.Cmd {
	m.manager.Stop()
	m.notifyStore.Clear()
	m.client.SetToken("")
	m.session = session.Session{}
	creds := m.creds
	cache := m.cache
	logger := m.logger
	return func() tea.Msg {
		if err := session.Clear(creds); err != nil {
			logger.Warn("clear session", "error", err)
		}
		if cache != nil {
			if err := cache.ClearAll(context.Background()); err != nil {
				logger.Warn("clear cache", "error", err)
			}
		}
		return logoutDoneMsg{}
	}
}
