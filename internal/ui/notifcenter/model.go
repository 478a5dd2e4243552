// Package notifcenter renders the notification dropdown. It is a
// read-mostly view over the in-memory notification state: the badge
// count and row ordering always come from notify.Store, and mark-read
// actions go through the REST gateway before the local state and the
// offline cache are updated.
package notifcenter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/axora/taskdeck/internal/api"
	"github.com/axora/taskdeck/internal/keys"
	"github.com/axora/taskdeck/internal/model"
	"github.com/axora/taskdeck/internal/notify"
	"github.com/axora/taskdeck/internal/store"
	"github.com/axora/taskdeck/internal/theme"
)

// CloseMsg signals the parent to close the notification dropdown.
type CloseMsg struct{}

// OpenTaskMsg signals the parent to open the task a notification
// refers to.
type OpenTaskMsg struct {
	TaskID int64
}

// MarkedReadMsg reports the outcome of a single mark-read call.
type MarkedReadMsg struct {
	ID  int64
	Err error
}

// MarkedAllReadMsg reports the outcome of a mark-all-read call.
type MarkedAllReadMsg struct {
	Err error
}

// Model is the notification dropdown component.
type Model struct {
	notifications []model.Notification
	store         *notify.Store
	client        *api.Client
	cache         store.Cache
	keys          *keys.KeyMap
	selectedIdx   int
	width         int
	height        int
}

// New creates a new notification dropdown model.
func New(ns *notify.Store, client *api.Client, cache store.Cache, k *keys.KeyMap, width, height int) Model {
	return Model{
		store:  ns,
		client: client,
		cache:  cache,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Refresh re-reads the notification snapshot from the store. The
// parent calls this whenever a websocket payload lands or the store
// is refreshed from the gateway.
func (m *Model) Refresh() {
	m.notifications = m.store.All()
	if m.selectedIdx >= len(m.notifications) {
		m.selectedIdx = max(0, len(m.notifications)-1)
	}
}

// Update handles messages for the dropdown.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeys(msg)

	case MarkedReadMsg:
		if msg.Err == nil {
			m.store.MarkRead(msg.ID)
			m.Refresh()
		}
		return m, nil

	case MarkedAllReadMsg:
		if msg.Err == nil {
			m.store.MarkAllRead()
			m.Refresh()
		}
		return m, nil
	}

	return m, nil
}

// handleKeys processes key input for the dropdown.
func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Notifications):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if m.selectedIdx < len(m.notifications)-1 {
			m.selectedIdx++
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if m.selectedIdx >= len(m.notifications) {
			return m, nil
		}
		n := m.notifications[m.selectedIdx]
		cmds := []tea.Cmd{
			func() tea.Msg { return OpenTaskMsg{TaskID: n.TaskID} },
		}
		if !n.Read {
			cmds = append(cmds, m.markRead(n.ID))
		}
		return m, tea.Batch(cmds...)

	case key.Matches(msg, m.keys.MarkAllRead):
		return m, m.markAllRead()
	}

	return m, nil
}

// markRead returns a command that marks one notification read on the
// server. Local state is only updated after the call succeeds.
func (m Model) markRead(id int64) tea.Cmd {
	client := m.client
	cache := m.cache
	return func() tea.Msg {
		ctx := context.Background()
		if err := client.MarkNotificationRead(ctx, id); err != nil {
			return MarkedReadMsg{ID: id, Err: err}
		}
		if cache != nil {
			_ = cache.MarkNotificationRead(ctx, id)
		}
		return MarkedReadMsg{ID: id}
	}
}

// markAllRead returns a command that marks every notification read on
// the server.
func (m Model) markAllRead() tea.Cmd {
	client := m.client
	cache := m.cache
	return func() tea.Msg {
		ctx := context.Background()
		if err := client.MarkAllNotificationsRead(ctx); err != nil {
			return MarkedAllReadMsg{Err: err}
		}
		if cache != nil {
			_ = cache.MarkAllNotificationsRead(ctx)
		}
		return MarkedAllReadMsg{}
	}
}

// View renders the dropdown panel.
func (m Model) View() string {
	title := theme.HeaderStyle.Render(
		fmt.Sprintf("Notifications (%d unread)", m.store.UnreadCount()),
	)

	if len(m.notifications) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Padding(1, 2).
			Render("No notifications yet.")
		return lipgloss.JoinVertical(lipgloss.Left, title, empty)
	}

	visible := m.height - 4
	if visible < 1 {
		visible = 1
	}
	start, end := windowBounds(m.selectedIdx, len(m.notifications), visible)

	var rows []string
	for i := start; i < end; i++ {
		rows = append(rows, m.renderRow(m.notifications[i], i == m.selectedIdx))
	}

	hint := theme.HelpStyle.Render("enter open task · A mark all read · esc close")
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		strings.Join(rows, "\n"),
		hint,
	)
}

// renderRow draws one notification line.
func (m Model) renderRow(n model.Notification, selected bool) string {
	marker := " "
	if !n.Read {
		marker = "●"
	}

	badge := theme.NotificationTypeStyle(n.Type).Render(typeLabel(n.Type))
	age := theme.DimStyle.Render(relativeAge(n.CreatedAt))

	title := theme.Truncate(n.Title, m.width-30)

	line := fmt.Sprintf("%s %s %s %s", marker, badge, title, age)
	switch {
	case selected:
		return theme.SelectedItemStyle.Render("> " + line)
	case n.Read:
		return theme.ReadStyle.PaddingLeft(2).Render(line)
	default:
		return theme.UnreadStyle.PaddingLeft(2).Render(line)
	}
}

// windowBounds computes the scroll window so the selection stays
// visible.
func windowBounds(selected, total, visible int) (int, int) {
	if total <= visible {
		return 0, total
	}
	start := selected - visible/2
	if start < 0 {
		start = 0
	}
	if start+visible > total {
		start = total - visible
	}
	return start, start + visible
}

// typeLabel maps a notification type to a short badge label.
func typeLabel(t model.NotificationType) string {
	switch t {
	case model.NotificationTaskAssigned:
		return "ASSIGNED"
	case model.NotificationTaskStatusChanged:
		return "STATUS"
	case model.NotificationTaskCommented:
		return "COMMENT"
	case model.NotificationTaskOverdue:
		return "OVERDUE"
	default:
		return string(t)
	}
}

// relativeAge formats a timestamp relative to now.
func relativeAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// SetSize updates the dropdown dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
