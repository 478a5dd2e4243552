package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/axora/taskdeck/internal/api"
	"github.com/axora/taskdeck/internal/model"
	"github.com/axora/taskdeck/internal/notify"
)

// notifyEventMsg wraps a manager event for the Bubble Tea loop.
type notifyEventMsg struct {
	event notify.Event
}

// notificationsSyncedMsg reports the outcome of a notification
// refresh from the gateway.
type notificationsSyncedMsg struct {
	stale bool
	err   error
}

// logoutDoneMsg is sent when local session state has been wiped.
type logoutDoneMsg struct{}

// ExternalNotificationMsg is sent from outside the Bubble Tea loop
// (the mail digest) when a notification was added to the store
// directly, so the badge and dropdown re-render.
type ExternalNotificationMsg struct{}

// waitForEvent returns a tea.Cmd that blocks on the manager's event
// channel. It must be re-issued after each notifyEventMsg to keep the
// stream flowing.
func (m Model) waitForEvent() tea.Cmd {
	events := m.manager.Events()
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return notifyEventMsg{event: e}
	}
}

// handleNotifyEvent reacts to a websocket event: new notifications
// update the dropdown and raise a toast, state changes just update
// the header on the next render.
func (m Model) handleNotifyEvent(msg notifyEventMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.waitForEvent()}

	if msg.event.Kind == notify.EventNotification {
		m.notifView.Refresh()
		n := msg.event.Notification
		if m.cache != nil {
			cache := m.cache
			cmds = append(cmds, func() tea.Msg {
				_ = cache.UpsertNotifications(context.Background(), []model.Notification{n})
				return nil
			})
		}
		cmds = append(cmds, m.toastCmd(n.Title))
	}

	return m, tea.Batch(cmds...)
}

// syncNotifications returns a command that refreshes the notification
// list and unread count from the gateway, falling back to cached
// history when the server is unreachable.
func (m Model) syncNotifications() tea.Cmd {
	client := m.client
	cache := m.cache
	ns := m.notifyStore
	return func() tea.Msg {
		ctx := context.Background()
		list, err := client.Notifications(ctx)
		if err != nil {
			if api.IsAuthError(err) || cache == nil {
				return notificationsSyncedMsg{err: err}
			}
			cached, cerr := cache.GetNotifications(ctx, notificationHistoryLimit)
			if cerr != nil {
				return notificationsSyncedMsg{err: err}
			}
			ns.SetAll(cached)
			ns.SetUnreadCount(countUnread(cached))
			return notificationsSyncedMsg{stale: true, err: err}
		}

		ns.SetAll(list)
		count, cerr := client.UnreadCount(ctx)
		if cerr != nil {
			count = countUnread(list)
		}
		ns.SetUnreadCount(count)

		if cache != nil {
			_ = cache.UpsertNotifications(ctx, list)
		}
		return notificationsSyncedMsg{}
	}
}

// notificationHistoryLimit bounds the cached history loaded on
// offline startup.
const notificationHistoryLimit = 100

// countUnread counts the unread entries in a notification list.
func countUnread(list []model.Notification) int {
	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n
}
