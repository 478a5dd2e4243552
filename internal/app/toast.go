package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// toastDuration is how long a status-bar toast stays visible.
const toastDuration = 4 * time.Second

// showToastMsg asks the root model to display a toast.
type showToastMsg struct {
	text string
}

// toastExpiredMsg clears a toast once its timer fires. The sequence
// number keeps an old timer from clearing a newer toast.
type toastExpiredMsg struct {
	seq int
}

// showToast displays a toast immediately and schedules its expiry.
func (m Model) showToast(text string) (tea.Model, tea.Cmd) {
	m.toast = text
	m.toastSeq++
	seq := m.toastSeq
	return m, tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

// toastCmd returns a command that raises a toast from inside a batch,
// where the model cannot be mutated directly.
func (m Model) toastCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return showToastMsg{text: text}
	}
}
