package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/axora/taskdeck/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content
// area, accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// RenderHeader renders the top header bar with the title, the unread
// notification badge, and the connection state.
func (l Layout) RenderHeader(title string, unread int, connState string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	right := connState
	rightRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(right)

	var badge string
	if unread > 0 {
		badge = theme.BadgeStyle.Render(fmt.Sprintf("● %d", unread))
	}

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(badge) -
		lipgloss.Width(rightRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		badge,
		filler,
		rightRendered,
	)
}

// RenderStatusBar renders the bottom status bar. A non-empty toast
// takes precedence over the keyboard hints.
func (l Layout) RenderStatusBar(hints string, toast string) string {
	var rendered string
	if toast != "" {
		rendered = theme.ToastStyle.Render(toast)
	} else {
		rendered = theme.StatusBarStyle.Render(hints)
	}

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
