package tasklist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/axora/taskdeck/internal/model"
	"github.com/axora/taskdeck/internal/theme"
)

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

// FilterValue returns the string used for fuzzy filtering.
func (i TaskItem) FilterValue() string { return i.Task.Title }

// Title returns the task title for the list.
func (i TaskItem) Title() string { return i.Task.Title }

// Description returns a short summary line for the list.
func (i TaskItem) Description() string {
	parts := []string{
		string(i.Task.Status),
		string(i.Task.Priority),
	}
	if i.Task.Category != nil {
		parts = append(parts, i.Task.Category.Name)
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering task rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single task line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}

	task := ti.Task
	isSelected := index == m.Index()

	glyph := statusGlyph(task.Status)
	priority := theme.PriorityStyle(task.Priority).Render(priorityGlyph(task.Priority))

	title := theme.Truncate(task.Title, m.Width()-16)

	var due string
	if task.DueDate != nil {
		due = relativeDue(*task.DueDate)
		if task.Overdue(time.Now()) {
			due = theme.OverdueStyle.Render(due)
		} else {
			due = theme.DimStyle.Render(due)
		}
	}

	line := fmt.Sprintf("%s %s %s %s", glyph, priority, title, due)
	if isSelected {
		line = theme.SelectedItemStyle.Render("> " + line)
	} else {
		line = lipgloss.NewStyle().PaddingLeft(2).Render(line)
	}

	fmt.Fprint(w, line)
}

// statusGlyph maps a task status to a one-rune marker.
func statusGlyph(s model.TaskStatus) string {
	switch s {
	case model.StatusDone:
		return theme.StatusStyle(s).Render("✓")
	case model.StatusInProgress:
		return theme.StatusStyle(s).Render("◐")
	default:
		return theme.StatusStyle(s).Render("○")
	}
}

// priorityGlyph maps a priority to a short marker.
func priorityGlyph(p model.TaskPriority) string {
	switch p {
	case model.PriorityHigh:
		return "!!"
	case model.PriorityMedium:
		return "! "
	default:
		return "  "
	}
}

// relativeDue formats a due date relative to now.
func relativeDue(t time.Time) string {
	d := time.Until(t)
	switch {
	case d < 0:
		days := int(-d.Hours() / 24)
		if days == 0 {
			return "due today"
		}
		return fmt.Sprintf("%dd overdue", days)
	case d < 24*time.Hour:
		return "due today"
	case d < 48*time.Hour:
		return "due tomorrow"
	default:
		return fmt.Sprintf("due in %dd", int(d.Hours()/24))
	}
}
