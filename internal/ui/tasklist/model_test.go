package tasklist

import (
	"testing"

	"github.com/axora/taskdeck/internal/model"
)

func TestFilterCached(t *testing.T) {
	todo := model.StatusTodo
	high := model.PriorityHigh
	catID := int64(2)

	tasks := []model.Task{
		{ID: 1, Status: model.StatusTodo, Priority: model.PriorityHigh, Category: &model.Category{ID: 2}},
		{ID: 2, Status: model.StatusDone, Priority: model.PriorityHigh},
		{ID: 3, Status: model.StatusTodo, Priority: model.PriorityLow, Category: &model.Category{ID: 5}},
	}

	got := filterCached(tasks, model.TaskFilter{})
	if len(got) != 3 {
		t.Errorf("no filter: got %d tasks, want 3", len(got))
	}

	got = filterCached(tasks, model.TaskFilter{Status: &todo})
	if len(got) != 2 {
		t.Errorf("status filter: got %d tasks, want 2", len(got))
	}

	got = filterCached(tasks, model.TaskFilter{Status: &todo, Priority: &high})
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("status+priority filter: got %v", got)
	}

	got = filterCached(tasks, model.TaskFilter{CategoryID: &catID})
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("category filter: got %v", got)
	}
}

func TestToggleStatusFilter(t *testing.T) {
	var m Model

	m.toggleStatusFilter(model.StatusTodo)
	if m.filter.Status == nil || *m.filter.Status != model.StatusTodo {
		t.Fatalf("filter not applied: %+v", m.filter)
	}

	// Same status again clears it.
	m.toggleStatusFilter(model.StatusTodo)
	if m.filter.Status != nil {
		t.Errorf("filter not cleared: %+v", m.filter)
	}

	// A different status replaces the active one.
	m.toggleStatusFilter(model.StatusTodo)
	m.toggleStatusFilter(model.StatusDone)
	if m.filter.Status == nil || *m.filter.Status != model.StatusDone {
		t.Errorf("filter not replaced: %+v", m.filter)
	}
}
