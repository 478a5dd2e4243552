package notifcenter

import (
	"testing"

	"github.com/axora/taskdeck/internal/model"
)

func TestWindowBounds(t *testing.T) {
	tests := []struct {
		name      string
		selected  int
		total     int
		visible   int
		wantStart int
		wantEnd   int
	}{
		{"fits entirely", 3, 5, 10, 0, 5},
		{"selection at top", 0, 20, 5, 0, 5},
		{"selection centered", 10, 20, 5, 8, 13},
		{"selection at bottom", 19, 20, 5, 15, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := windowBounds(tt.selected, tt.total, tt.visible)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("windowBounds(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.selected, tt.total, tt.visible, start, end, tt.wantStart, tt.wantEnd)
			}
			if start <= tt.selected && tt.selected < end {
				return
			}
			t.Errorf("selection %d not inside window [%d, %d)", tt.selected, start, end)
		})
	}
}

func TestTypeLabel(t *testing.T) {
	if got := typeLabel(model.NotificationTaskAssigned); got != "ASSIGNED" {
		t.Errorf("typeLabel = %q", got)
	}
	if got := typeLabel(model.NotificationType("SOMETHING_NEW")); got != "SOMETHING_NEW" {
		t.Errorf("unknown types pass through, got %q", got)
	}
}
