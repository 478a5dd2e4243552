package maildigest

import (
	"testing"
	"time"

	"github.com/axora/taskdeck/internal/model"
)

func TestParseNotification(t *testing.T) {
	date := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		msg      Message
		wantOK   bool
		wantType model.NotificationType
		wantTask int64
	}{
		{
			name: "assignment",
			msg: Message{
				UID:     7,
				Subject: "[Axora] Task assigned: Ship the release",
				Body:    "You were assigned Task #42 by Dana.\n",
				Date:    date,
			},
			wantOK:   true,
			wantType: model.NotificationTaskAssigned,
			wantTask: 42,
		},
		{
			name: "status change",
			msg: Message{
				UID:     8,
				Subject: "[Axora] Status changed: Ship the release",
				Body:    "Task #42 moved to IN_PROGRESS.",
			},
			wantOK:   true,
			wantType: model.NotificationTaskStatusChanged,
			wantTask: 42,
		},
		{
			name: "comment",
			msg: Message{
				UID:     9,
				Subject: "[Axora] New comment: Ship the release",
				Body:    "Dana commented on Task #42: looks good",
			},
			wantOK:   true,
			wantType: model.NotificationTaskCommented,
			wantTask: 42,
		},
		{
			name: "overdue",
			msg: Message{
				UID:     10,
				Subject: "[Axora] Task overdue: Ship the release",
				Body:    "Task #42 was due yesterday.",
			},
			wantOK:   true,
			wantType: model.NotificationTaskOverdue,
			wantTask: 42,
		},
		{
			name: "unrelated mail",
			msg: Message{
				Subject: "Lunch on Friday?",
				Body:    "Task #42 is also mentioned here.",
			},
			wantOK: false,
		},
		{
			name: "unknown category",
			msg: Message{
				Subject: "[Axora] Weekly summary",
				Body:    "Task #42 and friends.",
			},
			wantOK: false,
		},
		{
			name: "no task reference",
			msg: Message{
				Subject: "[Axora] Task assigned: Ship the release",
				Body:    "You have a new assignment.",
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := ParseNotification(tt.msg)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if n.Type != tt.wantType {
				t.Errorf("type = %q, want %q", n.Type, tt.wantType)
			}
			if n.TaskID != tt.wantTask {
				t.Errorf("taskID = %d, want %d", n.TaskID, tt.wantTask)
			}
			if n.ID >= 0 {
				t.Errorf("mail-derived id should be negative, got %d", n.ID)
			}
			if n.Read {
				t.Error("mail-derived notifications start unread")
			}
		})
	}
}

func TestParseNotificationTitleFromSubject(t *testing.T) {
	n, ok := ParseNotification(Message{
		UID:     3,
		Subject: "[Axora] Task assigned: Write docs",
		Body:    "You were assigned Task #7.",
	})
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if n.Title != "Write docs" {
		t.Errorf("title = %q, want %q", n.Title, "Write docs")
	}
	if n.Message != "You were assigned Task #7." {
		t.Errorf("message = %q", n.Message)
	}
}
