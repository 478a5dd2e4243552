package notify

import (
	"testing"
	"time"

	"github.com/axora/taskdeck/internal/model"
)

func makeNotification(id int64) model.Notification {
	return model.Notification{
		ID:        id,
		Title:     "Task assigned",
		Message:   "You were assigned a task",
		Type:      model.NotificationTaskAssigned,
		TaskID:    100 + id,
		CreatedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestAddPrependsAndIncrements(t *testing.T) {
	s := NewStore()

	for i := int64(1); i <= 3; i++ {
		s.Add(makeNotification(i))
	}

	if got := s.UnreadCount(); got != 3 {
		t.Fatalf("UnreadCount = %d, want 3", got)
	}

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	// Newest first.
	for i, wantID := range []int64{3, 2, 1} {
		if all[i].ID != wantID {
			t.Errorf("all[%d].ID = %d, want %d", i, all[i].ID, wantID)
		}
	}
}

func TestAddIncrementsEvenWhenPayloadClaimsRead(t *testing.T) {
	s := NewStore()

	n := makeNotification(1)
	n.Read = true
	s.Add(n)

	// The push channel assumes arrivals are unread; the counter
	// tracks arrivals, not the payload's flag.
	if got := s.UnreadCount(); got != 1 {
		t.Fatalf("UnreadCount = %d, want 1", got)
	}
}

func TestAddDeduplicatesByID(t *testing.T) {
	s := NewStore()

	s.Add(makeNotification(1))
	updated := makeNotification(1)
	updated.Message = "updated body"
	s.Add(updated)

	if got := s.Len(); got != 1 {
		t.Fatalf("Len = %d, want 1 after duplicate push", got)
	}
	if got := s.UnreadCount(); got != 1 {
		t.Fatalf("UnreadCount = %d, want 1 after duplicate push", got)
	}
	if got := s.All()[0].Message; got != "updated body" {
		t.Fatalf("duplicate push did not replace entry, message = %q", got)
	}
}

func TestCounterIsAccumulatorOfOperations(t *testing.T) {
	s := NewStore()

	// setUnreadCount <- 5, then 2 adds, one markAsRead: 5+2-1.
	s.Add(makeNotification(1))
	s.SetUnreadCount(5)
	s.Add(makeNotification(2))
	s.Add(makeNotification(3))
	s.MarkRead(2)

	if got := s.UnreadCount(); got != 6 {
		t.Fatalf("UnreadCount = %d, want 6", got)
	}
}

func TestMarkAllReadThenAdd(t *testing.T) {
	s := NewStore()

	s.Add(makeNotification(1))
	s.Add(makeNotification(2))
	s.MarkAllRead()

	if got := s.UnreadCount(); got != 0 {
		t.Fatalf("UnreadCount after MarkAllRead = %d, want 0", got)
	}

	s.Add(makeNotification(3))

	if got := s.UnreadCount(); got != 1 {
		t.Fatalf("UnreadCount = %d, want 1", got)
	}

	unreadSeen := 0
	for _, n := range s.All() {
		if !n.Read {
			unreadSeen++
			if n.ID != 3 {
				t.Errorf("unread entry has ID %d, want 3", n.ID)
			}
		}
	}
	if unreadSeen != 1 {
		t.Fatalf("unread entries = %d, want exactly 1", unreadSeen)
	}
}

func TestMarkReadAbsentIDIsNoOp(t *testing.T) {
	s := NewStore()

	s.Add(makeNotification(1))
	before := s.All()

	s.MarkRead(999)

	if got := s.UnreadCount(); got != 1 {
		t.Fatalf("UnreadCount = %d, want 1", got)
	}
	after := s.All()
	if len(after) != len(before) || after[0] != before[0] {
		t.Fatal("MarkRead on absent id mutated the list")
	}
}

func TestMarkReadTwiceDoesNotUnderCount(t *testing.T) {
	s := NewStore()

	s.Add(makeNotification(1))
	s.Add(makeNotification(2))

	s.MarkRead(1)
	s.MarkRead(1)

	if got := s.UnreadCount(); got != 1 {
		t.Fatalf("UnreadCount = %d after double MarkRead, want 1", got)
	}
}

func TestMarkReadStampsReadAtOnce(t *testing.T) {
	s := NewStore()

	s.Add(makeNotification(1))
	s.MarkRead(1)

	first := s.All()[0].ReadAt
	if first == nil {
		t.Fatal("ReadAt not set on MarkRead")
	}

	s.MarkRead(1)
	if got := s.All()[0].ReadAt; got == nil || !got.Equal(*first) {
		t.Fatal("ReadAt changed on repeated MarkRead")
	}
}

func TestSetAllRoundTripPreservesOrder(t *testing.T) {
	s := NewStore()

	list := []model.Notification{
		makeNotification(7),
		makeNotification(3),
		makeNotification(9),
	}
	s.SetAll(list)

	got := s.All()
	if len(got) != len(list) {
		t.Fatalf("len = %d, want %d", len(got), len(list))
	}
	for i := range list {
		if got[i].ID != list[i].ID {
			t.Errorf("got[%d].ID = %d, want %d", i, got[i].ID, list[i].ID)
		}
	}
}

func TestSetAllDoesNotTouchCounter(t *testing.T) {
	s := NewStore()

	s.SetUnreadCount(4)
	s.SetAll([]model.Notification{makeNotification(1)})

	if got := s.UnreadCount(); got != 4 {
		t.Fatalf("UnreadCount = %d, want 4", got)
	}
}

func TestSetUnreadCountClampsNegative(t *testing.T) {
	s := NewStore()

	s.SetUnreadCount(-2)
	if got := s.UnreadCount(); got != 0 {
		t.Fatalf("UnreadCount = %d, want 0", got)
	}
}

func TestClear(t *testing.T) {
	s := NewStore()

	s.Add(makeNotification(1))
	s.SetUnreadCount(3)
	s.Clear()

	if s.Len() != 0 || s.UnreadCount() != 0 {
		t.Fatalf("Clear left Len=%d UnreadCount=%d", s.Len(), s.UnreadCount())
	}
}
