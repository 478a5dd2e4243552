// Package notify implements the real-time notification core: an
// in-memory store of notifications with an unread counter, and a
// connection manager that keeps one push subscription alive per
// signed-in user.
package notify

import (
	"sync"
	"time"

	"github.com/axora/taskdeck/internal/model"
)

// Store is the single source of truth for the in-memory notification
// list and unread counter. It is written by both the push channel and
// REST refreshes, and read by the presentation layer. All mutations
// are atomic under one mutex; no partial state is observable.
//
// The list is keyed by notification id: a pushed notification whose
// id is already present replaces the existing entry instead of
// duplicating it, so a push racing a REST refresh cannot inflate the
// list or the counter.
type Store struct {
	mu            sync.Mutex
	notifications []model.Notification
	unread        int
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Add upserts n into the list. A new id is prepended (newest first)
// and increments the unread counter by one, matching the push
// channel's assumption that pushed notifications arrive unread. An id
// already in the list replaces that entry in place and leaves the
// counter alone.
func (s *Store) Add(n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == n.ID {
			s.notifications[i] = n
			return
		}
	}

	s.notifications = append([]model.Notification{n}, s.notifications...)
	s.unread++
}

// SetAll replaces the entire list with a REST-fetched snapshot,
// preserving the given order. The unread counter is not touched;
// callers pair this with SetUnreadCount from the count endpoint.
func (s *Store) SetAll(list []model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = make([]model.Notification, len(list))
	copy(s.notifications, list)
}

// SetUnreadCount overwrites the counter with a server-authoritative
// value.
func (s *Store) SetUnreadCount(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if count < 0 {
		count = 0
	}
	s.unread = count
}

// MarkRead marks the notification with the given id read and
// decrements the unread counter. Absent ids and already-read entries
// are no-ops, so a stray double-click cannot drive the counter below
// the true count.
func (s *Store) MarkRead(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID != id {
			continue
		}
		if s.notifications[i].Read {
			return
		}
		now := time.Now()
		s.notifications[i].Read = true
		s.notifications[i].ReadAt = &now
		if s.unread > 0 {
			s.unread--
		}
		return
	}
}

// MarkAllRead marks every entry read and resets the counter to zero.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for i := range s.notifications {
		if !s.notifications[i].Read {
			s.notifications[i].Read = true
			s.notifications[i].ReadAt = &now
		}
	}
	s.unread = 0
}

// All returns a copy of the list in display order, newest first.
func (s *Store) All() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// UnreadCount returns the current unread counter.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Len returns the number of notifications currently loaded.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

// Clear drops all notifications and zeroes the counter. Called on
// logout.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = nil
	s.unread = 0
}
