package maildigest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/axora/taskdeck/internal/model"
)

// subjectPrefix marks notification emails from the task server.
const subjectPrefix = "[Axora]"

// taskRefPattern matches the task reference line in the email body,
// e.g. "Task #42".
var taskRefPattern = regexp.MustCompile(`(?i)task #(\d+)`)

// subjectKinds maps the subject line category to a notification type.
var subjectKinds = []struct {
	marker string
	typ    model.NotificationType
}{
	{"task assigned", model.NotificationTaskAssigned},
	{"status changed", model.NotificationTaskStatusChanged},
	{"new comment", model.NotificationTaskCommented},
	{"task overdue", model.NotificationTaskOverdue},
}

// ParseNotification turns a notification email into a notification
// entry. It returns false for mail that does not look like a server
// notification (wrong prefix, unknown category, or no task
// reference).
//
// Mail-derived entries get negative ids derived from the IMAP UID so
// they can never collide with server-issued notification ids.
func ParseNotification(msg Message) (model.Notification, bool) {
	subject := strings.TrimSpace(msg.Subject)
	if !strings.HasPrefix(subject, subjectPrefix) {
		return model.Notification{}, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(subject, subjectPrefix))

	var typ model.NotificationType
	var title string
	for _, k := range subjectKinds {
		if len(rest) < len(k.marker) {
			continue
		}
		if strings.EqualFold(rest[:len(k.marker)], k.marker) {
			typ = k.typ
			title = strings.TrimSpace(strings.TrimPrefix(rest[len(k.marker):], ":"))
			break
		}
	}
	if typ == "" {
		return model.Notification{}, false
	}

	ref := taskRefPattern.FindStringSubmatch(msg.Body)
	if ref == nil {
		return model.Notification{}, false
	}
	taskID, err := strconv.ParseInt(ref[1], 10, 64)
	if err != nil || taskID == 0 {
		return model.Notification{}, false
	}

	message := firstLine(msg.Body)
	if title == "" {
		title = message
	}

	return model.Notification{
		ID:        -int64(msg.UID),
		Title:     title,
		Message:   message,
		Type:      typ,
		TaskID:    taskID,
		CreatedAt: msg.Date,
	}, true
}

// firstLine returns the first non-empty line of the body, trimmed.
func firstLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
