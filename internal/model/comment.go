package model

import "time"

// Comment is a single entry in a task's discussion thread.
type Comment struct {
	ID        int64       `json:"id"`
	Content   string      `json:"content"`
	Author    UserSummary `json:"author"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// CommentRequest is the payload for posting a comment on a task.
type CommentRequest struct {
	Content string `json:"content"`
}
