package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/axora/taskdeck/internal/model"
)

// MyTasks fetches the tasks assigned to the signed-in user, optionally
// narrowed by filter.
func (c *Client) MyTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	path := "/api/tasks/my-tasks"
	if q := encodeTaskFilter(filter); q != "" {
		path = "/api/tasks/my-tasks/filter?" + q
	}

	var tasks []model.Task
	if err := c.get(ctx, path, &tasks); err != nil {
		return nil, fmt.Errorf("fetching tasks: %w", err)
	}
	return tasks, nil
}

// Task fetches a single task by id.
func (c *Client) Task(ctx context.Context, id int64) (*model.Task, error) {
	var task model.Task
	if err := c.get(ctx, fmt.Sprintf("/api/tasks/%d", id), &task); err != nil {
		return nil, fmt.Errorf("fetching task %d: %w", id, err)
	}
	return &task, nil
}

// CreateTask creates a new task.
func (c *Client) CreateTask(ctx context.Context, req model.CreateTaskRequest) (*model.Task, error) {
	var task model.Task
	if err := c.post(ctx, "/api/tasks", req, &task); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return &task, nil
}

// UpdateTaskStatus transitions a task to a new workflow state.
func (c *Client) UpdateTaskStatus(ctx context.Context, id int64, status model.TaskStatus) (*model.Task, error) {
	var task model.Task
	body := struct {
		Status model.TaskStatus `json:"status"`
	}{Status: status}

	if err := c.patch(ctx, fmt.Sprintf("/api/tasks/%d/status", id), body, &task); err != nil {
		return nil, fmt.Errorf("updating status of task %d: %w", id, err)
	}
	return &task, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	if err := c.delete(ctx, fmt.Sprintf("/api/tasks/%d", id)); err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	return nil
}

// Comments fetches the discussion thread of a task.
func (c *Client) Comments(ctx context.Context, taskID int64) ([]model.Comment, error) {
	var comments []model.Comment
	if err := c.get(ctx, fmt.Sprintf("/tasks/%d/comments", taskID), &comments); err != nil {
		return nil, fmt.Errorf("fetching comments for task %d: %w", taskID, err)
	}
	return comments, nil
}

// AddComment posts a comment on a task.
func (c *Client) AddComment(ctx context.Context, taskID int64, content string) (*model.Comment, error) {
	var comment model.Comment
	err := c.post(
		ctx,
		fmt.Sprintf("/tasks/%d/comments", taskID),
		model.CommentRequest{Content: content},
		&comment,
	)
	if err != nil {
		return nil, fmt.Errorf("commenting on task %d: %w", taskID, err)
	}
	return &comment, nil
}

// Categories fetches all task categories.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := c.get(ctx, "/api/categories", &categories); err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	return categories, nil
}

// Users fetches all user accounts (for the assignee picker).
func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.get(ctx, "/api/users", &users); err != nil {
		return nil, fmt.Errorf("fetching users: %w", err)
	}
	return users, nil
}

// encodeTaskFilter renders the non-nil filter fields as query
// parameters. An empty string means no filtering was requested.
func encodeTaskFilter(f model.TaskFilter) string {
	q := url.Values{}
	if f.Status != nil {
		q.Set("status", string(*f.Status))
	}
	if f.Priority != nil {
		q.Set("priority", string(*f.Priority))
	}
	if f.CategoryID != nil {
		q.Set("categoryId", fmt.Sprintf("%d", *f.CategoryID))
	}
	return q.Encode()
}
