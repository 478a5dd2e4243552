package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/axora/taskdeck/internal/model"
)

// SQLiteCache implements Cache using a local SQLite database.
type SQLiteCache struct {
	db *sqlx.DB
}

// NewSQLiteCache opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	c := &SQLiteCache{db: db}
	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the underlying database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (c *SQLiteCache) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := c.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = c.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := c.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// taskRow is the flattened task shape stored in the cache. Nested
// category/assignee records collapse to display names; the server
// remains the source for the full objects.
type taskRow struct {
	ID           int64      `db:"id"`
	Title        string     `db:"title"`
	Description  string     `db:"description"`
	Status       string     `db:"status"`
	Priority     string     `db:"priority"`
	CategoryName string     `db:"category_name"`
	AssigneeName string     `db:"assignee_name"`
	DueDate      *time.Time `db:"due_date"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	FetchedAt    time.Time  `db:"fetched_at"`
}

func (r taskRow) toModel() model.Task {
	t := model.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      model.TaskStatus(r.Status),
		Priority:    model.TaskPriority(r.Priority),
		DueDate:     r.DueDate,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.CategoryName != "" {
		t.Category = &model.Category{Name: r.CategoryName}
	}
	if r.AssigneeName != "" {
		t.AssignedUser = &model.UserSummary{Name: r.AssigneeName}
	}
	return t
}

// UpsertTasks inserts or replaces a batch of tasks.
func (c *SQLiteCache) UpsertTasks(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO tasks (
			id, title, description, status, priority,
			category_name, assignee_name,
			due_date, created_at, updated_at, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, t := range tasks {
		var categoryName, assigneeName string
		if t.Category != nil {
			categoryName = t.Category.Name
		}
		if t.AssignedUser != nil {
			assigneeName = t.AssignedUser.Name
		}

		_, err := stmt.ExecContext(ctx,
			t.ID, t.Title, t.Description, string(t.Status), string(t.Priority),
			categoryName, assigneeName,
			t.DueDate, t.CreatedAt, t.UpdatedAt, now,
		)
		if err != nil {
			return fmt.Errorf("upserting task %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing task upsert: %w", err)
	}
	return nil
}

// GetTasks returns cached tasks, most recently updated first.
func (c *SQLiteCache) GetTasks(ctx context.Context, limit int) ([]model.Task, error) {
	if limit <= 0 {
		limit = 200
	}

	var rows []taskRow
	err := c.db.SelectContext(ctx, &rows,
		"SELECT * FROM tasks ORDER BY updated_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying cached tasks: %w", err)
	}

	tasks := make([]model.Task, len(rows))
	for i, r := range rows {
		tasks[i] = r.toModel()
	}
	return tasks, nil
}

// GetTaskByID returns a single cached task, or nil when absent.
func (c *SQLiteCache) GetTaskByID(ctx context.Context, id int64) (*model.Task, error) {
	var row taskRow
	err := c.db.GetContext(ctx, &row, "SELECT * FROM tasks WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying cached task %d: %w", id, err)
	}

	t := row.toModel()
	return &t, nil
}

// UpsertNotifications inserts or replaces a batch of notifications.
func (c *SQLiteCache) UpsertNotifications(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO notifications (
			id, title, message, type, task_id, read, created_at, read_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, n := range notifications {
		_, err := stmt.ExecContext(ctx,
			n.ID, n.Title, n.Message, string(n.Type),
			n.TaskID, n.Read, n.CreatedAt, n.ReadAt,
		)
		if err != nil {
			return fmt.Errorf("upserting notification %d: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing notification upsert: %w", err)
	}
	return nil
}

// GetNotifications returns cached notification history, newest first.
func (c *SQLiteCache) GetNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 100
	}

	var notifications []model.Notification
	err := c.db.SelectContext(ctx, &notifications,
		`SELECT id, title, message, type, task_id, read, created_at, read_at
		 FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cached notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead records the read transition in the cache.
func (c *SQLiteCache) MarkNotificationRead(ctx context.Context, id int64) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1, read_at = ?
		 WHERE id = ? AND read = 0`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("marking cached notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllNotificationsRead records the bulk read transition.
func (c *SQLiteCache) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1, read_at = ? WHERE read = 0",
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("marking cached notifications read: %w", err)
	}
	return nil
}

// ClearAll wipes all cached rows.
func (c *SQLiteCache) ClearAll(ctx context.Context) error {
	for _, table := range []string{"tasks", "notifications"} {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}
