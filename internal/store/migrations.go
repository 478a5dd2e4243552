package store

// migration is a single versioned schema change. Migrations run in
// order inside NewSQLiteCache; each records its version in
// schema_version so reruns are no-ops.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY
			);

			CREATE TABLE IF NOT EXISTS tasks (
				id INTEGER PRIMARY KEY,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				priority TEXT NOT NULL,
				category_name TEXT NOT NULL DEFAULT '',
				assignee_name TEXT NOT NULL DEFAULT '',
				due_date TIMESTAMP,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				fetched_at TIMESTAMP NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_tasks_updated_at
				ON tasks(updated_at DESC);

			CREATE TABLE IF NOT EXISTS notifications (
				id INTEGER PRIMARY KEY,
				title TEXT NOT NULL DEFAULT '',
				message TEXT NOT NULL DEFAULT '',
				type TEXT NOT NULL,
				task_id INTEGER NOT NULL,
				read INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL,
				read_at TIMESTAMP
			);

			CREATE INDEX IF NOT EXISTS idx_notifications_created_at
				ON notifications(created_at DESC);

			INSERT INTO schema_version (version) VALUES (1);
		`,
	},
}
