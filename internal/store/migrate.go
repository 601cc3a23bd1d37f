package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the schema version this build writes.
const SchemaVersion = 2

// migration is one forward-only schema step.
type migration struct {
	version int
	name    string
	stmts   []string
}

// migrations lists every schema step in order. Steps are additive only.
var migrations = []migration{
	{
		version: 1,
		name:    "course hierarchy and progress",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS courses (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				path TEXT NOT NULL UNIQUE,
				created_at TEXT NOT NULL,
				last_accessed TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS modules (
				id TEXT PRIMARY KEY,
				course_id TEXT NOT NULL,
				name TEXT NOT NULL,
				path TEXT NOT NULL,
				order_index INTEGER NOT NULL,
				created_at TEXT NOT NULL,
				FOREIGN KEY (course_id) REFERENCES courses(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS videos (
				id TEXT PRIMARY KEY,
				module_id TEXT NOT NULL,
				course_id TEXT NOT NULL,
				name TEXT NOT NULL,
				path TEXT NOT NULL UNIQUE,
				duration REAL,
				order_index INTEGER NOT NULL,
				FOREIGN KEY (module_id) REFERENCES modules(id) ON DELETE CASCADE,
				FOREIGN KEY (course_id) REFERENCES courses(id) ON DELETE CASCADE
			)`,
			// position holds the playback offset in seconds; current_time is a
			// reserved word in SQLite.
			`CREATE TABLE IF NOT EXISTS video_progress (
				id TEXT PRIMARY KEY,
				video_id TEXT NOT NULL,
				position REAL NOT NULL DEFAULT 0,
				duration REAL NOT NULL DEFAULT 0,
				completed INTEGER NOT NULL DEFAULT 0,
				last_watched TEXT NOT NULL,
				FOREIGN KEY (video_id) REFERENCES videos(id) ON DELETE CASCADE
			)`,
		},
	},
	{
		version: 2,
		name:    "user data, watch counts and indexes",
		stmts: []string{
			`ALTER TABLE videos ADD COLUMN file_size INTEGER`,
			`ALTER TABLE video_progress ADD COLUMN watch_count INTEGER NOT NULL DEFAULT 1`,
			// Keep the newest row per video before enforcing uniqueness.
			`DELETE FROM video_progress WHERE rowid NOT IN (
				SELECT MAX(rowid) FROM video_progress GROUP BY video_id
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_video_progress_video_id ON video_progress(video_id)`,
			`CREATE TABLE IF NOT EXISTS user_notes (
				id TEXT PRIMARY KEY,
				video_id TEXT,
				course_id TEXT,
				module_id TEXT,
				timestamp REAL,
				title TEXT NOT NULL,
				content TEXT NOT NULL,
				note_type TEXT NOT NULL DEFAULT 'note',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				FOREIGN KEY (video_id) REFERENCES videos(id) ON DELETE CASCADE,
				FOREIGN KEY (course_id) REFERENCES courses(id) ON DELETE CASCADE,
				FOREIGN KEY (module_id) REFERENCES modules(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS video_bookmarks (
				id TEXT PRIMARY KEY,
				video_id TEXT NOT NULL,
				timestamp REAL NOT NULL,
				title TEXT NOT NULL,
				description TEXT,
				created_at TEXT NOT NULL,
				FOREIGN KEY (video_id) REFERENCES videos(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS user_settings (
				id TEXT PRIMARY KEY,
				setting_key TEXT NOT NULL UNIQUE,
				setting_value TEXT NOT NULL,
				setting_type TEXT NOT NULL DEFAULT 'string',
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS activity_log (
				id TEXT PRIMARY KEY,
				activity_type TEXT NOT NULL,
				entity_id TEXT NOT NULL,
				entity_type TEXT NOT NULL,
				details TEXT,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_modules_course_id ON modules(course_id)`,
			`CREATE INDEX IF NOT EXISTS idx_videos_module_id ON videos(module_id)`,
			`CREATE INDEX IF NOT EXISTS idx_videos_course_id ON videos(course_id)`,
			`CREATE INDEX IF NOT EXISTS idx_user_notes_video_id ON user_notes(video_id)`,
			`CREATE INDEX IF NOT EXISTS idx_user_notes_course_id ON user_notes(course_id)`,
			`CREATE INDEX IF NOT EXISTS idx_user_notes_timestamp ON user_notes(timestamp)`,
			`CREATE INDEX IF NOT EXISTS idx_video_bookmarks_video_id ON video_bookmarks(video_id)`,
			`CREATE INDEX IF NOT EXISTS idx_video_bookmarks_timestamp ON video_bookmarks(timestamp)`,
			`CREATE INDEX IF NOT EXISTS idx_activity_log_type ON activity_log(activity_type)`,
			`CREATE INDEX IF NOT EXISTS idx_activity_log_entity ON activity_log(entity_id, entity_type)`,
			`CREATE INDEX IF NOT EXISTS idx_activity_log_created ON activity_log(created_at)`,
		},
	},
}

// Migrate brings the schema up to SchemaVersion.
//
// A fresh database gets every step; an older one gets the steps after its
// stored version, each in its own transaction and stamped on commit. A
// database already at SchemaVersion is left untouched, so this is safe to
// call on every start.
func (db *DB) Migrate(ctx context.Context) error {
	return db.migrateTo(ctx, SchemaVersion)
}

// CurrentVersion returns the stored schema version, 0 for a fresh database.
func (db *DB) CurrentVersion(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.currentVersion(ctx)
}

func (db *DB) migrateTo(ctx context.Context, target int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := db.currentVersion(ctx)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current || m.version > target {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) currentVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := db.conn.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

func (db *DB) applyMigration(ctx context.Context, m migration) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	for _, stmt := range m.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("failed to stamp schema version %d: %w", m.version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
	}
	return nil
}
