package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/reprodlocal/reprod/internal/types"
)

// LogActivity appends an entry to the activity log.
func (db *DB) LogActivity(ctx context.Context, a *types.ActivityLog) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid activity: %w: %w", types.ErrInvalidInput, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO activity_log (id, activity_type, entity_id, entity_type, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		a.ID,
		a.ActivityType,
		a.EntityID,
		a.EntityType,
		ptrToNullString(a.Details),
		formatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to log activity %s: %w", a.ActivityType, classify(err))
	}
	return nil
}

// RecentActivity returns the newest activity entries.
func (db *DB) RecentActivity(ctx context.Context, limit int) ([]types.ActivityLog, error) {
	return db.queryActivity(ctx, "", nil, limit)
}

// ActivityByType returns the newest entries of one activity type.
func (db *DB) ActivityByType(ctx context.Context, activityType string, limit int) ([]types.ActivityLog, error) {
	return db.queryActivity(ctx, "activity_type = ?", []any{activityType}, limit)
}

// ActivitySince returns entries created at or after since, newest first.
func (db *DB) ActivitySince(ctx context.Context, since time.Time, limit int) ([]types.ActivityLog, error) {
	return db.queryActivity(ctx, "created_at >= ?", []any{formatTime(since)}, limit)
}

func (db *DB) queryActivity(ctx context.Context, cond string, args []any, limit int) ([]types.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	query := "SELECT id, activity_type, entity_id, entity_type, details, created_at FROM activity_log"
	if cond != "" {
		query += " WHERE " + cond
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var out []types.ActivityLog
	for rows.Next() {
		var a types.ActivityLog
		var details sql.NullString
		var createdAt string
		if err := rows.Scan(&a.ID, &a.ActivityType, &a.EntityID, &a.EntityType, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Details = nullStringToPtr(details)
		a.CreatedAt = parseTime(createdAt)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}
	return out, nil
}
