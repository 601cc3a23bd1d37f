package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/reprodlocal/reprod/internal/types"
)

// CreateBookmark inserts a bookmark.
func (db *DB) CreateBookmark(ctx context.Context, b *types.VideoBookmark) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid bookmark: %w: %w", types.ErrInvalidInput, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO video_bookmarks (id, video_id, timestamp, title, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		b.ID,
		b.VideoID,
		b.Timestamp,
		b.Title,
		ptrToNullString(b.Description),
		formatTime(b.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create bookmark: %w", classify(err))
	}
	return nil
}

// DeleteBookmark removes a bookmark.
func (db *DB) DeleteBookmark(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.ExecContext(ctx, "DELETE FROM video_bookmarks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bookmark %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// BookmarksByVideo returns the bookmarks of a video ordered by timestamp.
func (db *DB) BookmarksByVideo(ctx context.Context, videoID string) ([]types.VideoBookmark, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, video_id, timestamp, title, description, created_at
		FROM video_bookmarks
		WHERE video_id = ?
		ORDER BY timestamp ASC
	`, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	return scanBookmarks(rows)
}

// AllBookmarks returns every bookmark grouped by video, then by timestamp.
func (db *DB) AllBookmarks(ctx context.Context) ([]types.VideoBookmark, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, video_id, timestamp, title, description, created_at
		FROM video_bookmarks
		ORDER BY video_id ASC, timestamp ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	return scanBookmarks(rows)
}

func scanBookmarks(rows *sql.Rows) ([]types.VideoBookmark, error) {
	var out []types.VideoBookmark
	for rows.Next() {
		var b types.VideoBookmark
		var description sql.NullString
		var createdAt string
		if err := rows.Scan(&b.ID, &b.VideoID, &b.Timestamp, &b.Title, &description, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		b.Description = nullStringToPtr(description)
		b.CreatedAt = parseTime(createdAt)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookmarks: %w", err)
	}
	return out, nil
}
