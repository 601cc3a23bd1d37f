package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reprodlocal/reprod/internal/types"
)

// CompletedSentinel is the position and duration written when a video is
// marked complete before any progress was recorded, i.e. 100 of 100.
const CompletedSentinel = 100.0

const progressColumns = `p.id, p.video_id, p.position, p.duration, p.completed, p.last_watched, p.watch_count`

// GetProgress returns the progress row of a video, or nil if none exists.
func (db *DB) GetProgress(ctx context.Context, videoID string) (*types.VideoProgress, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.getProgress(ctx, videoID)
}

func (db *DB) getProgress(ctx context.Context, videoID string) (*types.VideoProgress, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+progressColumns+" FROM video_progress p WHERE p.video_id = ?", videoID)
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress for video %s: %w", videoID, err)
	}
	return p, nil
}

// UpsertProgress stores p as the progress row of p.VideoID.
//
// The natural key is the video id: an existing row for the video is updated
// in place (keeping its id), otherwise p is inserted. p.ID is set to the id
// of the stored row.
func (db *DB) UpsertProgress(ctx context.Context, p *types.VideoProgress) error {
	stored, err := db.ModifyProgress(ctx, p.VideoID, func(cur *types.VideoProgress, exists bool) error {
		id := cur.ID
		*cur = *p
		if exists || cur.ID == "" {
			cur.ID = id
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.ID = stored.ID
	return nil
}

// ModifyProgress runs a read-modify-write on the progress row of a video
// while holding the store lock.
//
// mutate receives the current row (a fresh one with a new id when none
// exists) and whether it was found. The result is written back and
// returned. A missing video yields ErrNotFound.
func (db *DB) ModifyProgress(
	ctx context.Context,
	videoID string,
	mutate func(p *types.VideoProgress, exists bool) error,
) (*types.VideoProgress, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, fmt.Errorf("video id is required: %w", types.ErrInvalidInput)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	cur, err := db.getProgress(ctx, videoID)
	if err != nil {
		return nil, err
	}

	exists := cur != nil
	if !exists {
		var found int
		err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos WHERE id = ?", videoID).Scan(&found)
		if err != nil {
			return nil, fmt.Errorf("failed to look up video %s: %w", videoID, err)
		}
		if found == 0 {
			return nil, fmt.Errorf("video %s: %w", videoID, types.ErrNotFound)
		}
		cur = &types.VideoProgress{
			ID:          uuid.NewString(),
			VideoID:     videoID,
			LastWatched: time.Now(),
			WatchCount:  1,
		}
	}

	if err := mutate(cur, exists); err != nil {
		return nil, err
	}
	cur.VideoID = videoID
	if err := cur.Validate(); err != nil {
		return nil, fmt.Errorf("invalid progress: %w: %w", types.ErrInvalidInput, err)
	}

	if exists {
		_, err = db.conn.ExecContext(ctx, `
			UPDATE video_progress SET
				position = ?,
				duration = ?,
				completed = ?,
				last_watched = ?,
				watch_count = ?
			WHERE video_id = ?
		`,
			cur.CurrentTime,
			cur.Duration,
			boolToInt(cur.Completed),
			formatTime(cur.LastWatched),
			cur.WatchCount,
			videoID,
		)
	} else {
		_, err = db.conn.ExecContext(ctx, `
			INSERT INTO video_progress (id, video_id, position, duration, completed, last_watched, watch_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			cur.ID,
			videoID,
			cur.CurrentTime,
			cur.Duration,
			boolToInt(cur.Completed),
			formatTime(cur.LastWatched),
			cur.WatchCount,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save progress for video %s: %w", videoID, classify(err))
	}

	return cur, nil
}

// MarkCompleted sets the completed flag of a video's progress row and
// refreshes last_watched. Without a row, one is created at 100% when
// completing and at zero otherwise.
func (db *DB) MarkCompleted(ctx context.Context, videoID string, completed bool) (*types.VideoProgress, error) {
	return db.ModifyProgress(ctx, videoID, func(p *types.VideoProgress, exists bool) error {
		if !exists {
			if completed {
				p.CurrentTime = CompletedSentinel
				p.Duration = CompletedSentinel
			} else {
				p.CurrentTime = 0
				p.Duration = 0
			}
		}
		p.Completed = completed
		p.LastWatched = time.Now()
		return nil
	})
}

// RecentVideos returns incomplete videos with progress, most recently
// watched first.
func (db *DB) RecentVideos(ctx context.Context, limit int) ([]types.VideoWithProgress, error) {
	if limit <= 0 {
		limit = 10
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+videoColumns+`, `+progressColumns+`
		FROM videos v
		JOIN video_progress p ON p.video_id = v.id
		WHERE p.completed = 0
		ORDER BY p.last_watched DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent videos: %w", err)
	}
	defer rows.Close()

	return scanVideosWithProgress(rows)
}

// CompletedVideos returns videos marked complete, optionally limited to one
// course, in course, module and video order.
func (db *DB) CompletedVideos(ctx context.Context, courseID string) ([]types.VideoWithProgress, error) {
	return db.videosByCompletion(ctx, courseID, "p.completed = 1", "JOIN")
}

// IncompleteVideos returns videos that are not complete, including videos
// with no progress row, optionally limited to one course.
func (db *DB) IncompleteVideos(ctx context.Context, courseID string) ([]types.VideoWithProgress, error) {
	return db.videosByCompletion(ctx, courseID, "(p.id IS NULL OR p.completed = 0)", "LEFT JOIN")
}

func (db *DB) videosByCompletion(ctx context.Context, courseID, cond, join string) ([]types.VideoWithProgress, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	query := `
		SELECT ` + videoColumns + `, ` + progressColumns + `
		FROM videos v
		JOIN modules m ON m.id = v.module_id
		JOIN courses c ON c.id = v.course_id
		` + join + ` video_progress p ON p.video_id = v.id
		WHERE ` + cond
	var args []any
	if courseID != "" {
		query += " AND v.course_id = ?"
		args = append(args, courseID)
	}
	query += " ORDER BY c.name ASC, m.order_index ASC, v.order_index ASC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	return scanVideosWithProgress(rows)
}

// CourseStats returns total, completed and in-progress video counts for a
// course. In-progress means a progress row that is not complete and has a
// position greater than zero.
func (db *DB) CourseStats(ctx context.Context, courseID string) (types.CourseStats, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stats := types.CourseStats{CourseID: courseID}

	var exists int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM courses WHERE id = ?", courseID).Scan(&exists); err != nil {
		return stats, fmt.Errorf("failed to look up course %s: %w", courseID, err)
	}
	if exists == 0 {
		return stats, fmt.Errorf("course %s: %w", courseID, types.ErrNotFound)
	}

	err := db.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(v.id),
			COALESCE(SUM(CASE WHEN p.completed = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN p.completed = 0 AND p.position > 0 THEN 1 ELSE 0 END), 0)
		FROM videos v
		LEFT JOIN video_progress p ON p.video_id = v.id
		WHERE v.course_id = ?
	`, courseID).Scan(&stats.Total, &stats.Completed, &stats.InProgress)
	if err != nil {
		return stats, fmt.Errorf("failed to compute stats for course %s: %w", courseID, err)
	}
	return stats, nil
}

// AllProgress returns every progress row keyed by video id.
func (db *DB) AllProgress(ctx context.Context) (map[string]types.VideoProgress, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, "SELECT "+progressColumns+" FROM video_progress p")
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	out := make(map[string]types.VideoProgress)
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		out[p.VideoID] = *p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress: %w", err)
	}
	return out, nil
}

func scanProgress(r rowScanner) (*types.VideoProgress, error) {
	var p types.VideoProgress
	var completed int
	var lastWatched string
	if err := r.Scan(&p.ID, &p.VideoID, &p.CurrentTime, &p.Duration, &completed, &lastWatched, &p.WatchCount); err != nil {
		return nil, err
	}
	p.Completed = completed != 0
	p.LastWatched = parseTime(lastWatched)
	return &p, nil
}

func scanVideosWithProgress(rows *sql.Rows) ([]types.VideoWithProgress, error) {
	var out []types.VideoWithProgress
	for rows.Next() {
		var v types.Video
		var duration sql.NullFloat64
		var size sql.NullInt64
		var pID, pVideoID, pLastWatched sql.NullString
		var pPosition, pDuration sql.NullFloat64
		var pCompleted, pWatchCount sql.NullInt64

		err := rows.Scan(
			&v.ID, &v.ModuleID, &v.CourseID, &v.Name, &v.Path, &duration, &size, &v.OrderIndex,
			&pID, &pVideoID, &pPosition, &pDuration, &pCompleted, &pLastWatched, &pWatchCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		v.Duration = nullFloatToPtr(duration)
		v.FileSize = nullIntToPtr(size)

		item := types.VideoWithProgress{Video: v}
		if pID.Valid {
			item.Progress = &types.VideoProgress{
				ID:          pID.String,
				VideoID:     pVideoID.String,
				CurrentTime: pPosition.Float64,
				Duration:    pDuration.Float64,
				Completed:   pCompleted.Int64 != 0,
				LastWatched: parseTime(pLastWatched.String),
				WatchCount:  int(pWatchCount.Int64),
			}
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating videos: %w", err)
	}
	return out, nil
}
