package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reprodlocal/reprod/internal/types"
)

const noteColumns = `id, video_id, course_id, module_id, timestamp, title, content, note_type, created_at, updated_at`

// CreateNote inserts a note.
func (db *DB) CreateNote(ctx context.Context, n *types.UserNote) error {
	if n.NoteType == "" {
		n.NoteType = types.NoteGeneral
	}
	if err := n.Validate(); err != nil {
		return fmt.Errorf("invalid note: %w: %w", types.ErrInvalidInput, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		n.ID,
		ptrToNullString(n.VideoID),
		ptrToNullString(n.CourseID),
		ptrToNullString(n.ModuleID),
		ptrToNullFloat(n.Timestamp),
		n.Title,
		n.Content,
		n.NoteType,
		formatTime(n.CreatedAt),
		formatTime(n.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", classify(err))
	}
	return nil
}

// UpdateNote replaces the title and content of a note and bumps updated_at.
func (db *DB) UpdateNote(ctx context.Context, id, title, content string) (*types.UserNote, error) {
	if title == "" {
		return nil, fmt.Errorf("note title is required: %w", types.ErrInvalidInput)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.ExecContext(ctx,
		"UPDATE user_notes SET title = ?, content = ?, updated_at = ? WHERE id = ?",
		title, content, formatTime(time.Now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update note %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("note %s: %w", id, types.ErrNotFound)
	}
	return db.getNote(ctx, id)
}

// DeleteNote removes a note.
func (db *DB) DeleteNote(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.ExecContext(ctx, "DELETE FROM user_notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("note %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// GetNote returns a single note.
func (db *DB) GetNote(ctx context.Context, id string) (*types.UserNote, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.getNote(ctx, id)
}

func (db *DB) getNote(ctx context.Context, id string) (*types.UserNote, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM user_notes WHERE id = ?", id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note %s: %w", id, err)
	}
	return n, nil
}

// NotesByVideo returns the notes of a video ordered by timestamp, then
// creation time.
func (db *DB) NotesByVideo(ctx context.Context, videoID string) ([]types.UserNote, error) {
	return db.queryNotes(ctx, `
		SELECT `+noteColumns+` FROM user_notes
		WHERE video_id = ?
		ORDER BY timestamp ASC, created_at ASC
	`, videoID)
}

// NotesByCourse returns the notes attached to a course or to any of its
// modules and videos.
func (db *DB) NotesByCourse(ctx context.Context, courseID string) ([]types.UserNote, error) {
	return db.queryNotes(ctx, `
		SELECT `+noteColumns+` FROM user_notes
		WHERE course_id = ?
		   OR module_id IN (SELECT id FROM modules WHERE course_id = ?)
		   OR video_id IN (SELECT id FROM videos WHERE course_id = ?)
		ORDER BY timestamp ASC, created_at ASC
	`, courseID, courseID, courseID)
}

// AllNotes returns every note, most recently updated first.
func (db *DB) AllNotes(ctx context.Context) ([]types.UserNote, error) {
	return db.queryNotes(ctx, `
		SELECT `+noteColumns+` FROM user_notes
		ORDER BY updated_at DESC
	`)
}

func (db *DB) queryNotes(ctx context.Context, query string, args ...any) ([]types.UserNote, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []types.UserNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}

func scanNote(r rowScanner) (*types.UserNote, error) {
	var n types.UserNote
	var videoID, courseID, moduleID sql.NullString
	var timestamp sql.NullFloat64
	var createdAt, updatedAt string
	err := r.Scan(&n.ID, &videoID, &courseID, &moduleID, &timestamp,
		&n.Title, &n.Content, &n.NoteType, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	n.VideoID = nullStringToPtr(videoID)
	n.CourseID = nullStringToPtr(courseID)
	n.ModuleID = nullStringToPtr(moduleID)
	n.Timestamp = nullFloatToPtr(timestamp)
	n.CreatedAt = parseTime(createdAt)
	n.UpdatedAt = parseTime(updatedAt)
	return &n, nil
}
