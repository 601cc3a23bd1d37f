package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reprodlocal/reprod/internal/types"
)

// UpsertCourse inserts or replaces a course keyed by id.
func (db *DB) UpsertCourse(ctx context.Context, c *types.Course) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid course: %w: %w", types.ErrInvalidInput, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	query := `
	INSERT INTO courses (id, name, path, created_at, last_accessed)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		path = excluded.path,
		created_at = excluded.created_at,
		last_accessed = excluded.last_accessed
	`
	_, err := db.conn.ExecContext(ctx, query,
		c.ID,
		c.Name,
		c.Path,
		formatTime(c.CreatedAt),
		timeToNullString(c.LastAccessed),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert course %s: %w", c.Path, classify(err))
	}
	return nil
}

// UpsertModule inserts or replaces a module keyed by id.
func (db *DB) UpsertModule(ctx context.Context, m *types.Module) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid module: %w: %w", types.ErrInvalidInput, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	query := `
	INSERT INTO modules (id, course_id, name, path, order_index, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		course_id = excluded.course_id,
		name = excluded.name,
		path = excluded.path,
		order_index = excluded.order_index,
		created_at = excluded.created_at
	`
	_, err := db.conn.ExecContext(ctx, query,
		m.ID,
		m.CourseID,
		m.Name,
		m.Path,
		m.OrderIndex,
		formatTime(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert module %s: %w", m.Path, classify(err))
	}
	return nil
}

// UpsertVideo inserts or replaces a video keyed by id.
func (db *DB) UpsertVideo(ctx context.Context, v *types.Video) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("invalid video: %w: %w", types.ErrInvalidInput, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	query := `
	INSERT INTO videos (id, module_id, course_id, name, path, duration, file_size, order_index)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		module_id = excluded.module_id,
		course_id = excluded.course_id,
		name = excluded.name,
		path = excluded.path,
		duration = excluded.duration,
		file_size = excluded.file_size,
		order_index = excluded.order_index
	`
	_, err := db.conn.ExecContext(ctx, query,
		v.ID,
		v.ModuleID,
		v.CourseID,
		v.Name,
		v.Path,
		ptrToNullFloat(v.Duration),
		ptrToNullInt(v.FileSize),
		v.OrderIndex,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert video %s: %w", v.Path, classify(err))
	}
	return nil
}

const courseColumns = `id, name, path, created_at, last_accessed`

// AllCourses returns every course, most recently accessed first, then by name.
func (db *DB) AllCourses(ctx context.Context) ([]types.Course, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+courseColumns+`
		FROM courses
		ORDER BY last_accessed DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	return scanCourses(rows)
}

// CourseByID returns the course with the given id.
func (db *DB) CourseByID(ctx context.Context, id string) (*types.Course, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.courseWhere(ctx, "id = ?", id)
}

// CourseByPath returns the course rooted at path.
func (db *DB) CourseByPath(ctx context.Context, path string) (*types.Course, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.courseWhere(ctx, "path = ?", path)
}

func (db *DB) courseWhere(ctx context.Context, cond string, arg any) (*types.Course, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+courseColumns+" FROM courses WHERE "+cond, arg)

	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course %v: %w", arg, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course %v: %w", arg, err)
	}
	return c, nil
}

// UpdateCourseLastAccessed stamps the course as accessed now.
func (db *DB) UpdateCourseLastAccessed(ctx context.Context, courseID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.ExecContext(ctx,
		"UPDATE courses SET last_accessed = ? WHERE id = ?",
		formatTime(time.Now()), courseID,
	)
	if err != nil {
		return fmt.Errorf("failed to update course %s: %w", courseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("course %s: %w", courseID, types.ErrNotFound)
	}
	return nil
}

// DeleteCourse removes a course and, through cascading keys, its modules,
// videos, progress rows, notes and bookmarks.
func (db *DB) DeleteCourse(ctx context.Context, courseID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.ExecContext(ctx, "DELETE FROM courses WHERE id = ?", courseID)
	if err != nil {
		return fmt.Errorf("failed to delete course %s: %w", courseID, classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("course %s: %w", courseID, types.ErrNotFound)
	}
	return nil
}

// DeleteVideoByPath removes the video stored at path, if any.
// Returns true when a row was deleted.
func (db *DB) DeleteVideoByPath(ctx context.Context, path string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.ExecContext(ctx, "DELETE FROM videos WHERE path = ?", path)
	if err != nil {
		return false, fmt.Errorf("failed to delete video %s: %w", path, classify(err))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// PruneCourse deletes the modules and videos of a course whose ids are not
// in the keep sets. It returns the number of videos removed.
func (db *DB) PruneCourse(ctx context.Context, courseID string, keepModules, keepVideos []string) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	videoQuery := "DELETE FROM videos WHERE course_id = ?"
	args := []any{courseID}
	if len(keepVideos) > 0 {
		videoQuery += " AND id NOT IN (" + placeholders(len(keepVideos)) + ")"
		for _, id := range keepVideos {
			args = append(args, id)
		}
	}
	res, err := db.conn.ExecContext(ctx, videoQuery, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune videos of course %s: %w", courseID, classify(err))
	}
	removed, _ := res.RowsAffected()

	moduleQuery := "DELETE FROM modules WHERE course_id = ?"
	args = []any{courseID}
	if len(keepModules) > 0 {
		moduleQuery += " AND id NOT IN (" + placeholders(len(keepModules)) + ")"
		for _, id := range keepModules {
			args = append(args, id)
		}
	}
	if _, err := db.conn.ExecContext(ctx, moduleQuery, args...); err != nil {
		return int(removed), fmt.Errorf("failed to prune modules of course %s: %w", courseID, classify(err))
	}

	return int(removed), nil
}

const moduleColumns = `id, course_id, name, path, order_index, created_at`

// ModulesOfCourse returns the modules of a course ordered by order_index.
func (db *DB) ModulesOfCourse(ctx context.Context, courseID string) ([]types.Module, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+moduleColumns+`
		FROM modules
		WHERE course_id = ?
		ORDER BY order_index ASC
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query modules of course %s: %w", courseID, err)
	}
	defer rows.Close()

	var modules []types.Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		modules = append(modules, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating modules: %w", err)
	}
	return modules, nil
}

// ModuleByID returns the module with the given id.
func (db *DB) ModuleByID(ctx context.Context, id string) (*types.Module, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	row := db.conn.QueryRowContext(ctx, "SELECT "+moduleColumns+" FROM modules WHERE id = ?", id)
	m, err := scanModule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("module %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ModuleByPath returns the module of a course stored for directory path.
func (db *DB) ModuleByPath(ctx context.Context, courseID, path string) (*types.Module, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	row := db.conn.QueryRowContext(ctx,
		"SELECT "+moduleColumns+" FROM modules WHERE course_id = ? AND path = ? ORDER BY order_index LIMIT 1",
		courseID, path,
	)
	m, err := scanModule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("module %s: %w", path, types.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

const videoColumns = `v.id, v.module_id, v.course_id, v.name, v.path, v.duration, v.file_size, v.order_index`

// VideosOfModule returns the videos of a module ordered by order_index.
func (db *DB) VideosOfModule(ctx context.Context, moduleID string) ([]types.Video, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+videoColumns+`
		FROM videos v
		WHERE v.module_id = ?
		ORDER BY v.order_index ASC
	`, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos of module %s: %w", moduleID, err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

// VideosOfCourse returns the videos of a course in module order, then video order.
func (db *DB) VideosOfCourse(ctx context.Context, courseID string) ([]types.Video, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+videoColumns+`
		FROM videos v
		JOIN modules m ON m.id = v.module_id
		WHERE v.course_id = ?
		ORDER BY m.order_index ASC, v.order_index ASC
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos of course %s: %w", courseID, err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

// VideoByID returns the video with the given id.
func (db *DB) VideoByID(ctx context.Context, id string) (*types.Video, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.videoWhere(ctx, "v.id = ?", id)
}

// VideoByPath returns the video stored at path.
func (db *DB) VideoByPath(ctx context.Context, path string) (*types.Video, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.videoWhere(ctx, "v.path = ?", path)
}

func (db *DB) videoWhere(ctx context.Context, cond string, arg any) (*types.Video, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+videoColumns+" FROM videos v WHERE "+cond, arg)
	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("video %v: %w", arg, types.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(r rowScanner) (*types.Course, error) {
	var c types.Course
	var createdAt string
	var lastAccessed sql.NullString
	if err := r.Scan(&c.ID, &c.Name, &c.Path, &createdAt, &lastAccessed); err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	c.LastAccessed = nullStringToTime(lastAccessed)
	return &c, nil
}

func scanCourses(rows *sql.Rows) ([]types.Course, error) {
	var courses []types.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating courses: %w", err)
	}
	return courses, nil
}

func scanModule(r rowScanner) (*types.Module, error) {
	var m types.Module
	var createdAt string
	if err := r.Scan(&m.ID, &m.CourseID, &m.Name, &m.Path, &m.OrderIndex, &createdAt); err != nil {
		return nil, err
	}
	m.CreatedAt = parseTime(createdAt)
	return &m, nil
}

func scanVideo(r rowScanner) (*types.Video, error) {
	var v types.Video
	var duration sql.NullFloat64
	var size sql.NullInt64
	if err := r.Scan(&v.ID, &v.ModuleID, &v.CourseID, &v.Name, &v.Path, &duration, &size, &v.OrderIndex); err != nil {
		return nil, err
	}
	v.Duration = nullFloatToPtr(duration)
	v.FileSize = nullIntToPtr(size)
	return &v, nil
}

func scanVideos(rows *sql.Rows) ([]types.Video, error) {
	var videos []types.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating videos: %w", err)
	}
	return videos, nil
}
