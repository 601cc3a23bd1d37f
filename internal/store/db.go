// Package store persists the course library in an embedded SQLite database.
//
// A single *DB handle owns the connection. Every exported method takes the
// handle's mutex for its whole duration, so callers in the CLI, the watcher
// and the HTTP server all serialize through the same lock. Each write is its
// own implicit transaction; only schema migrations use explicit ones.
//
// Layout:
//   - courses, modules, videos: the scanned hierarchy
//   - video_progress: at most one row per video
//   - user_notes, video_bookmarks, user_settings, activity_log: user data
//   - schema_version: one row per applied migration
//
// The default driver is github.com/ncruces/go-sqlite3. Build with
// -tags libsql or -tags modernc to switch drivers.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/reprodlocal/reprod/internal/types"
)

// DB wraps the SQLite connection and serializes access to it.
type DB struct {
	mu   sync.Mutex
	conn *sql.DB
	path string
}

// Open opens (or creates) the database at path and brings its schema up to
// date. The caller MUST call Close() when done.
//
// Example:
//
//	db, err := store.Open(ctx, "/home/me/.local/share/reprod/reprod.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := openConn(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// openConn opens the connection and applies pragmas without touching the schema.
func openConn(ctx context.Context, path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	connector, err := newConnector(dataSource(path), connPragmas)
	if err != nil {
		return nil, err
	}
	conn := sql.OpenDB(connector)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// One connection matches the exclusive-access model of the mutex.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{
		conn: conn,
		path: path,
	}

	if _, err := db.conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return db, nil
}

// connPragmas are per-connection settings, applied to every connection the
// pool opens.
var connPragmas = []string{
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// pragmaConnector runs pragmas on each new driver connection.
type pragmaConnector struct {
	driver.Connector
	pragmas []string
}

func newConnector(dsn string, pragmas []string) (driver.Connector, error) {
	opener, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	drv := opener.Driver()
	_ = opener.Close()

	var inner driver.Connector = dsnConnector{dsn: dsn, drv: drv}
	if dc, ok := drv.(driver.DriverContext); ok {
		if inner, err = dc.OpenConnector(dsn); err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}
	return pragmaConnector{Connector: inner, pragmas: pragmas}, nil
}

func (c pragmaConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.Connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range c.pragmas {
		if err := execPragma(ctx, conn, p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return conn, nil
}

func execPragma(ctx context.Context, conn driver.Conn, stmt string) error {
	if ex, ok := conn.(driver.ExecerContext); ok {
		_, err := ex.ExecContext(ctx, stmt, nil)
		if err != driver.ErrSkip {
			return err
		}
	}
	var st driver.Stmt
	var err error
	if pc, ok := conn.(driver.ConnPrepareContext); ok {
		st, err = pc.PrepareContext(ctx, stmt)
	} else {
		st, err = conn.Prepare(stmt)
	}
	if err != nil {
		return err
	}
	defer st.Close()
	if sc, ok := st.(driver.StmtExecContext); ok {
		_, err = sc.ExecContext(ctx, nil)
		return err
	}
	_, err = st.Exec(nil)
	return err
}

// dsnConnector adapts a driver without DriverContext.
type dsnConnector struct {
	dsn string
	drv driver.Driver
}

func (c dsnConnector) Connect(context.Context) (driver.Conn, error) { return c.drv.Open(c.dsn) }
func (c dsnConnector) Driver() driver.Driver                        { return c.drv }

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// Counts summarizes the number of rows per table.
type Counts struct {
	Courses   int `json:"courses"`
	Modules   int `json:"modules"`
	Videos    int `json:"videos"`
	Progress  int `json:"progress"`
	Notes     int `json:"notes"`
	Bookmarks int `json:"bookmarks"`
	Activity  int `json:"activity"`
}

// Counts returns the number of rows in each user-facing table.
func (db *DB) Counts(ctx context.Context) (Counts, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var c Counts
	targets := []struct {
		table string
		dst   *int
	}{
		{"courses", &c.Courses},
		{"modules", &c.Modules},
		{"videos", &c.Videos},
		{"video_progress", &c.Progress},
		{"user_notes", &c.Notes},
		{"video_bookmarks", &c.Bookmarks},
		{"activity_log", &c.Activity},
	}
	for _, t := range targets {
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return Counts{}, fmt.Errorf("failed to count %s: %w", t.table, err)
		}
	}
	return c, nil
}

// timeLayout is fixed-width UTC so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}

func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	if t.IsZero() {
		return nil
	}
	return &t
}

func ptrToNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullStringToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func ptrToNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullFloatToPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func ptrToNullInt(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func nullIntToPtr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	i := ni.Int64
	return &i
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// classify tags driver errors with the shared error kinds.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isConstraintErr(err) {
		return fmt.Errorf("%w: %w", types.ErrConstraint, err)
	}
	return err
}

// constraintMessage matches the error text every SQLite driver produces for
// constraint violations.
func constraintMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint failed") || strings.Contains(msg, "constraint violation")
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
