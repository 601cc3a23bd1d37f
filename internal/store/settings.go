package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reprodlocal/reprod/internal/types"
)

// DefaultSettings are inserted on first start when missing.
var DefaultSettings = []struct {
	Key, Value, Type string
}{
	{"theme", "dark", types.SettingString},
	{"auto_play_next", "true", types.SettingBoolean},
	{"playback_speed", "1.0", types.SettingNumber},
	{"volume", "0.8", types.SettingNumber},
	{"auto_save_progress", "true", types.SettingBoolean},
	{"show_subtitles", "false", types.SettingBoolean},
	{"language", "pt-BR", types.SettingString},
}

// SetSetting inserts or updates a setting keyed by its key.
func (db *DB) SetSetting(ctx context.Context, key, value, settingType string) (*types.UserSetting, error) {
	if settingType == "" {
		settingType = types.SettingString
	}
	s := &types.UserSetting{
		ID:          uuid.NewString(),
		Key:         key,
		Value:       value,
		SettingType: settingType,
		UpdatedAt:   time.Now(),
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid setting: %w: %w", types.ErrInvalidInput, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_settings (id, setting_key, setting_value, setting_type, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(setting_key) DO UPDATE SET
			setting_value = excluded.setting_value,
			setting_type = excluded.setting_type,
			updated_at = excluded.updated_at
	`, s.ID, s.Key, s.Value, s.SettingType, formatTime(s.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to save setting %s: %w", key, classify(err))
	}
	return db.getSetting(ctx, key)
}

// GetSetting returns the setting stored under key.
func (db *DB) GetSetting(ctx context.Context, key string) (*types.UserSetting, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.getSetting(ctx, key)
}

func (db *DB) getSetting(ctx context.Context, key string) (*types.UserSetting, error) {
	var s types.UserSetting
	var updatedAt string
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, setting_key, setting_value, setting_type, updated_at
		FROM user_settings WHERE setting_key = ?
	`, key).Scan(&s.ID, &s.Key, &s.Value, &s.SettingType, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("setting %s: %w", key, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

// AllSettings returns every setting ordered by key.
func (db *DB) AllSettings(ctx context.Context) ([]types.UserSetting, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, setting_key, setting_value, setting_type, updated_at
		FROM user_settings
		ORDER BY setting_key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var out []types.UserSetting
	for rows.Next() {
		var s types.UserSetting
		var updatedAt string
		if err := rows.Scan(&s.ID, &s.Key, &s.Value, &s.SettingType, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		s.UpdatedAt = parseTime(updatedAt)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}
	return out, nil
}

// EnsureDefaultSettings inserts DefaultSettings whose keys are not yet
// present. Existing values are never overwritten. It returns the number of
// settings inserted.
func (db *DB) EnsureDefaultSettings(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := formatTime(time.Now())
	inserted := 0
	for _, d := range DefaultSettings {
		res, err := db.conn.ExecContext(ctx, `
			INSERT INTO user_settings (id, setting_key, setting_value, setting_type, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(setting_key) DO NOTHING
		`, uuid.NewString(), d.Key, d.Value, d.Type, now)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert default setting %s: %w", d.Key, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}
