// Package config loads reprod settings from a TOML/YAML/JSON file, REPROD_*
// environment variables and built-in defaults, in increasing precedence
// order: defaults, file, environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// AppName names the data, config and log directories.
const AppName = "reprod"

// EnvPrefix is the prefix of environment overrides, e.g. REPROD_LOG_LEVEL.
const EnvPrefix = "REPROD"

// Config is the effective configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Progress ProgressConfig `mapstructure:"progress"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	UI       UIConfig       `mapstructure:"ui"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type ScanConfig struct {
	// Roots replaces the default candidate directories when set.
	Roots []string `mapstructure:"roots"`
	// CoursesDir is tried before the default candidates.
	CoursesDir  string   `mapstructure:"courses_dir"`
	ReuseIDs    bool     `mapstructure:"reuse_ids"`
	ExcludeDirs []string `mapstructure:"exclude_dirs"`
}

type ProgressConfig struct {
	CompleteRatio float64       `mapstructure:"complete_ratio"`
	SessionGap    time.Duration `mapstructure:"session_gap"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type UIConfig struct {
	PickerTimeout time.Duration `mapstructure:"picker_timeout"`
	Color         bool          `mapstructure:"color"`
}

// Default returns the built-in configuration. The database path is left
// empty and resolved by Validate.
func Default() Config {
	return Config{
		Scan: ScanConfig{
			ReuseIDs:    true,
			ExcludeDirs: []string{".git", "node_modules", ".cache"},
		},
		Progress: ProgressConfig{
			CompleteRatio: 0.95,
			SessionGap:    30 * time.Minute,
		},
		Watch:  WatchConfig{Debounce: 2 * time.Second},
		Server: ServerConfig{Addr: "127.0.0.1:17380"},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		UI: UIConfig{
			PickerTimeout: 60 * time.Second,
			Color:         true,
		},
	}
}

// Validate checks values and fills in derived defaults.
func (c *Config) Validate() error {
	if c.Progress.CompleteRatio < 0 || c.Progress.CompleteRatio > 1 {
		return fmt.Errorf("invalid progress.complete_ratio %v: must be within [0, 1]", c.Progress.CompleteRatio)
	}
	if c.Progress.SessionGap <= 0 {
		c.Progress.SessionGap = 30 * time.Minute
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 2 * time.Second
	}
	if c.UI.PickerTimeout <= 0 {
		c.UI.PickerTimeout = 60 * time.Second
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:17380"
	}

	if c.Database.Path == "" {
		p, err := DataFile("reprod.db")
		if err != nil {
			return err
		}
		c.Database.Path = p
	}
	c.Database.Path = expandHome(c.Database.Path)
	c.Log.File = expandHome(c.Log.File)
	c.Scan.CoursesDir = expandHome(c.Scan.CoursesDir)
	for i, r := range c.Scan.Roots {
		c.Scan.Roots[i] = expandHome(r)
	}
	return nil
}

// Load reads the configuration. An explicit path must exist; otherwise
// reprod.{toml,yaml,json} is looked up in the user config directory and the
// working directory, and its absence is not an error. It returns the file
// that was used, if any.
func Load(path string) (Config, string, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(AppName)
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, "", fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, "", err
	}
	return cfg, v.ConfigFileUsed(), nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("scan.roots", d.Scan.Roots)
	v.SetDefault("scan.courses_dir", d.Scan.CoursesDir)
	v.SetDefault("scan.reuse_ids", d.Scan.ReuseIDs)
	v.SetDefault("scan.exclude_dirs", d.Scan.ExcludeDirs)
	v.SetDefault("progress.complete_ratio", d.Progress.CompleteRatio)
	v.SetDefault("progress.session_gap", d.Progress.SessionGap)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("ui.picker_timeout", d.UI.PickerTimeout)
	v.SetDefault("ui.color", d.UI.Color)
}

// Write stores cfg as TOML at path. Durations are written as strings such
// as "30m0s" so the file round-trips through Load.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	return Encode(f, cfg)
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	if err := toml.NewEncoder(w).Encode(tomlDoc(cfg)); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func tomlDoc(cfg Config) map[string]map[string]any {
	roots := cfg.Scan.Roots
	if roots == nil {
		roots = []string{}
	}
	return map[string]map[string]any{
		"database": {"path": cfg.Database.Path},
		"scan": {
			"roots":        roots,
			"courses_dir":  cfg.Scan.CoursesDir,
			"reuse_ids":    cfg.Scan.ReuseIDs,
			"exclude_dirs": cfg.Scan.ExcludeDirs,
		},
		"progress": {
			"complete_ratio": cfg.Progress.CompleteRatio,
			"session_gap":    cfg.Progress.SessionGap.String(),
		},
		"watch":  {"debounce": cfg.Watch.Debounce.String()},
		"server": {"addr": cfg.Server.Addr},
		"log": {
			"level":        cfg.Log.Level,
			"file":         cfg.Log.File,
			"max_size_mb":  cfg.Log.MaxSizeMB,
			"max_backups":  cfg.Log.MaxBackups,
			"max_age_days": cfg.Log.MaxAgeDays,
		},
		"ui": {
			"picker_timeout": cfg.UI.PickerTimeout.String(),
			"color":          cfg.UI.Color,
		},
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
