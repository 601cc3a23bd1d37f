// Package logging builds the structured logger shared by every component.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the level and the optional rotated file sink.
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns a logger writing human-readable lines to stderr and, when
// File is set, JSON lines to a rotated log file.
func New(opts Options) (*zap.SugaredLogger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level),
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...)).Sugar(), nil
}

// ParseLevel accepts debug, info, warn or error. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
}

// OrNop returns log, or a no-op logger when log is nil.
func OrNop(log *zap.SugaredLogger) *zap.SugaredLogger {
	if log == nil {
		return zap.NewNop().Sugar()
	}
	return log
}
