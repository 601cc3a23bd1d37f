package config

import (
	"fmt"
	"path/filepath"

	gap "github.com/muesli/go-app-paths"
)

func scope() *gap.Scope {
	return gap.NewScope(gap.User, AppName)
}

// DataFile resolves a file in the per-user data directory.
func DataFile(name string) (string, error) {
	p, err := scope().DataPath(name)
	if err != nil {
		return "", fmt.Errorf("failed to resolve data path: %w", err)
	}
	return p, nil
}

// ConfigFile resolves the default config file path.
func ConfigFile() (string, error) {
	p, err := scope().ConfigPath(AppName + ".toml")
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	return p, nil
}

// LogFile resolves the default rotated log file path.
func LogFile() (string, error) {
	p, err := scope().LogPath(AppName + ".log")
	if err != nil {
		return "", fmt.Errorf("failed to resolve log path: %w", err)
	}
	return p, nil
}

func configDir() (string, error) {
	p, err := ConfigFile()
	if err != nil {
		return "", err
	}
	return filepath.Dir(p), nil
}
