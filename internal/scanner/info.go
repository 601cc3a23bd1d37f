package scanner

import (
	"fmt"
	"os"

	"github.com/reprodlocal/reprod/internal/types"
)

// VideoInfo is the metadata available for a video file without decoding it.
// Duration and dimensions stay unset.
type VideoInfo struct {
	Path     string   `json:"path" yaml:"path"`
	FileType string   `json:"file_type" yaml:"file_type"`
	FileSize int64    `json:"file_size" yaml:"file_size"`
	Duration *float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
	Width    *int     `json:"width,omitempty" yaml:"width,omitempty"`
	Height   *int     `json:"height,omitempty" yaml:"height,omitempty"`
}

// Info stats the file at path.
func Info(path string) (*VideoInfo, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("video file %s: %w", path, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w: %w", path, types.ErrIOFailure, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", path, types.ErrInvalidInput)
	}
	return &VideoInfo{
		Path:     path,
		FileType: fileType(path),
		FileSize: info.Size(),
	}, nil
}
