package scanner

import (
	"path/filepath"
	"strings"
)

// videoExtensions lists the lower-cased extensions treated as video.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".ts":   true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".3gp":  true,
	".ogv":  true,
}

// IsVideo reports whether path names a video file, judged by extension alone
// (case-insensitive). Extensionless names are never videos, and neither are
// dotfiles such as ".mp4" whose whole name is the suffix.
func IsVideo(path string) bool {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if len(ext) == len(base) {
		return false
	}
	return videoExtensions[strings.ToLower(ext)]
}

// Extensions returns the supported video extensions without the leading dot.
func Extensions() []string {
	out := make([]string, 0, len(videoExtensions))
	for ext := range videoExtensions {
		out = append(out, strings.TrimPrefix(ext, "."))
	}
	return out
}

// fileType is the upper-cased extension, "UNKNOWN" when there is none.
func fileType(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(ext)
}

// videoName is the file name without its extension.
func videoName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
