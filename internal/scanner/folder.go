package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/reprodlocal/reprod/internal/types"
)

// MediaFile is a video found while browsing a folder.
type MediaFile struct {
	Name     string   `json:"name" yaml:"name"`
	Path     string   `json:"path" yaml:"path"`
	FileType string   `json:"file_type" yaml:"file_type"`
	Size     int64    `json:"size" yaml:"size"`
	Duration *float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// SubFolder is a directory below a browsed folder with its recursive video count.
type SubFolder struct {
	Name       string `json:"name" yaml:"name"`
	Path       string `json:"path" yaml:"path"`
	MediaCount int    `json:"media_count" yaml:"media_count"`
}

// FolderContent lists the videos and subfolders under a folder.
type FolderContent struct {
	Path       string      `json:"path" yaml:"path"`
	MediaFiles []MediaFile `json:"media_files" yaml:"media_files"`
	Subfolders []SubFolder `json:"subfolders" yaml:"subfolders"`
	TotalFiles int         `json:"total_files" yaml:"total_files"`
}

// ReadFolder walks path recursively and returns every video and every
// subdirectory, both sorted by name. Nothing is stored. Unreadable entries
// are skipped.
func ReadFolder(path string) (*FolderContent, error) {
	if err := requireDir(path); err != nil {
		return nil, err
	}
	path = filepath.Clean(path)

	content := &FolderContent{Path: path}
	var dirs []string

	walkMedia(path, func(p string, d fs.DirEntry) {
		if d.IsDir() {
			if p != path {
				dirs = append(dirs, p)
			}
			return
		}
		content.MediaFiles = append(content.MediaFiles, mediaFile(p, d))
	})

	for _, dir := range dirs {
		count := 0
		walkMedia(dir, func(_ string, d fs.DirEntry) {
			if !d.IsDir() {
				count++
			}
		})
		content.Subfolders = append(content.Subfolders, SubFolder{
			Name:       filepath.Base(dir),
			Path:       dir,
			MediaCount: count,
		})
	}

	sort.SliceStable(content.MediaFiles, func(i, j int) bool {
		return content.MediaFiles[i].Name < content.MediaFiles[j].Name
	})
	sort.SliceStable(content.Subfolders, func(i, j int) bool {
		return content.Subfolders[i].Name < content.Subfolders[j].Name
	})
	content.TotalFiles = len(content.MediaFiles)
	return content, nil
}

// Playlist returns every video under path ordered by full path, which keeps
// the folder hierarchy together.
func Playlist(path string) ([]MediaFile, error) {
	if err := requireDir(path); err != nil {
		return nil, err
	}
	path = filepath.Clean(path)

	var playlist []MediaFile
	walkMedia(path, func(p string, d fs.DirEntry) {
		if !d.IsDir() {
			playlist = append(playlist, mediaFile(p, d))
		}
	})

	sort.Slice(playlist, func(i, j int) bool { return playlist[i].Path < playlist[j].Path })
	return playlist, nil
}

// walkMedia calls fn for every directory and every regular video file under
// root, skipping anything that cannot be read.
func walkMedia(root string, fn func(path string, d fs.DirEntry)) {
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && p != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || (d.Type().IsRegular() && IsVideo(d.Name())) {
			fn(p, d)
		}
		return nil
	})
}

func mediaFile(path string, d fs.DirEntry) MediaFile {
	f := MediaFile{
		Name:     d.Name(),
		Path:     path,
		FileType: fileType(path),
	}
	if info, err := d.Info(); err == nil {
		f.Size = info.Size()
	}
	return f
}

func requireDir(path string) error {
	if path == "" {
		return fmt.Errorf("folder path is required: %w", types.ErrInvalidInput)
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("folder %s: %w", path, types.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w: %w", path, types.ErrIOFailure, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory: %w", path, types.ErrInvalidInput)
	}
	return nil
}
