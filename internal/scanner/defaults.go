package scanner

import (
	"os"
	"path/filepath"
)

// DefaultRoots returns the prioritized candidate directories checked when no
// scan roots are configured. coursesDir, when set, comes first.
func DefaultRoots(home, coursesDir string) []string {
	var roots []string
	if coursesDir != "" {
		roots = append(roots, coursesDir)
	}
	if home == "" {
		return roots
	}
	for _, rel := range []string{
		"Cursos",
		"Courses",
		filepath.Join("Videos", "Cursos"),
		filepath.Join("Videos", "Courses"),
		filepath.Join("Documents", "Cursos"),
		filepath.Join("Documents", "Courses"),
		"Downloads",
	} {
		roots = append(roots, filepath.Join(home, rel))
	}
	return roots
}

// ExistingRoots keeps the candidates that exist as directories, dropping
// duplicates while preserving order.
func ExistingRoots(candidates []string) []string {
	seen := make(map[string]bool, len(candidates))
	var out []string
	for _, c := range candidates {
		c = filepath.Clean(c)
		if seen[c] {
			continue
		}
		seen[c] = true
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			out = append(out, c)
		}
	}
	return out
}
