package project

import (
	"os"
	"path/filepath"
)

// Paths holds the directories leakmap writes to.
type Paths struct {
	CacheDir string // ~/.cache/leakmap/ unless configured
	CacheDB  string // <cache>/mappings.db
	LogDir   string // <cache>/logs/
}

// DefaultCacheDir returns the per-user cache directory for leakmap, or
// .leakmap in the working directory when the user cache is unknown.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "leakmap")
	}
	return ".leakmap"
}

// NewPaths constructs all paths from a cache directory. An empty dir means
// DefaultCacheDir.
func NewPaths(cacheDir string) Paths {
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}
	return Paths{
		CacheDir: cacheDir,
		CacheDB:  filepath.Join(cacheDir, "mappings.db"),
		LogDir:   filepath.Join(cacheDir, "logs"),
	}
}

// ReportPath is where the analyzer leaves its report for a source file:
// next to it, with the extension replaced by .html.
func ReportPath(sourcePath string) string {
	ext := filepath.Ext(sourcePath)
	return sourcePath[:len(sourcePath)-len(ext)] + ".html"
}
