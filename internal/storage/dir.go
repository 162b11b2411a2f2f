package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirPebble is the pebble database directory under the data dir
	DirPebble = "pebble"

	// FileSQLite is the sqlite database file under the data dir
	FileSQLite = "localstore.db"
)

// StoragePaths holds the on-disk locations used by file-backed backends
type StoragePaths struct {
	BaseDir    string
	PebbleDir  string
	SQLitePath string
}

// ResolvePaths computes the storage paths under baseDir without touching disk
func ResolvePaths(baseDir string) *StoragePaths {
	baseDir = filepath.Clean(baseDir)
	return &StoragePaths{
		BaseDir:    baseDir,
		PebbleDir:  filepath.Join(baseDir, DirPebble),
		SQLitePath: filepath.Join(baseDir, FileSQLite),
	}
}

// InitDirectories creates the base directory and checks it is writable
func InitDirectories(baseDir string) (*StoragePaths, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	paths := ResolvePaths(baseDir)

	if err := os.MkdirAll(paths.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", paths.BaseDir, err)
	}
	if err := validateDirectory(paths.BaseDir); err != nil {
		return nil, fmt.Errorf("directory validation failed for %s: %w", paths.BaseDir, err)
	}

	return paths, nil
}

// validateDirectory checks if a directory exists and is writable
func validateDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("directory does not exist: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory: %s", path)
	}

	// Check write permissions by attempting to create a temp file
	testFile := filepath.Join(path, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	file.Close()
	os.Remove(testFile)

	return nil
}
