package store

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// NewOSFileSystem returns the filesystem used for stores on disk.
func NewOSFileSystem() afero.Fs {
	return afero.NewOsFs()
}

// NewMemFileSystem returns an in-memory filesystem. Its files cannot be
// locked with flock, so pair it with a MockFileLockFactory.
func NewMemFileSystem() afero.Fs {
	return afero.NewMemMapFs()
}

// IsHidden reports whether a directory entry is excluded from listings.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// writeFileAtomic writes data to a hidden temp file in the directory of
// path and renames it into place, so readers never see a partial file.
func writeFileAtomic(fsys afero.Fs, path string, data []byte, perm fs.FileMode) error {
	dir, name := filepath.Split(path)
	tmp, err := afero.TempFile(fsys, dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := fsys.Chmod(tmpName, perm); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	// Rename temp file to actual file (atomic on most filesystems)
	if err := fsys.Rename(tmpName, path); err != nil {
		_ = fsys.Remove(tmpName) // Clean up temp file
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
