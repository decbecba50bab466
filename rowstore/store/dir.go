package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/spf13/afero"
)

// Dir is a table directory: one file per row, named by its decimal ID, plus
// the hidden counter file. Dir moves raw bytes only.
type Dir struct {
	path    string
	fs      afero.Fs
	mode    fs.FileMode
	logger  *slog.Logger
	counter *Counter
}

// OpenDir opens the table directory at path, creating it and its counter
// file when missing.
func OpenDir(path string, opts ...Option) (*Dir, error) {
	cfg := newConfig(opts)

	if err := cfg.fs.MkdirAll(path, cfg.dirMode); err != nil {
		return nil, fmt.Errorf("failed to create table directory %s: %w", path, err)
	}

	counterPath := filepath.Join(path, CounterFile)
	f, err := cfg.fs.OpenFile(counterPath, os.O_RDWR|os.O_CREATE, cfg.fileMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter file: %w", err)
	}
	if err := f.Close(); err != nil {
		cfg.logger.Warn("failed to close counter", "counter", counterPath, "error", err)
	}

	return &Dir{
		path:    path,
		fs:      cfg.fs,
		mode:    cfg.fileMode,
		logger:  cfg.logger,
		counter: newCounter(counterPath, cfg),
	}, nil
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// Name returns the last element of the directory path.
func (d *Dir) Name() string {
	return filepath.Base(d.path)
}

// Counter returns the ID counter of the directory.
func (d *Dir) Counter() *Counter {
	return d.counter
}

// RowPath returns the file path of row id.
func (d *Dir) RowPath(id int64) string {
	return filepath.Join(d.path, strconv.FormatInt(id, 10))
}

// IDs returns the IDs of all rows in ascending order. Hidden entries and
// subdirectories are skipped; any other file not named by an ID fails
// with ErrInvalidName.
func (d *Dir) IDs() ([]int64, error) {
	entries, err := afero.ReadDir(d.fs, d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.path, err)
	}

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if IsHidden(e.Name()) || e.IsDir() {
			continue
		}
		id, err := ParseID(e.Name())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.path, err)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Exists reports whether row id exists.
func (d *Dir) Exists(id int64) (bool, error) {
	ok, err := afero.Exists(d.fs, d.RowPath(id))
	if err != nil {
		return false, fmt.Errorf("failed to stat row %d: %w", id, err)
	}
	return ok, nil
}

// Read returns the content of row id, or ErrNotFound.
func (d *Dir) Read(id int64) ([]byte, error) {
	data, err := afero.ReadFile(d.fs, d.RowPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%d", ErrNotFound, d.Name(), id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read row %d: %w", id, err)
	}
	return data, nil
}

// Create writes a new row id, failing with ErrAlreadyExists if it exists.
func (d *Dir) Create(id int64, data []byte) error {
	ok, err := d.Exists(id)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s/%d", ErrAlreadyExists, d.Name(), id)
	}
	return d.write(id, data)
}

// Replace removes row id and writes data in its place. It fails with
// ErrNotFound if the row does not exist. The pair is not atomic: a crash
// in between loses the row.
func (d *Dir) Replace(id int64, data []byte) error {
	if err := d.Remove(id); err != nil {
		return err
	}
	return d.write(id, data)
}

// Remove deletes row id, or returns ErrNotFound.
func (d *Dir) Remove(id int64) error {
	err := d.fs.Remove(d.RowPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, d.Name(), id)
	}
	if err != nil {
		return fmt.Errorf("failed to remove row %d: %w", id, err)
	}
	return nil
}

func (d *Dir) write(id int64, data []byte) error {
	if err := writeFileAtomic(d.fs, d.RowPath(id), data, d.mode); err != nil {
		return fmt.Errorf("failed to write row %d: %w", id, err)
	}
	return nil
}

// ParseID parses a row file name. Only canonical positive decimals are IDs.
func ParseID(name string) (int64, error) {
	id, err := strconv.ParseInt(name, 10, 64)
	if err != nil || id <= 0 || strconv.FormatInt(id, 10) != name {
		return 0, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return id, nil
}
