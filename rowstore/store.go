package rowstore

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/arthur-debert/rowstore/rowstore/codec"
	"github.com/arthur-debert/rowstore/rowstore/store"
)

// Store is the root directory of a set of tables.
type Store struct {
	root   string
	fs     afero.Fs
	codec  *codec.Codec
	logger *slog.Logger
	dirOps []store.Option
}

// DefaultRoot returns $HOME/.rowstore/persistence.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".rowstore", "persistence"), nil
}

// Open opens the store rooted at root, creating the directory if needed.
func Open(root string, opts ...Option) (*Store, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.fs == nil {
		o.fs = store.NewOSFileSystem()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Store{
		root:   root,
		fs:     o.fs,
		codec:  codec.New(o.registry),
		logger: o.logger,
		dirOps: []store.Option{
			store.WithFileSystem(o.fs),
			store.WithLogger(o.logger),
		},
	}
	if o.lockFactory != nil {
		s.dirOps = append(s.dirOps, store.WithFileLockFactory(o.lockFactory))
	}
	if o.fileMode != 0 {
		s.dirOps = append(s.dirOps, store.WithFileMode(o.fileMode))
	}

	if err := s.fs.MkdirAll(root, store.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("failed to create store root %s: %w", root, err)
	}
	s.logger.Debug("opened store", "root", root)
	return s, nil
}

// Root returns the root directory.
func (s *Store) Root() string {
	return s.root
}

// Codec returns the codec shared by the tables of the store.
func (s *Store) Codec() *codec.Codec {
	return s.codec
}

// Tables returns the names of the table directories, sorted.
func (s *Store) Tables() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !store.IsHidden(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Dir returns the raw directory of an existing table, for untyped access.
func (s *Store) Dir(name string) (*store.Dir, error) {
	if err := checkTableName(name); err != nil {
		return nil, err
	}
	ok, err := afero.DirExists(s.fs, filepath.Join(s.root, name))
	if err != nil {
		return nil, fmt.Errorf("failed to stat table %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTable, name)
	}
	return s.openDir(name)
}

// openDir opens a table directory, creating it and its counter.
func (s *Store) openDir(name string) (*store.Dir, error) {
	return store.OpenDir(filepath.Join(s.root, name), s.dirOps...)
}

func checkTableName(name string) error {
	if name == "" || store.IsHidden(name) || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}
