package store

import (
	"io"
	"io/fs"
	"log/slog"

	"github.com/spf13/afero"
)

// Default permissions of created directories and files.
const (
	DefaultDirMode  fs.FileMode = 0o755
	DefaultFileMode fs.FileMode = 0o644
)

// Option is a function that modifies Dir configuration
type Option func(*config)

type config struct {
	fs          afero.Fs
	lockFactory FileLockFactory
	fileMode    fs.FileMode
	dirMode     fs.FileMode
	logger      *slog.Logger
}

func newConfig(opts []Option) *config {
	cfg := &config{
		fileMode: DefaultFileMode,
		dirMode:  DefaultDirMode,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	// Set defaults for dependencies not provided via options
	if cfg.fs == nil {
		cfg.fs = NewOSFileSystem()
	}
	if cfg.lockFactory == nil {
		cfg.lockFactory = &FlockFactory{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return cfg
}

// WithFileSystem sets a custom afero filesystem
func WithFileSystem(fsys afero.Fs) Option {
	return func(c *config) {
		c.fs = fsys
	}
}

// WithFileLockFactory sets a custom FileLockFactory implementation
func WithFileLockFactory(factory FileLockFactory) Option {
	return func(c *config) {
		c.lockFactory = factory
	}
}

// WithFileMode sets the permissions of row and counter files
func WithFileMode(mode fs.FileMode) Option {
	return func(c *config) {
		c.fileMode = mode
	}
}

// WithDirMode sets the permissions of created directories
func WithDirMode(mode fs.FileMode) Option {
	return func(c *config) {
		c.dirMode = mode
	}
}

// WithLogger sets the logger used for diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}
