package rowstore

import (
	"io/fs"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/arthur-debert/rowstore/rowstore/convert"
	"github.com/arthur-debert/rowstore/rowstore/store"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	fs          afero.Fs
	lockFactory store.FileLockFactory
	registry    *convert.Registry
	logger      *slog.Logger
	fileMode    fs.FileMode
}

// WithFs sets the filesystem holding the store. Counter locks are taken
// on the same paths, so a filesystem other than the OS one needs a
// matching lock factory.
func WithFs(fsys afero.Fs) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithLockFactory sets the factory of counter file locks.
func WithLockFactory(f store.FileLockFactory) Option {
	return func(o *options) {
		o.lockFactory = f
	}
}

// WithRegistry sets the scalar converters used by every table.
func WithRegistry(r *convert.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFileMode sets the permissions of row and counter files.
func WithFileMode(mode fs.FileMode) Option {
	return func(o *options) {
		o.fileMode = mode
	}
}
