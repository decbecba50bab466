package store

import (
	"github.com/gofrs/flock"
)

// FileLock defines the interface for exclusive file locking
type FileLock interface {
	// Lock blocks until the exclusive lock is held
	Lock() error

	// Unlock releases the lock
	Unlock() error
}

// FileLockFactory creates FileLock instances
type FileLockFactory interface {
	// New creates a new FileLock for the given path. Every call returns a
	// lock with its own open file description, so two locks on one path
	// contend even inside a single process.
	New(path string) FileLock
}

// FlockWrapper wraps github.com/gofrs/flock for our interface
type FlockWrapper struct {
	flock *flock.Flock
}

// Lock implements FileLock.Lock
func (f *FlockWrapper) Lock() error {
	return f.flock.Lock()
}

// Unlock implements FileLock.Unlock and closes the underlying descriptor
func (f *FlockWrapper) Unlock() error {
	return f.flock.Unlock()
}

// FlockFactory is the default factory implementation using flock
type FlockFactory struct{}

// New implements FileLockFactory.New
func (f *FlockFactory) New(path string) FileLock {
	return &FlockWrapper{
		flock: flock.New(path),
	}
}
