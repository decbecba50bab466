package store

import (
	"errors"
	"sync"
)

// MockFileLock provides an in-process implementation of FileLock for
// testing. Locks created by one factory for the same path exclude each
// other the way flock does.
type MockFileLock struct {
	mu          sync.Mutex
	gate        *sync.Mutex
	isLocked    bool
	lockError   error
	unlockError error

	// For tracking lock attempts
	LockAttempts   int
	UnlockAttempts int
}

// Lock implements FileLock.Lock
func (m *MockFileLock) Lock() error {
	m.mu.Lock()
	m.LockAttempts++
	err := m.lockError
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.gate.Lock()

	m.mu.Lock()
	m.isLocked = true
	m.mu.Unlock()
	return nil
}

// Unlock implements FileLock.Unlock. The gate is released even when an
// unlock error is injected, as closing the descriptor would.
func (m *MockFileLock) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UnlockAttempts++
	if !m.isLocked {
		return errors.New("mock lock is not held")
	}
	m.isLocked = false
	m.gate.Unlock()

	return m.unlockError
}

// IsLocked returns whether the lock is currently held (for testing)
func (m *MockFileLock) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isLocked
}

// SetLockError sets an error to be returned on lock attempts (for testing)
func (m *MockFileLock) SetLockError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockError = err
}

// SetUnlockError sets an error to be returned on unlock attempts (for testing)
func (m *MockFileLock) SetUnlockError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlockError = err
}

// MockFileLockFactory creates MockFileLock instances
type MockFileLockFactory struct {
	mu    sync.Mutex
	gates map[string]*sync.Mutex
	locks map[string][]*MockFileLock

	// Default errors to inject
	DefaultLockError   error
	DefaultUnlockError error
}

// NewMockFileLockFactory creates a new mock factory
func NewMockFileLockFactory() *MockFileLockFactory {
	return &MockFileLockFactory{
		gates: make(map[string]*sync.Mutex),
		locks: make(map[string][]*MockFileLock),
	}
}

// New implements FileLockFactory.New
func (f *MockFileLockFactory) New(path string) FileLock {
	f.mu.Lock()
	defer f.mu.Unlock()

	gate, ok := f.gates[path]
	if !ok {
		gate = &sync.Mutex{}
		f.gates[path] = gate
	}

	lock := &MockFileLock{
		gate:        gate,
		lockError:   f.DefaultLockError,
		unlockError: f.DefaultUnlockError,
	}
	f.locks[path] = append(f.locks[path], lock)
	return lock
}

// Locks returns every lock created for a path, oldest first (for testing)
func (f *MockFileLockFactory) Locks(path string) []*MockFileLock {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockFileLock(nil), f.locks[path]...)
}

// Reset forgets all locks (for testing)
func (f *MockFileLockFactory) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates = make(map[string]*sync.Mutex)
	f.locks = make(map[string][]*MockFileLock)
}
