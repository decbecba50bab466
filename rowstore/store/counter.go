package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"

	"github.com/spf13/afero"
)

// CounterFile is the name of the hidden file holding the highest ID
// allocated in a table directory.
const CounterFile = ".maxNumber"

const (
	counterSize       = 8
	legacyCounterSize = 4
)

// Counter allocates strictly increasing row IDs. The value is a big-endian
// uint64 at offset 0 of the counter file; files written with a 4-byte
// counter are read as a big-endian int32 and widened on the next write.
//
// Every allocation takes an exclusive lock on the counter file, so
// processes sharing a directory never receive the same ID. There is no
// timeout: a stuck holder blocks allocation until the kernel drops its lock.
type Counter struct {
	path   string
	fs     afero.Fs
	locks  FileLockFactory
	mode   fs.FileMode
	logger *slog.Logger
}

// NewCounter returns the counter stored at path. The file is created on
// first allocation if it does not exist.
func NewCounter(path string, opts ...Option) *Counter {
	return newCounter(path, newConfig(opts))
}

func newCounter(path string, cfg *config) *Counter {
	return &Counter{
		path:   path,
		fs:     cfg.fs,
		locks:  cfg.lockFactory,
		mode:   cfg.fileMode,
		logger: cfg.logger,
	}
}

// Path returns the counter file path.
func (c *Counter) Path() string {
	return c.path
}

// Next increments the counter under the file lock and returns the new value.
func (c *Counter) Next() (next int64, err error) {
	err = c.withLock(func() error {
		f, err := c.fs.OpenFile(c.path, os.O_RDWR|os.O_CREATE, c.mode)
		if err != nil {
			return fmt.Errorf("failed to open counter: %w", err)
		}

		current, err := readCounter(f)
		if err != nil {
			_ = f.Close()
			return err
		}
		if current == math.MaxInt64 {
			_ = f.Close()
			return fmt.Errorf("counter %s is exhausted", c.path)
		}
		next = current + 1

		var buf [counterSize]byte
		binary.BigEndian.PutUint64(buf[:], uint64(next))
		if _, err := f.WriteAt(buf[:], 0); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write counter: %w", err)
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to sync counter: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close counter: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.logger.Debug("allocated id", "counter", c.path, "id", next)
	return next, nil
}

// Current returns the highest ID allocated so far, or 0 when none was.
// It reads without taking the lock; only Next holds it.
func (c *Counter) Current() (current int64, err error) {
	f, err := c.fs.Open(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open counter: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			c.logger.Warn("failed to close counter", "counter", c.path, "error", cerr)
		}
	}()
	return readCounter(f)
}

func (c *Counter) withLock(fn func() error) (err error) {
	lock := c.locks.New(c.path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock counter %s: %w", c.path, err)
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("failed to unlock counter %s: %w", c.path, uerr)
		}
	}()
	return fn()
}

// readCounter decodes the counter at offset 0 of r. Files shorter than the
// legacy width hold no value yet.
func readCounter(r io.ReaderAt) (int64, error) {
	var buf [counterSize]byte
	n, err := r.ReadAt(buf[:], 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}

	switch {
	case n == counterSize:
		v := binary.BigEndian.Uint64(buf[:])
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("counter value %d out of range", v)
		}
		return int64(v), nil
	case n >= legacyCounterSize:
		v := int32(binary.BigEndian.Uint32(buf[:legacyCounterSize]))
		if v < 0 {
			return 0, fmt.Errorf("legacy counter value %d out of range", v)
		}
		return int64(v), nil
	}
	return 0, nil
}
