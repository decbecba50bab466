package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func newMemDir(t *testing.T) (*Dir, afero.Fs) {
	t.Helper()
	fsys := NewMemFileSystem()
	d, err := OpenDir("/root/rows", WithFileSystem(fsys), WithFileLockFactory(NewMockFileLockFactory()))
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	return d, fsys
}

func TestOpenDir(t *testing.T) {
	d, fsys := newMemDir(t)

	if ok, _ := afero.DirExists(fsys, "/root/rows"); !ok {
		t.Error("table directory was not created")
	}
	if ok, _ := afero.Exists(fsys, filepath.Join("/root/rows", CounterFile)); !ok {
		t.Error("counter file was not created")
	}
	if d.Name() != "rows" {
		t.Errorf("Name = %q", d.Name())
	}

	ids, err := d.IDs()
	if err != nil || len(ids) != 0 {
		t.Errorf("IDs of new directory = %v, %v", ids, err)
	}

	// Reopening keeps the counter.
	if _, err := d.Counter().Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	again, err := OpenDir("/root/rows", WithFileSystem(fsys), WithFileLockFactory(NewMockFileLockFactory()))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if cur, _ := again.Counter().Current(); cur != 1 {
		t.Errorf("Current after reopen = %d, want 1", cur)
	}
}

func TestDirRows(t *testing.T) {
	d, _ := newMemDir(t)

	t.Run("create and read", func(t *testing.T) {
		if err := d.Create(2, []byte("two")); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := d.Create(10, []byte("ten")); err != nil {
			t.Fatalf("Create: %v", err)
		}
		data, err := d.Read(2)
		if err != nil || string(data) != "two" {
			t.Errorf("Read = %q, %v", data, err)
		}
	})

	t.Run("create existing", func(t *testing.T) {
		err := d.Create(2, []byte("again"))
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("replace", func(t *testing.T) {
		if err := d.Replace(2, []byte("TWO")); err != nil {
			t.Fatalf("Replace: %v", err)
		}
		data, _ := d.Read(2)
		if string(data) != "TWO" {
			t.Errorf("Read after Replace = %q", data)
		}
		if err := d.Replace(3, []byte("x")); !errors.Is(err, ErrNotFound) {
			t.Errorf("Replace missing: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ids sorted numerically", func(t *testing.T) {
		ids, err := d.IDs()
		if err != nil {
			t.Fatalf("IDs: %v", err)
		}
		if diff := cmp.Diff([]int64{2, 10}, ids); diff != "" {
			t.Errorf("IDs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("remove", func(t *testing.T) {
		if err := d.Remove(10); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		if ok, _ := d.Exists(10); ok {
			t.Error("row still exists")
		}
		if err := d.Remove(10); !errors.Is(err, ErrNotFound) {
			t.Errorf("second Remove: expected ErrNotFound, got %v", err)
		}
		if _, err := d.Read(10); !errors.Is(err, ErrNotFound) {
			t.Errorf("Read removed: expected ErrNotFound, got %v", err)
		}
	})
}

func TestDirListing(t *testing.T) {
	d, fsys := newMemDir(t)
	if err := d.Create(1, []byte("one")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_ = afero.WriteFile(fsys, "/root/rows/.1.tmp-123", []byte("partial"), DefaultFileMode)
	_ = fsys.MkdirAll("/root/rows/attachments", DefaultDirMode)

	ids, err := d.IDs()
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	if diff := cmp.Diff([]int64{1}, ids); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}

	_ = afero.WriteFile(fsys, "/root/rows/notes.txt", []byte("?"), DefaultFileMode)
	if _, err := d.IDs(); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}

func TestParseID(t *testing.T) {
	for _, name := range []string{"1", "42", "9223372036854775807"} {
		if _, err := ParseID(name); err != nil {
			t.Errorf("ParseID(%q): %v", name, err)
		}
	}
	for _, name := range []string{"", "0", "-1", "007", "+3", "1.0", "x"} {
		if _, err := ParseID(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("ParseID(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestIsHidden(t *testing.T) {
	if !IsHidden(CounterFile) || IsHidden("12") {
		t.Error("IsHidden misclassified entries")
	}
}
