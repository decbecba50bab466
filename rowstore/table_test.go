package rowstore_test

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/afero"

	"github.com/arthur-debert/rowstore/rowstore"
	"github.com/arthur-debert/rowstore/rowstore/codec"
	"github.com/arthur-debert/rowstore/testutil"
)

type Gadget struct {
	rowstore.Identity
	Label string
}

func TestTableLifecycle(t *testing.T) {
	s := testutil.NewTempStore(t)
	table, err := rowstore.NewTable[*testutil.StorageTestData](s)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	data := &testutil.StorageTestData{Number: 1, Name: "le name", State: true}
	if data.IsPersisted() {
		t.Fatal("new value must not be persisted")
	}

	id, err := table.Insert(data)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != 1 {
		t.Errorf("first id = %d, want 1", id)
	}
	if got, ok := data.ID(); !ok || got != id {
		t.Errorf("inserted value id = %d, %v", got, ok)
	}

	loaded, err := table.SelectByID(id)
	if err != nil {
		t.Fatalf("SelectByID: %v", err)
	}
	if loaded.Number != 1 || loaded.Name != "le name" || !loaded.State {
		t.Errorf("loaded = %+v", loaded)
	}
	if got, _ := loaded.ID(); got != id {
		t.Errorf("loaded id = %d, want %d", got, id)
	}

	loaded.Name = "renamed"
	if err := table.Update(id, loaded); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, err := table.SelectByID(id)
	if err != nil {
		t.Fatalf("SelectByID after update: %v", err)
	}
	if again.Name != "renamed" {
		t.Errorf("Name after update = %q", again.Name)
	}

	all, err := table.All()
	if err != nil || len(all) != 1 {
		t.Fatalf("All = %v, %v", all, err)
	}

	if err := table.Delete(again); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, err := table.Contains(id)
	if err != nil || ok {
		t.Errorf("Contains after delete = %v, %v", ok, err)
	}
	if _, err := table.SelectByID(id); !errors.Is(err, rowstore.ErrNotFound) {
		t.Errorf("SelectByID after delete: expected ErrNotFound, got %v", err)
	}
}

func TestTableIDsNeverReused(t *testing.T) {
	s := testutil.NewTempStore(t)
	table, err := rowstore.NewTable[*testutil.StorageTestData](s)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	var rows []*testutil.StorageTestData
	for i := 1; i <= 3; i++ {
		row := &testutil.StorageTestData{Number: i}
		id, err := table.Insert(row)
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if id != int64(i) {
			t.Errorf("id = %d, want %d", id, i)
		}
		rows = append(rows, row)
	}

	if err := table.Delete(rows[2]); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	id, err := table.Insert(&testutil.StorageTestData{Number: 4})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != 4 {
		t.Errorf("id after delete = %d, want 4", id)
	}

	// A second table handle on the same directory continues the sequence.
	reopened, err := rowstore.NewTable[*testutil.StorageTestData](s)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	id, err = reopened.Insert(&testutil.StorageTestData{Number: 5})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != 5 {
		t.Errorf("id from reopened table = %d, want 5", id)
	}

	all, err := reopened.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	var ids []int64
	for _, r := range all {
		id, _ := r.ID()
		ids = append(ids, id)
	}
	if diff := cmp.Diff([]int64{1, 2, 4, 5}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestTableConcurrentInserts(t *testing.T) {
	const workers, perWorker = 6, 15

	run := func(t *testing.T, tables func() *rowstore.Table[*testutil.StorageTestData]) {
		var wg sync.WaitGroup
		errs := make(chan error, workers*perWorker)
		ids := make(chan int64, workers*perWorker)

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				table := tables()
				for i := 0; i < perWorker; i++ {
					id, err := table.Insert(&testutil.StorageTestData{Number: w*100 + i})
					if err != nil {
						errs <- err
						return
					}
					ids <- id
				}
			}(w)
		}
		wg.Wait()
		close(errs)
		close(ids)

		for err := range errs {
			t.Errorf("concurrent insert failed: %v", err)
		}
		seen := make(map[int64]bool)
		for id := range ids {
			if seen[id] {
				t.Errorf("id %d issued twice", id)
			}
			seen[id] = true
		}
		if len(seen) != workers*perWorker {
			t.Errorf("expected %d distinct ids, got %d", workers*perWorker, len(seen))
		}

		all, err := tables().All()
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		if len(all) != workers*perWorker {
			t.Errorf("expected %d rows, got %d", workers*perWorker, len(all))
		}
	}

	t.Run("separate stores on disk", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "persistence")
		open := func() *rowstore.Table[*testutil.StorageTestData] {
			s, err := rowstore.Open(root)
			if err != nil {
				t.Errorf("Open: %v", err)
				return nil
			}
			table, err := rowstore.NewTable[*testutil.StorageTestData](s)
			if err != nil {
				t.Errorf("NewTable: %v", err)
			}
			return table
		}
		run(t, open)
	})

	t.Run("shared table in memory", func(t *testing.T) {
		s, _ := testutil.NewMemStore(t)
		table, err := rowstore.NewTable[*testutil.StorageTestData](s)
		if err != nil {
			t.Fatalf("NewTable: %v", err)
		}
		run(t, func() *rowstore.Table[*testutil.StorageTestData] { return table })
	})
}

func TestTableNotFound(t *testing.T) {
	s, _ := testutil.NewMemStore(t)
	table, err := rowstore.NewTable[*testutil.StorageTestData](s)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	if _, err := table.SelectByID(99); !errors.Is(err, rowstore.ErrNotFound) {
		t.Errorf("SelectByID: expected ErrNotFound, got %v", err)
	}
	if err := table.Update(99, &testutil.StorageTestData{}); !errors.Is(err, rowstore.ErrNotFound) {
		t.Errorf("Update: expected ErrNotFound, got %v", err)
	}
	ok, err := table.Contains(99)
	if err != nil || ok {
		t.Errorf("Contains = %v, %v", ok, err)
	}
}

func TestTableSchemaMismatch(t *testing.T) {
	s, _ := testutil.NewMemStore(t)
	table, err := rowstore.NewTable[*testutil.StorageTestData](s)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	doc, err := codec.Marshal(s.Codec(), &Gadget{Label: "impostor"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := table.Dir().Create(7, doc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := table.SelectByID(7); !errors.Is(err, rowstore.ErrSchemaMismatch) {
		t.Errorf("SelectByID: expected ErrSchemaMismatch, got %v", err)
	}
	if _, err := table.All(); !errors.Is(err, rowstore.ErrSchemaMismatch) {
		t.Errorf("All: expected ErrSchemaMismatch, got %v", err)
	}
}

func TestTableInsertAndUpdateIDs(t *testing.T) {
	s, _ := testutil.NewMemStore(t)
	table, err := rowstore.NewTable[*Gadget](s)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	g := &Gadget{Label: "first"}
	first, _ := table.Insert(g)
	second, err := table.Insert(g)
	if err != nil {
		t.Fatalf("second Insert: %v", err)
	}
	if second == first {
		t.Error("inserting a persisted value must allocate a new row")
	}
	if id, _ := g.ID(); id != second {
		t.Errorf("value id = %d, want %d", id, second)
	}

	fresh := &Gadget{Label: "replacement"}
	if err := table.Update(first, fresh); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if id, ok := fresh.ID(); !ok || id != first {
		t.Errorf("updated value id = %d, %v, want %d", id, ok, first)
	}
	got, _ := table.SelectByID(first)
	if got.Label != "replacement" {
		t.Errorf("Label = %q", got.Label)
	}
}

func TestTableDelete(t *testing.T) {
	s, _ := testutil.NewMemStore(t)
	table, err := rowstore.NewTable[*Gadget](s)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	if err := table.Delete(&Gadget{}); err != nil {
		t.Errorf("Delete of unpersisted value: %v", err)
	}

	g := &Gadget{Label: "x"}
	if _, err := table.Insert(g); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := table.Delete(g); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := table.Delete(g); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestTableAllSkipsHiddenFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s, _ := testutil.NewMemStore(t, rowstore.WithFs(fsys))
	table, err := rowstore.NewTable[*Gadget](s)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if _, err := table.Insert(&Gadget{Label: "visible"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	hidden := filepath.Join(table.Dir().Path(), ".2.tmp-1")
	if err := afero.WriteFile(fsys, hidden, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write hidden file: %v", err)
	}

	all, err := table.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 || all[0].Label != "visible" {
		t.Errorf("All = %+v", all)
	}
}

func TestTableInsertFailureKeepsID(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s, _ := testutil.NewMemStore(t, rowstore.WithFs(fsys))
	table, err := rowstore.NewTable[*Gadget](s)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	stored := &Gadget{Label: "stored"}
	if _, err := table.Insert(stored); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Occupy the next row so the write fails after the id is allocated.
	if err := afero.WriteFile(fsys, table.Dir().RowPath(2), []byte("taken"), 0o644); err != nil {
		t.Fatalf("write row file: %v", err)
	}

	fresh := &Gadget{Label: "fresh"}
	if _, err := table.Insert(fresh); !errors.Is(err, rowstore.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if fresh.IsPersisted() {
		t.Errorf("failed insert left id on new value")
	}

	if _, err := table.Insert(stored); err != nil {
		t.Fatalf("Insert of stored value: %v", err)
	}
	if id, _ := stored.ID(); id != 3 {
		t.Errorf("reinserted id = %d, want 3", id)
	}

	if err := afero.WriteFile(fsys, table.Dir().RowPath(4), []byte("taken"), 0o644); err != nil {
		t.Fatalf("write row file: %v", err)
	}
	if _, err := table.Insert(stored); !errors.Is(err, rowstore.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if id, _ := stored.ID(); id != 3 {
		t.Errorf("id after failed reinsert = %d, want 3", id)
	}
}

func TestTableName(t *testing.T) {
	s, _ := testutil.NewMemStore(t)
	table, err := rowstore.NewTable[*testutil.StorageTestData](s)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if table.Name() != "storagetestdata" {
		t.Errorf("Name = %q", table.Name())
	}
	if filepath.Base(table.Dir().Path()) != table.Name() {
		t.Errorf("Dir = %q", table.Dir().Path())
	}
}

func TestLibraryRoundTrip(t *testing.T) {
	_, books, library := testutil.LoadLibrary(t)

	opts := []cmp.Option{
		cmp.AllowUnexported(rowstore.Identity{}),
		cmpopts.EquateEmpty(),
	}
	for _, want := range library.Books {
		t.Run(want.Title, func(t *testing.T) {
			id, _ := want.ID()
			got, err := books.SelectByID(id)
			if err != nil {
				t.Fatalf("SelectByID: %v", err)
			}

			expected := *want
			// "null" is the absent sentinel and reads back as nil.
			if expected.ISBN != nil && *expected.ISBN == codec.NullText {
				expected.ISBN = nil
			}
			if diff := cmp.Diff(&expected, got, opts...); diff != "" {
				t.Errorf("row mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
