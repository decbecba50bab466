// Package testutil provides row types, fixtures and stores for tests.
package testutil

import (
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/arthur-debert/rowstore/rowstore"
	"github.com/arthur-debert/rowstore/rowstore/store"
)

// StorageTestData is the smallest useful row type.
type StorageTestData struct {
	rowstore.Identity
	Number int
	Name   string
	State  bool
}

// Book exercises every container kind and several converters.
type Book struct {
	rowstore.Identity
	Title     string
	Authors   []string
	Tags      map[string]struct{}
	Ratings   map[string]int
	Published time.Time
	Cover     color.RGBA
	ISBN      *string
	Notes     any
	Loaned    bool `rowstore:"-"`
}

// LibraryData provides typed access to the loaded fixture rows
type LibraryData struct {
	Books   []*Book
	ByTitle map[string]*Book
}

// fixtureBook represents the JSON structure in library.json
type fixtureBook struct {
	Title     string         `json:"title"`
	Authors   []string       `json:"authors"`
	Tags      []string       `json:"tags"`
	Ratings   map[string]int `json:"ratings"`
	Published time.Time      `json:"published"`
	Cover     [3]uint8       `json:"cover"`
	ISBN      *string        `json:"isbn"`
}

type fixtureData struct {
	Books []fixtureBook `json:"books"`
}

// NewTempStore opens a store on disk under t.TempDir(), with real file locks.
func NewTempStore(t *testing.T, opts ...rowstore.Option) *rowstore.Store {
	t.Helper()
	s, err := rowstore.Open(filepath.Join(t.TempDir(), "persistence"), opts...)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return s
}

// NewMemStore opens a store on an in-memory filesystem with mock locks.
func NewMemStore(t *testing.T, opts ...rowstore.Option) (*rowstore.Store, *store.MockFileLockFactory) {
	t.Helper()
	locks := store.NewMockFileLockFactory()
	opts = append([]rowstore.Option{
		rowstore.WithFs(store.NewMemFileSystem()),
		rowstore.WithLockFactory(locks),
	}, opts...)
	s, err := rowstore.Open("/persistence", opts...)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return s, locks
}

// LoadLibrary inserts the library fixture into a temp store and returns
// the store, the book table and the inserted rows in fixture order.
func LoadLibrary(t *testing.T) (*rowstore.Store, *rowstore.Table[*Book], *LibraryData) {
	t.Helper()

	s := NewTempStore(t)
	books, err := rowstore.NewTable[*Book](s)
	if err != nil {
		t.Fatalf("failed to open book table: %v", err)
	}

	data, err := os.ReadFile(FixturePath("library.json"))
	if err != nil {
		t.Fatalf("failed to read fixture file: %v", err)
	}
	var fixture fixtureData
	if err := json.Unmarshal(data, &fixture); err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	library := &LibraryData{ByTitle: make(map[string]*Book)}
	for _, fb := range fixture.Books {
		b := &Book{
			Title:     fb.Title,
			Authors:   fb.Authors,
			Tags:      make(map[string]struct{}, len(fb.Tags)),
			Ratings:   fb.Ratings,
			Published: fb.Published,
			Cover:     color.RGBA{R: fb.Cover[0], G: fb.Cover[1], B: fb.Cover[2], A: 0xff},
			ISBN:      fb.ISBN,
		}
		for _, tag := range fb.Tags {
			b.Tags[tag] = struct{}{}
		}
		if _, err := books.Insert(b); err != nil {
			t.Fatalf("failed to insert %q: %v", fb.Title, err)
		}
		library.Books = append(library.Books, b)
		library.ByTitle[b.Title] = b
	}
	return s, books, library
}

// FixturePath returns the path of a file in the testdata directory.
func FixturePath(name string) string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata", name)
}
