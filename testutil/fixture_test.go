package testutil

import (
	"testing"
)

func TestLoadLibrary(t *testing.T) {
	s, books, library := LoadLibrary(t)

	if s == nil || books == nil {
		t.Fatal("store and table should not be nil")
	}
	if len(library.Books) != 4 {
		t.Fatalf("expected 4 books, got %d", len(library.Books))
	}

	// IDs follow insertion order
	for i, b := range library.Books {
		id, ok := b.ID()
		if !ok || id != int64(i+1) {
			t.Errorf("book %q: id %d, %v", b.Title, id, ok)
		}
	}

	rows, err := books.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(rows) != len(library.Books) {
		t.Errorf("expected %d rows, got %d", len(library.Books), len(rows))
	}

	if books.Name() != "book" {
		t.Errorf("table name = %q, want %q", books.Name(), "book")
	}

	tables, err := s.Tables()
	if err != nil || len(tables) != 1 || tables[0] != "book" {
		t.Errorf("Tables = %v, %v", tables, err)
	}
}

func TestNewMemStore(t *testing.T) {
	s, locks := NewMemStore(t)
	if locks == nil {
		t.Fatal("expected a lock factory")
	}
	tables, err := s.Tables()
	if err != nil || len(tables) != 0 {
		t.Errorf("Tables of empty store = %v, %v", tables, err)
	}
}
