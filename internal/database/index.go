package database

import (
	"govetachun/go-page-db/internal/record"
	"govetachun/go-page-db/internal/storage"
)

// Index maps the values of one primary key or unique column to the page
// holding the live row with that value. It is rebuilt from the pages when
// a table is loaded and never persisted. The owning Table synchronizes access.
type Index struct {
	Column  string
	Type    record.Type
	Primary bool
	entries map[record.Key]storage.PageID
}

func newIndex(column string, typ record.Type, primary bool) *Index {
	return &Index{
		Column:  column,
		Type:    typ,
		Primary: primary,
		entries: make(map[record.Key]storage.PageID),
	}
}

// Lookup returns the page holding value.
func (idx *Index) Lookup(v record.Value) (storage.PageID, bool) {
	id, ok := idx.entries[v.Key()]
	return id, ok
}

// Add points value at page id, replacing any previous entry.
func (idx *Index) Add(v record.Value, id storage.PageID) {
	idx.entries[v.Key()] = id
}

// Remove drops value if it still points at page id.
func (idx *Index) Remove(v record.Value, id storage.PageID) {
	k := v.Key()
	if cur, ok := idx.entries[k]; ok && cur == id {
		delete(idx.entries, k)
	}
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Clear removes every entry.
func (idx *Index) Clear() {
	idx.entries = make(map[record.Key]storage.PageID)
}
