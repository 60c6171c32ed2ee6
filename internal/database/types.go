package database

import (
	"govetachun/go-page-db/internal/record"
	"govetachun/go-page-db/internal/storage"
	"govetachun/go-page-db/internal/transaction"
)

// ScanResult is one page yielded by a Scanner: a live row of the table, or
// a page that failed to decode (Err wraps ErrCorruptPage).
type ScanResult struct {
	PageID storage.PageID
	Row    record.Row
	Err    error
}

// TableStats represents table statistics
type TableStats struct {
	Name         string
	Inserts      uint64
	Deletes      uint64
	Updates      uint64
	CorruptPages uint64
	IndexSizes   map[string]int
}

// DatabaseStats represents database statistics
type DatabaseStats struct {
	Path     string
	Tables   int
	NextPage storage.PageID
	Store    storage.StoreStats
	Txn      transaction.Stats
}
