package database

import (
	"github.com/sirupsen/logrus"

	"govetachun/go-page-db/internal/catalog"
	"govetachun/go-page-db/internal/logger"
	"govetachun/go-page-db/internal/record"
	"govetachun/go-page-db/internal/storage"
	"govetachun/go-page-db/internal/transaction"
	dberrors "govetachun/go-page-db/pkg/errors"
	"govetachun/go-page-db/pkg/utils"
)

// Scanner walks a table's pages in ascending page id order within one
// transaction. It stops at the first never-written page or at the catalog's
// page counter, whichever comes first, and skips tombstones and rows of
// other tables.
//
//	sc, err := table.NewScanner(rtx, storage.FirstDataPageID, 0)
//	for sc.Next() {
//		res := sc.Result()
//		...
//	}
//	err = sc.Err()
type Scanner struct {
	table  *Table
	reader transaction.PageReader
	pos    storage.PageID
	limit  storage.PageID

	cur   ScanResult
	valid bool
	err   error
}

// NewScanner starts a scan at page from and stops before page to. The bound
// never exceeds the page counter of the catalog visible to reader; a zero
// to means that counter.
func (t *Table) NewScanner(reader transaction.PageReader, from, to storage.PageID) (*Scanner, error) {
	if from < storage.FirstDataPageID {
		from = storage.FirstDataPageID
	}
	cat, err := catalog.Load(reader)
	if err != nil {
		return nil, err
	}
	limit := cat.NextPage
	if to > 0 && to < limit {
		limit = to
	}
	return &Scanner{table: t, reader: reader, pos: from, limit: limit}, nil
}

// Next advances to the next live or corrupt page. It returns false at the
// end of the table or on a read error.
func (sc *Scanner) Next() bool {
	sc.valid = false
	for sc.err == nil && sc.pos < sc.limit {
		id := sc.pos
		sc.pos++

		page, err := sc.reader.ReadPage(id)
		if err != nil {
			sc.err = err
			return false
		}
		if utils.IsZero(page) {
			sc.pos = sc.limit
			return false
		}

		slot, err := record.Decode(page)
		if err != nil {
			sc.table.stats.corrupt.Add(1)
			logger.WithFields(logrus.Fields{
				"table": sc.table.Name(),
				"page":  id,
			}).Warnf("skipping corrupt page: %v", err)
			sc.cur = ScanResult{PageID: id, Err: dberrors.CorruptPage(int64(id), err)}
			sc.valid = true
			return true
		}
		if live, ok := slot.(record.LiveRow); ok && live.Table == sc.table.Name() {
			sc.cur = ScanResult{PageID: id, Row: live.Row}
			sc.valid = true
			return true
		}
	}
	return false
}

// Valid reports whether Result holds a page.
func (sc *Scanner) Valid() bool {
	return sc.valid
}

// Result returns the current page.
func (sc *Scanner) Result() ScanResult {
	return sc.cur
}

// Position returns the page id the next call to Next examines first. A new
// scanner started there resumes the scan.
func (sc *Scanner) Position() storage.PageID {
	return sc.pos
}

// Err returns the read error that ended the scan, if any.
func (sc *Scanner) Err() error {
	return sc.err
}
