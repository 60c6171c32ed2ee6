package database

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"govetachun/go-page-db/internal/catalog"
	"govetachun/go-page-db/internal/join"
	"govetachun/go-page-db/internal/logger"
	"govetachun/go-page-db/internal/record"
	"govetachun/go-page-db/internal/storage"
	"govetachun/go-page-db/internal/transaction"
	dberrors "govetachun/go-page-db/pkg/errors"
)

// Table is a named set of rows, one row per page, sharing the page space
// with every other table of the database.
type Table struct {
	db     *Database
	schema catalog.TableSchema

	// mu guards indexes. They change only in commit hooks, which run while
	// the writer slot is held.
	mu      sync.RWMutex
	indexes map[string]*Index

	stats struct {
		inserts atomic.Uint64
		deletes atomic.Uint64
		updates atomic.Uint64
		corrupt atomic.Uint64
	}
}

func newTable(db *Database, schema catalog.TableSchema) *Table {
	t := &Table{
		db:      db,
		schema:  schema.Clone(),
		indexes: make(map[string]*Index),
	}
	pk, hasPK := schema.PrimaryKey()
	for _, name := range schema.IndexedColumns() {
		col, _ := schema.Column(name)
		t.indexes[name] = newIndex(name, col.Type, hasPK && name == pk)
	}
	return t
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.schema.Name
}

// Schema returns a copy of the table schema.
func (t *Table) Schema() catalog.TableSchema {
	return t.schema.Clone()
}

// Insert validates row against the schema and its constraints and stores it
// on a freshly allocated page.
func (t *Table) Insert(row record.Row) error {
	if err := t.schema.ValidateRow(row); err != nil {
		return err
	}
	row = t.schema.Normalize(row)
	page, err := record.Encode(record.LiveRow{Table: t.Name(), Row: row})
	if err != nil {
		return err
	}

	wtx := t.db.txm.BeginWrite()
	if err := t.insertLocked(wtx, row, page, 0); err != nil {
		wtx.Abort()
		return err
	}
	wtx.AfterCommit(func(uint64) { t.stats.inserts.Add(1) })
	if _, err := wtx.Commit(); err != nil {
		return err
	}
	t.db.rowWritten()
	return nil
}

// insertLocked allocates a page for row and writes it together with the
// catalog. ignore is a page whose index entries do not count as conflicts.
func (t *Table) insertLocked(wtx *transaction.WriteTxn, row record.Row, page []byte, ignore storage.PageID) error {
	if err := t.checkConstraints(row, ignore); err != nil {
		return err
	}
	id, err := t.db.alloc.Allocate(wtx)
	if err != nil {
		return err
	}
	if err := wtx.WritePage(id, page); err != nil {
		return err
	}
	if err := t.db.writeCatalog(wtx); err != nil {
		return err
	}
	wtx.AfterCommit(func(uint64) { t.indexRow(row, id) })
	return nil
}

func (t *Table) checkConstraints(row record.Row, ignore storage.PageID) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for name, idx := range t.indexes {
		v := row.Get(name)
		if v == nil {
			continue
		}
		id, exists := idx.Lookup(*v)
		if !exists || (ignore != 0 && id == ignore) {
			continue
		}
		if idx.Primary {
			return dberrors.Newf(dberrors.ErrCodeDuplicateKey,
				"table %s: primary key %s=%s already exists", t.Name(), name, v)
		}
		return dberrors.Newf(dberrors.ErrCodeDuplicateUnique,
			"table %s: unique column %s=%s already exists", t.Name(), name, v)
	}
	return nil
}

func (t *Table) indexRow(row record.Row, id storage.PageID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name, idx := range t.indexes {
		if v := row.Get(name); v != nil {
			idx.Add(*v, id)
		}
	}
}

func (t *Table) unindexRow(row record.Row, id storage.PageID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name, idx := range t.indexes {
		if v := row.Get(name); v != nil {
			idx.Remove(*v, id)
		}
	}
}

// locate finds the page of the live row whose keyCol equals keyVal and
// reads that row through wtx.
func (t *Table) locate(wtx *transaction.WriteTxn, keyCol string, keyVal record.Value) (storage.PageID, record.Row, error) {
	t.mu.RLock()
	idx, ok := t.indexes[keyCol]
	var id storage.PageID
	found := false
	if ok {
		id, found = idx.Lookup(keyVal)
	}
	t.mu.RUnlock()

	if !ok {
		return 0, record.Row{}, dberrors.Newf(dberrors.ErrCodeNoIndexForColumn,
			"table %s: column %s is neither primary key nor unique", t.Name(), keyCol)
	}
	if !found {
		return 0, record.Row{}, dberrors.Newf(dberrors.ErrCodeRowNotFound,
			"table %s: no row with %s=%s", t.Name(), keyCol, keyVal)
	}

	page, err := wtx.ReadPage(id)
	if err != nil {
		return 0, record.Row{}, err
	}
	slot, err := record.Decode(page)
	if err != nil {
		return 0, record.Row{}, dberrors.CorruptPage(int64(id), err)
	}
	live, ok := slot.(record.LiveRow)
	if !ok || live.Table != t.Name() {
		return 0, record.Row{}, dberrors.CorruptPage(int64(id),
			dberrors.Newf(dberrors.ErrCodeRowNotFound, "index points at a page without a live %s row", t.Name()))
	}
	return id, live.Row, nil
}

// Delete tombstones the row whose primary key or unique column keyCol
// equals keyVal.
func (t *Table) Delete(keyCol string, keyVal record.Value) error {
	tomb, err := record.Encode(record.Tombstone{Table: t.Name()})
	if err != nil {
		return err
	}

	wtx := t.db.txm.BeginWrite()
	id, old, err := t.locate(wtx, keyCol, keyVal)
	if err != nil {
		wtx.Abort()
		return err
	}
	if err := wtx.WritePage(id, tomb); err != nil {
		wtx.Abort()
		return err
	}
	wtx.AfterCommit(func(uint64) {
		t.unindexRow(old, id)
		t.stats.deletes.Add(1)
	})
	_, err = wtx.Commit()
	return err
}

// Update replaces the row whose keyCol equals keyVal with row. The old page
// is tombstoned and the new row goes to a new page; both happen in one
// transaction. Constraints ignore the row being replaced.
func (t *Table) Update(keyCol string, keyVal record.Value, row record.Row) error {
	if err := t.schema.ValidateRow(row); err != nil {
		return err
	}
	row = t.schema.Normalize(row)
	page, err := record.Encode(record.LiveRow{Table: t.Name(), Row: row})
	if err != nil {
		return err
	}
	tomb, err := record.Encode(record.Tombstone{Table: t.Name()})
	if err != nil {
		return err
	}

	wtx := t.db.txm.BeginWrite()
	oldID, old, err := t.locate(wtx, keyCol, keyVal)
	if err == nil {
		err = wtx.WritePage(oldID, tomb)
	}
	if err == nil {
		// unindex before the new row is indexed by insertLocked's hook
		wtx.AfterCommit(func(uint64) { t.unindexRow(old, oldID) })
		err = t.insertLocked(wtx, row, page, oldID)
	}
	if err != nil {
		wtx.Abort()
		return err
	}
	wtx.AfterCommit(func(uint64) { t.stats.updates.Add(1) })
	if _, err := wtx.Commit(); err != nil {
		return err
	}
	t.db.rowWritten()
	return nil
}

// Select returns every live row in page id order.
func (t *Table) Select() ([]record.Row, error) {
	return t.selectRows(storage.FirstDataPageID, 0, "", record.Value{}, false)
}

// SelectRange returns the live rows stored on pages [from, to). A zero to
// means no upper bound.
func (t *Table) SelectRange(from, to storage.PageID) ([]record.Row, error) {
	return t.selectRows(from, to, "", record.Value{}, false)
}

// SelectWhere returns the live rows whose column col equals val. Values of
// a different type never match.
func (t *Table) SelectWhere(col string, val record.Value) ([]record.Row, error) {
	if _, ok := t.schema.Column(col); !ok {
		return nil, dberrors.Newf(dberrors.ErrCodeUnknownColumn, "table %s has no column %s", t.Name(), col)
	}
	return t.selectRows(storage.FirstDataPageID, 0, col, val, true)
}

func (t *Table) selectRows(from, to storage.PageID, col string, val record.Value, filter bool) ([]record.Row, error) {
	rtx := t.db.txm.BeginRead()
	defer rtx.Release()

	sc, err := t.NewScanner(rtx, from, to)
	if err != nil {
		return nil, err
	}
	var rows []record.Row
	for sc.Next() {
		res := sc.Result()
		if res.Err != nil {
			continue
		}
		if filter {
			v := res.Row.Get(col)
			if v == nil || !v.Equal(val) {
				continue
			}
		}
		rows = append(rows, res.Row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// HashJoin joins this table (the build side) with other (the probe side)
// on t.selfKey = other.otherKey. Output rows hold other's columns first;
// on a column name clash the value from this table wins.
func (t *Table) HashJoin(other *Table, selfKey, otherKey string) ([]record.Row, error) {
	if _, ok := t.schema.Column(selfKey); !ok {
		return nil, dberrors.Newf(dberrors.ErrCodeUnknownColumn, "table %s has no column %s", t.Name(), selfKey)
	}
	if _, ok := other.schema.Column(otherKey); !ok {
		return nil, dberrors.Newf(dberrors.ErrCodeUnknownColumn, "table %s has no column %s", other.Name(), otherKey)
	}

	var inner, outer []record.Row
	var g errgroup.Group
	g.Go(func() error {
		var err error
		inner, err = t.Select()
		return err
	})
	g.Go(func() error {
		var err error
		outer, err = other.Select()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cfg := t.db.cfg
	return join.HashJoin(inner, outer, selfKey, otherKey, join.Options{
		MaxOutputBytes: cfg.JoinOutputLimit,
		StrictTypes:    cfg.JoinStrictTypes,
	})
}

// rebuildIndexes refills the indexes from the committed pages.
func (t *Table) rebuildIndexes() error {
	rtx := t.db.txm.BeginRead()
	defer rtx.Release()

	sc, err := t.NewScanner(rtx, storage.FirstDataPageID, 0)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, idx := range t.indexes {
		idx.Clear()
	}

	batch := t.db.cfg.RebuildBatch
	entry := logger.WithFields(logrus.Fields{"table": t.Name()})
	rows, skipped := 0, 0
	for sc.Next() {
		res := sc.Result()
		if res.Err != nil {
			skipped++
			continue
		}
		for name, idx := range t.indexes {
			v := res.Row.Get(name)
			if v == nil {
				continue
			}
			if prev, dup := idx.Lookup(*v); dup {
				entry.Warnf("column %s value %s on pages %d and %d, keeping the later", name, v, prev, res.PageID)
			}
			idx.Add(*v, res.PageID)
		}
		rows++
		if batch > 0 && rows%batch == 0 {
			entry.WithField("position", sc.Position()).Debugf("rebuilt %d rows", rows)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	entry.WithFields(logrus.Fields{"rows": rows, "corrupt": skipped}).Info("indexes rebuilt")
	return nil
}

// Stats returns table statistics
func (t *Table) Stats() TableStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sizes := make(map[string]int, len(t.indexes))
	for name, idx := range t.indexes {
		sizes[name] = idx.Len()
	}
	return TableStats{
		Name:         t.Name(),
		Inserts:      t.stats.inserts.Load(),
		Deletes:      t.stats.deletes.Load(),
		Updates:      t.stats.updates.Load(),
		CorruptPages: t.stats.corrupt.Load(),
		IndexSizes:   sizes,
	}
}
