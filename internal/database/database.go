package database

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"govetachun/go-page-db/internal/catalog"
	"govetachun/go-page-db/internal/config"
	"govetachun/go-page-db/internal/logger"
	"govetachun/go-page-db/internal/storage"
	"govetachun/go-page-db/internal/storage/disk"
	"govetachun/go-page-db/internal/transaction"
	dberrors "govetachun/go-page-db/pkg/errors"
	"govetachun/go-page-db/pkg/utils"
)

// Database is a single-file paged database: a page store, its transaction
// manager, the catalog on page 0 and the tables it describes.
type Database struct {
	Path string

	cfg   *config.Config
	store *disk.Store
	txm   *transaction.Manager
	alloc *allocator

	// mu guards catalog, tables and order. Writers take it only while
	// holding the writer slot, never the other way round.
	mu      sync.RWMutex
	catalog *catalog.Catalog
	tables  map[string]*Table
	order   []string

	written atomic.Uint64
	closed  atomic.Bool
}

// Open opens or creates the database at path. cfg may be nil for defaults.
func Open(path string, cfg *config.Config) (*Database, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	store, err := disk.Open(path, disk.OptionsFromConfig(cfg))
	if err != nil {
		return nil, err
	}

	db := &Database{
		Path:   path,
		cfg:    cfg,
		store:  store,
		txm:    transaction.NewManager(store),
		tables: make(map[string]*Table),
	}
	if err := db.load(); err != nil {
		store.Close()
		return nil, err
	}

	if _, err := db.txm.Checkpoint(); err != nil {
		logger.Errorf("checkpoint after opening %s: %v", path, err)
	}
	logger.WithFields(logrus.Fields{
		"path":      path,
		"tables":    len(db.order),
		"next_page": db.alloc.Committed(),
	}).Info("database opened")
	return db, nil
}

// load reads the catalog, creating it on first open, and rebuilds every
// table's indexes.
func (db *Database) load() error {
	rtx := db.txm.BeginRead()
	page, err := rtx.ReadPage(storage.CatalogPageID)
	rtx.Release()
	if err != nil {
		return err
	}
	cat, err := catalog.Decode(page)
	if err != nil {
		return err
	}
	db.catalog = cat
	db.alloc = newAllocator(cat.NextPage)

	if utils.IsZero(page) {
		wtx := db.txm.BeginWrite()
		if err := catalog.Save(wtx, cat); err != nil {
			wtx.Abort()
			return err
		}
		if _, err := wtx.Commit(); err != nil {
			return err
		}
	}

	for _, schema := range cat.Tables {
		t := newTable(db, schema)
		if err := t.rebuildIndexes(); err != nil {
			return err
		}
		db.tables[schema.Name] = t
		db.order = append(db.order, schema.Name)
	}
	return nil
}

// CreateTable adds a table to the catalog. The table exists once the
// catalog commit succeeds; on any error it is absent.
func (db *Database) CreateTable(name string, columns []catalog.ColumnSpec) (*Table, error) {
	if db.closed.Load() {
		return nil, dberrors.ErrStoreClosed
	}
	schema := catalog.TableSchema{Name: name, Columns: columns}
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	wtx := db.txm.BeginWrite()
	db.mu.RLock()
	cat := db.catalog.Clone()
	db.mu.RUnlock()

	if err := cat.AddTable(schema); err != nil {
		wtx.Abort()
		return nil, err
	}
	cat.NextPage = db.alloc.Next()
	if err := catalog.Save(wtx, cat); err != nil {
		wtx.Abort()
		return nil, err
	}

	t := newTable(db, schema)
	wtx.AfterCommit(func(uint64) {
		db.mu.Lock()
		defer db.mu.Unlock()
		db.catalog = cat
		db.tables[name] = t
		db.order = append(db.order, name)
	})
	if _, err := wtx.Commit(); err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"table": name, "columns": len(columns)}).Info("table created")
	return t, nil
}

// GetTable returns the named table.
func (db *Database) GetTable(name string) (*Table, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	t, ok := db.tables[name]
	if !ok {
		return nil, dberrors.Newf(dberrors.ErrCodeUnknownTable, "table %s does not exist", name)
	}
	return t, nil
}

// ListTables returns table names in creation order.
func (db *Database) ListTables() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]string(nil), db.order...)
}

// writeCatalog writes the catalog with the allocator's current counter into
// wtx. Must be called after the transaction's allocations.
func (db *Database) writeCatalog(wtx *transaction.WriteTxn) error {
	db.mu.RLock()
	cat := db.catalog.Clone()
	db.mu.RUnlock()

	cat.NextPage = db.alloc.Next()
	if err := catalog.Save(wtx, cat); err != nil {
		return err
	}
	wtx.AfterCommit(func(uint64) {
		db.mu.Lock()
		defer db.mu.Unlock()
		db.catalog = cat
	})
	return nil
}

// rowWritten counts committed row writes and runs the periodic checkpoint.
func (db *Database) rowWritten() {
	every := db.cfg.CheckpointEvery
	if n := db.written.Add(1); every > 0 && n%uint64(every) == 0 {
		if _, err := db.txm.Checkpoint(); err != nil {
			logger.Errorf("automatic checkpoint of %s: %v", db.Path, err)
		}
	}
}

// Checkpoint folds committed log contents into the base file.
func (db *Database) Checkpoint() (storage.CheckpointStats, error) {
	if db.closed.Load() {
		return storage.CheckpointStats{}, dberrors.ErrStoreClosed
	}
	stats, err := db.txm.Checkpoint()
	if err != nil {
		return stats, err
	}
	logger.WithFields(logrus.Fields{
		"folded": stats.PagesFolded,
		"reset":  stats.LogReset,
	}).Info("checkpoint")
	return stats, nil
}

// Stats returns database statistics
func (db *Database) Stats() DatabaseStats {
	db.mu.RLock()
	tables := len(db.tables)
	db.mu.RUnlock()
	return DatabaseStats{
		Path:     db.Path,
		Tables:   tables,
		NextPage: db.alloc.Committed(),
		Store:    db.store.Stats(),
		Txn:      db.txm.Stats(),
	}
}

// Close checkpoints and releases the files. The database must not be used
// afterwards.
func (db *Database) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	if _, err := db.txm.Checkpoint(); err != nil {
		logger.Errorf("checkpoint on close of %s: %v", db.Path, err)
	}
	return db.store.Close()
}
