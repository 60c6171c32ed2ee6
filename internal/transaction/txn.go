package transaction

import (
	"sync"
	"sync/atomic"
	"time"

	"govetachun/go-page-db/internal/concurrency"
	"govetachun/go-page-db/internal/logger"
	"govetachun/go-page-db/internal/storage"
	dberrors "govetachun/go-page-db/pkg/errors"
	"govetachun/go-page-db/pkg/utils"
)

// ReadTxn observes the store as of one commit sequence.
type ReadTxn struct {
	id       TransactionID
	mgr      *Manager
	snap     concurrency.Snapshot
	start    time.Time
	released atomic.Bool
}

// ReadPage returns page id as of the snapshot.
func (tx *ReadTxn) ReadPage(id storage.PageID) ([]byte, error) {
	if tx.released.Load() {
		return nil, dberrors.ErrTxnNotActive
	}
	return tx.mgr.store.ReadPage(id, tx.snap.Seq)
}

// Snapshot returns the commit sequence this transaction observes.
func (tx *ReadTxn) Snapshot() uint64 {
	return tx.snap.Seq
}

// Release ends the transaction and unpins its snapshot. It is safe to call
// more than once.
func (tx *ReadTxn) Release() {
	if tx.released.CompareAndSwap(false, true) {
		tx.mgr.snapshots.Release(tx.snap.ID)
	}
}

// Info describes the transaction.
func (tx *ReadTxn) Info() TransactionInfo {
	status := StatusActive
	if tx.released.Load() {
		status = StatusReleased
	}
	return TransactionInfo{
		ID:        tx.id,
		Kind:      KindRead,
		Status:    status,
		Snapshot:  tx.snap.Seq,
		StartTime: tx.start,
	}
}

// WriteTxn buffers page writes until Commit. It holds the writer slot from
// creation until Commit or Abort and is not safe for concurrent use.
type WriteTxn struct {
	id       TransactionID
	mgr      *Manager
	snapshot uint64
	start    time.Time

	mu          sync.Mutex
	status      TransactionStatus
	pages       map[storage.PageID][]byte
	afterCommit []func(seq uint64)
	afterAbort  []func()
}

// ReadPage returns the buffered page if this transaction wrote it, else the
// page as of the transaction's begin-time snapshot.
func (tx *WriteTxn) ReadPage(id storage.PageID) ([]byte, error) {
	if err := storage.ValidatePageID(id); err != nil {
		return nil, err
	}
	tx.mu.Lock()
	if tx.status != StatusActive {
		tx.mu.Unlock()
		return nil, dberrors.ErrTxnNotActive
	}
	if page, ok := tx.pages[id]; ok {
		out := make([]byte, len(page))
		copy(out, page)
		tx.mu.Unlock()
		return out, nil
	}
	tx.mu.Unlock()
	return tx.mgr.store.ReadPage(id, tx.snapshot)
}

// WritePage buffers data for page id, zero padded to the page size.
func (tx *WriteTxn) WritePage(id storage.PageID, data []byte) error {
	if err := storage.ValidatePageID(id); err != nil {
		return err
	}
	if err := storage.CheckPayload(data); err != nil {
		return err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.status != StatusActive {
		return dberrors.ErrTxnNotActive
	}
	tx.pages[id] = utils.PadTo(data, storage.PageSize)
	return nil
}

// AfterCommit registers fn to run after a successful commit, before the
// writer slot is handed to the next writer.
func (tx *WriteTxn) AfterCommit(fn func(seq uint64)) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.afterCommit = append(tx.afterCommit, fn)
}

// AfterAbort registers fn to run when the transaction aborts, explicitly or
// because its commit failed.
func (tx *WriteTxn) AfterAbort(fn func()) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.afterAbort = append(tx.afterAbort, fn)
}

// Commit makes every buffered page durable and visible to readers that
// begin afterwards. On failure nothing becomes visible and the transaction
// is aborted.
func (tx *WriteTxn) Commit() (uint64, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.status != StatusActive {
		return 0, dberrors.ErrTxnNotActive
	}

	seq := tx.snapshot
	if len(tx.pages) > 0 {
		var err error
		seq, err = tx.mgr.store.Commit(tx.pages)
		if err != nil {
			logger.Errorf("txn %d: commit of %d pages failed: %v", tx.id, len(tx.pages), err)
			tx.finishAbort()
			return 0, err
		}
	}

	tx.status = StatusCommitted
	tx.pages = nil
	for _, fn := range tx.afterCommit {
		fn(seq)
	}
	tx.mgr.commits.Add(1)
	tx.mgr.writer.Unlock()
	return seq, nil
}

// Abort discards the buffered writes and releases the writer slot.
func (tx *WriteTxn) Abort() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.status != StatusActive {
		return dberrors.ErrTxnNotActive
	}
	tx.finishAbort()
	return nil
}

func (tx *WriteTxn) finishAbort() {
	tx.status = StatusAborted
	tx.pages = nil
	for _, fn := range tx.afterAbort {
		fn()
	}
	tx.mgr.aborts.Add(1)
	tx.mgr.writer.Unlock()
}

// Snapshot returns the commit sequence this transaction started from.
func (tx *WriteTxn) Snapshot() uint64 {
	return tx.snapshot
}

// Info describes the transaction.
func (tx *WriteTxn) Info() TransactionInfo {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return TransactionInfo{
		ID:        tx.id,
		Kind:      KindWrite,
		Status:    tx.status,
		Snapshot:  tx.snapshot,
		StartTime: tx.start,
		Pages:     len(tx.pages),
	}
}
