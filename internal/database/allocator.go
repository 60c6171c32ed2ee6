package database

import (
	"sync"

	"govetachun/go-page-db/internal/storage"
	"govetachun/go-page-db/internal/transaction"
	dberrors "govetachun/go-page-db/pkg/errors"
)

// allocator hands out page ids. Ids reserved by a write transaction become
// permanent only when it commits; an abort returns them.
type allocator struct {
	mu      sync.Mutex
	next    storage.PageID // first id not used by any committed row
	pending storage.PageID
	owner   *transaction.WriteTxn
}

func newAllocator(next storage.PageID) *allocator {
	if next < storage.FirstDataPageID {
		next = storage.FirstDataPageID
	}
	return &allocator{next: next}
}

// Allocate reserves the next page id for wtx.
func (a *allocator) Allocate(wtx *transaction.WriteTxn) (storage.PageID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.next + a.pending
	if id > storage.MaxPageID {
		return 0, dberrors.Newf(dberrors.ErrCodeInvalidPageID, "page space exhausted at %d", id)
	}

	if a.owner != wtx {
		a.owner = wtx
		a.pending = 0
		wtx.AfterCommit(func(uint64) { a.settle(wtx, true) })
		wtx.AfterAbort(func() { a.settle(wtx, false) })
	}
	a.pending++
	return id, nil
}

func (a *allocator) settle(wtx *transaction.WriteTxn, committed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.owner != wtx {
		return
	}
	if committed {
		a.next += a.pending
	}
	a.pending = 0
	a.owner = nil
}

// Next returns the counter value to persist: one past every committed or
// currently reserved id.
func (a *allocator) Next() storage.PageID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next + a.pending
}

// Committed returns the counter value as of the last commit.
func (a *allocator) Committed() storage.PageID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}
