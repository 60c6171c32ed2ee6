package transaction

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"govetachun/go-page-db/internal/concurrency"
	"govetachun/go-page-db/internal/logger"
	"govetachun/go-page-db/internal/storage"
	dberrors "govetachun/go-page-db/pkg/errors"
)

// Manager issues read and write transactions over a page store. At most one
// write transaction is active at a time; readers never wait for it.
type Manager struct {
	store     storage.PageStore
	writer    *concurrency.WriterLock
	snapshots *concurrency.SnapshotRegistry

	nextID      atomic.Uint64
	commits     atomic.Uint64
	aborts      atomic.Uint64
	checkpoints atomic.Uint64
}

// NewManager creates a transaction manager over store.
func NewManager(store storage.PageStore) *Manager {
	return &Manager{
		store:     store,
		writer:    concurrency.NewWriterLock(),
		snapshots: concurrency.NewSnapshotRegistry(),
	}
}

// Store returns the underlying page store.
func (m *Manager) Store() storage.PageStore {
	return m.store
}

func (m *Manager) newID() TransactionID {
	return TransactionID(m.nextID.Add(1))
}

// BeginRead starts a read transaction pinned to the latest committed state.
func (m *Manager) BeginRead() *ReadTxn {
	snap := m.snapshots.Register(m.store.CommittedSeq)
	return &ReadTxn{
		id:    m.newID(),
		mgr:   m,
		snap:  snap,
		start: snap.StartTime,
	}
}

// BeginWrite starts a write transaction, waiting for the active writer to
// finish if there is one.
func (m *Manager) BeginWrite() *WriteTxn {
	m.writer.Lock()
	return m.newWriteTxn()
}

// TryBeginWrite starts a write transaction or fails with ErrWriterBusy.
func (m *Manager) TryBeginWrite() (*WriteTxn, error) {
	if !m.writer.TryLock() {
		return nil, dberrors.ErrWriterBusy
	}
	return m.newWriteTxn(), nil
}

func (m *Manager) newWriteTxn() *WriteTxn {
	return &WriteTxn{
		id:       m.newID(),
		mgr:      m,
		snapshot: m.store.CommittedSeq(),
		start:    time.Now(),
		pages:    make(map[storage.PageID][]byte),
		status:   StatusActive,
	}
}

// Checkpoint folds everything the oldest active reader can see into the
// base representation. It takes the writer slot for its duration, so it
// must not be called while the calling goroutine holds a write transaction.
func (m *Manager) Checkpoint() (storage.CheckpointStats, error) {
	m.writer.Lock()
	defer m.writer.Unlock()

	upTo := m.store.CommittedSeq()
	if oldest, ok := m.snapshots.Oldest(); ok && oldest < upTo {
		upTo = oldest
	}

	stats, err := m.store.Checkpoint(upTo)
	if err != nil {
		return stats, err
	}
	m.checkpoints.Add(1)
	logger.WithFields(logrus.Fields{
		"up_to":   upTo,
		"folded":  stats.PagesFolded,
		"pruned":  stats.VersionsPruned,
		"readers": m.snapshots.Active(),
		"reset":   stats.LogReset,
	}).Debug("checkpoint")
	return stats, nil
}

// Stats returns manager statistics
func (m *Manager) Stats() Stats {
	return Stats{
		Commits:       m.commits.Load(),
		Aborts:        m.aborts.Load(),
		Checkpoints:   m.checkpoints.Load(),
		ActiveReaders: m.snapshots.Active(),
		WriterWaits:   m.writer.GetStats().Waits,
		Writer:        m.writer.GetState(),
		CommittedSeq:  m.store.CommittedSeq(),
	}
}
