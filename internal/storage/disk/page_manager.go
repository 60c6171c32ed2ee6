package disk

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"govetachun/go-page-db/internal/config"
	"govetachun/go-page-db/internal/logger"
	"govetachun/go-page-db/internal/storage"
	dberrors "govetachun/go-page-db/pkg/errors"
	"govetachun/go-page-db/pkg/utils"
)

// Options configures a Store.
type Options struct {
	SyncMode    string // config.SyncFull or config.SyncOff
	Compression string // config.CompressionNone, Snappy or LZ4
}

// OptionsFromConfig extracts the storage options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{SyncMode: cfg.SyncMode, Compression: cfg.Compression}
}

// Store is a storage.PageStore backed by a base file and a write-ahead log
// at "<path>-wal". Committed pages live in the log until a checkpoint copies
// them into the base file.
type Store struct {
	Path string

	sync  bool
	codec codec

	// wmu serializes Commit, Checkpoint and Close.
	wmu sync.Mutex
	// mu guards the version index and the files against a log reset.
	mu       sync.RWMutex
	base     *baseFile
	log      *wal
	versions *versionIndex

	committed atomic.Uint64
	closed    atomic.Bool

	commits     atomic.Uint64
	checkpoints atomic.Uint64
	recovered   int
}

var _ storage.PageStore = (*Store)(nil)

// Open opens or creates the store at path and replays the log.
func Open(path string, opts Options) (*Store, error) {
	c, err := parseCodec(opts.Compression)
	if err != nil {
		return nil, dberrors.NewStorageError("open store", err)
	}
	s := &Store{
		Path:     path,
		sync:     opts.SyncMode != config.SyncOff,
		codec:    c,
		versions: newVersionIndex(),
	}

	s.base, err = openBaseFile(path)
	if err != nil {
		return nil, dberrors.NewStorageError("open store", err)
	}
	s.log, err = openWal(path + "-wal")
	if err != nil {
		goto fail
	}
	if err = s.replay(); err != nil {
		goto fail
	}
	return s, nil
fail:
	s.closeFiles()
	return nil, dberrors.NewStorageError("open store", err)
}

// replay publishes every committed transaction found in the log.
func (s *Store) replay() error {
	txns, truncated, ok, err := s.log.recover()
	if err != nil {
		return err
	}
	if !ok {
		logger.Warnf("wal %s has no valid header, starting a new log", s.log.path)
		return s.log.reset(0, s.sync)
	}

	seq := s.log.header.baseSeq
	for _, txn := range txns {
		seq++
		for _, frame := range txn.frames {
			s.versions.put(pageVersion{page: frame.pageID, seq: seq, frame: frame})
		}
	}
	s.committed.Store(seq)
	s.recovered = len(txns)

	entry := logger.WithFields(logrus.Fields{
		"path":       s.Path,
		"generation": s.log.header.generation.String(),
		"txns":       len(txns),
		"seq":        seq,
	})
	if truncated > 0 {
		entry.WithField("bytes", truncated).Warn("discarded uncommitted wal tail")
	}
	entry.Info("store opened")
	return nil
}

// ReadPage returns page id as of commit sequence snapshot.
func (s *Store) ReadPage(id storage.PageID, snapshot uint64) ([]byte, error) {
	if err := storage.ValidatePageID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		return nil, dberrors.ErrStoreClosed
	}

	if v, ok := s.versions.lookup(id, snapshot); ok {
		page, err := s.log.readFrame(v.frame)
		if err != nil {
			return nil, dberrors.NewStorageError("read page", err)
		}
		return page, nil
	}
	page, err := s.base.readPage(id)
	if err != nil {
		return nil, dberrors.NewStorageError("read page", err)
	}
	return page, nil
}

// Commit appends every page and a commit frame to the log, then publishes
// the pages under the next commit sequence. A failed append leaves nothing
// visible and the log as it was after the previous commit.
func (s *Store) Commit(pages map[storage.PageID][]byte) (uint64, error) {
	if s.closed.Load() {
		return 0, dberrors.ErrStoreClosed
	}

	ids := make([]storage.PageID, 0, len(pages))
	for id, data := range pages {
		if err := storage.ValidatePageID(id); err != nil {
			return 0, err
		}
		if err := storage.CheckPayload(data); err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed.Load() {
		return 0, dberrors.ErrStoreClosed
	}

	frames := make([]walFrame, 0, len(ids))
	for _, id := range ids {
		c, payload := compressPage(s.codec, utils.PadTo(pages[id], storage.PageSize))
		frame, err := s.log.appendPage(id, c, payload)
		if err != nil {
			return 0, s.abortAppend(err)
		}
		frames = append(frames, frame)
	}
	if err := s.log.appendCommit(s.sync); err != nil {
		return 0, s.abortAppend(err)
	}

	s.mu.Lock()
	seq := s.committed.Load() + 1
	for _, frame := range frames {
		s.versions.put(pageVersion{page: frame.pageID, seq: seq, frame: frame})
	}
	s.committed.Store(seq)
	s.mu.Unlock()

	s.commits.Add(1)
	return seq, nil
}

func (s *Store) abortAppend(cause error) error {
	if err := s.log.rollback(); err != nil {
		logger.Errorf("rollback of failed commit: %v", err)
	}
	return dberrors.NewStorageError("commit", cause)
}

// Checkpoint copies the newest version at or before upTo of every logged page
// into the base file and drops the versions it made redundant. Once the log
// holds no versions it is reset under a new generation.
func (s *Store) Checkpoint(upTo uint64) (storage.CheckpointStats, error) {
	var stats storage.CheckpointStats
	if s.closed.Load() {
		return stats, dberrors.ErrStoreClosed
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.closed.Load() {
		return stats, dberrors.ErrStoreClosed
	}

	if committed := s.committed.Load(); upTo > committed {
		upTo = committed
	}

	s.mu.RLock()
	latest, prune := s.versions.foldable(upTo)
	s.mu.RUnlock()

	// Readers still resolve these pages through the index, so the base file
	// can be written without blocking them.
	for _, v := range latest {
		page, err := s.log.readFrame(v.frame)
		if err != nil {
			return stats, dberrors.NewStorageError("checkpoint", err)
		}
		if err := s.base.writePage(v.page, page); err != nil {
			return stats, dberrors.NewStorageError("checkpoint", err)
		}
	}
	if len(latest) > 0 && s.sync {
		if err := s.base.sync(); err != nil {
			return stats, dberrors.NewStorageError("checkpoint", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions.remove(prune)
	stats.PagesFolded = len(latest)
	stats.VersionsPruned = len(prune)

	if s.versions.len() == 0 && s.log.size > walHeaderSize {
		if err := s.log.reset(s.committed.Load(), s.sync); err != nil {
			return stats, dberrors.NewStorageError("checkpoint", errors.Wrap(err, "reset wal"))
		}
		stats.LogReset = true
	}
	s.checkpoints.Add(1)
	return stats, nil
}

// CommittedSeq returns the sequence of the latest commit.
func (s *Store) CommittedSeq() uint64 {
	return s.committed.Load()
}

// Stats returns a snapshot of the store state.
func (s *Store) Stats() storage.StoreStats {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return storage.StoreStats{
		CommittedSeq:  s.committed.Load(),
		BasePages:     s.base.pages(),
		LogBytes:      s.log.size,
		LogVersions:   s.versions.len(),
		Generation:    s.log.header.generation.String(),
		Commits:       s.commits.Load(),
		Checkpoints:   s.checkpoints.Load(),
		RecoveredTxns: s.recovered,
	}
}

// Close releases the files. Committed data stays in the log until the next
// open replays it.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeFiles()
}

func (s *Store) closeFiles() error {
	var first error
	if s.log != nil {
		if err := s.log.close(); err != nil {
			first = errors.Wrap(err, "close wal")
		}
	}
	if s.base != nil {
		if err := s.base.close(); err != nil && first == nil {
			first = errors.Wrap(err, "close base file")
		}
	}
	return first
}
