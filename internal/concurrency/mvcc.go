package concurrency

import (
	"sync"
	"time"
)

// ReaderID identifies a registered read snapshot.
type ReaderID uint64

// Snapshot is one active reader's view of the store.
type Snapshot struct {
	ID        ReaderID
	Seq       uint64
	StartTime time.Time
}

// SnapshotRegistry tracks the commit sequences pinned by active readers so
// checkpoints never fold past what a reader can still see.
type SnapshotRegistry struct {
	mu      sync.Mutex
	readers map[ReaderID]Snapshot
	nextID  ReaderID
}

// NewSnapshotRegistry creates an empty registry
func NewSnapshotRegistry() *SnapshotRegistry {
	return &SnapshotRegistry{
		readers: make(map[ReaderID]Snapshot),
		nextID:  1,
	}
}

// Register pins the sequence returned by seq. seq is evaluated under the
// registry lock so Oldest never misses a reader that is being created.
func (r *SnapshotRegistry) Register(seq func() uint64) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{ID: r.nextID, Seq: seq(), StartTime: time.Now()}
	r.nextID++
	r.readers[snap.ID] = snap
	return snap
}

// Release unpins a snapshot. Releasing twice is a no-op.
func (r *SnapshotRegistry) Release(id ReaderID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.readers[id]; !ok {
		return false
	}
	delete(r.readers, id)
	return true
}

// Oldest returns the smallest pinned sequence, or ok=false with no readers.
func (r *SnapshotRegistry) Oldest() (seq uint64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, snap := range r.readers {
		if !ok || snap.Seq < seq {
			seq, ok = snap.Seq, true
		}
	}
	return seq, ok
}

// Active returns the number of registered readers.
func (r *SnapshotRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.readers)
}
