package concurrency

import (
	"fmt"
	"sync"
	"time"
)

// WriterLock is the exclusive gate held by the single active write
// transaction. Readers never take it.
type WriterLock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	held    bool
	waiters int
	stats   LockStats
}

// LockStats represents statistics for a lock
type LockStats struct {
	Acquisitions int64
	Waits        int64
	TryFailures  int64
	WaitTime     time.Duration
}

// LockState represents the current state of a lock
type LockState struct {
	Held    bool
	Waiters int
}

// String returns a string representation of the lock state
func (ls LockState) String() string {
	return fmt.Sprintf("held:%t waiters:%d", ls.Held, ls.Waiters)
}

// NewWriterLock creates a new writer lock
func NewWriterLock() *WriterLock {
	w := &WriterLock{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Lock blocks until the lock is free, then takes it.
func (w *WriterLock) Lock() {
	start := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.held {
		w.stats.Waits++
	}
	for w.held {
		w.waiters++
		w.cond.Wait()
		w.waiters--
	}

	w.held = true
	w.stats.Acquisitions++
	w.stats.WaitTime += time.Since(start)
}

// TryLock takes the lock only if it is free.
func (w *WriterLock) TryLock() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.held {
		w.stats.TryFailures++
		return false
	}
	w.held = true
	w.stats.Acquisitions++
	return true
}

// Unlock releases the lock and wakes one waiter.
func (w *WriterLock) Unlock() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.held {
		panic("concurrency: unlock of unlocked WriterLock")
	}
	w.held = false
	if w.waiters > 0 {
		w.cond.Signal()
	}
}

// GetStats returns lock statistics
func (w *WriterLock) GetStats() LockStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// GetState returns the current state of the lock
func (w *WriterLock) GetState() LockState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return LockState{Held: w.held, Waiters: w.waiters}
}
