package transaction

import (
	"fmt"
	"time"

	"govetachun/go-page-db/internal/concurrency"
	"govetachun/go-page-db/internal/storage"
)

// TransactionID represents a unique transaction identifier
type TransactionID uint64

// TransactionStatus represents the state of a transaction
type TransactionStatus int

const (
	StatusActive TransactionStatus = iota
	StatusCommitted
	StatusAborted
	StatusReleased
)

func (s TransactionStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCommitted:
		return "committed"
	case StatusAborted:
		return "aborted"
	case StatusReleased:
		return "released"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Kind distinguishes read and write transactions.
type Kind int

const (
	KindRead Kind = iota
	KindWrite
)

func (k Kind) String() string {
	if k == KindWrite {
		return "write"
	}
	return "read"
}

// TransactionInfo describes a transaction for logging and tests.
type TransactionInfo struct {
	ID        TransactionID
	Kind      Kind
	Status    TransactionStatus
	Snapshot  uint64
	StartTime time.Time
	Pages     int // buffered pages, writers only
}

// PageReader reads pages through a transaction.
type PageReader interface {
	ReadPage(id storage.PageID) ([]byte, error)
}

// PageWriter buffers page writes inside a write transaction.
type PageWriter interface {
	PageReader
	WritePage(id storage.PageID, data []byte) error
}

// Stats represents transaction manager statistics
type Stats struct {
	Commits       uint64
	Aborts        uint64
	Checkpoints   uint64
	ActiveReaders int
	WriterWaits   int64
	Writer        concurrency.LockState
	CommittedSeq  uint64
}
