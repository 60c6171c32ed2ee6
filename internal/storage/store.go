package storage

// PageStore is durable fixed-size page storage with versioned commits.
//
// Commit sequences are monotonically increasing. ReadPage(id, seq) returns the
// page as it was after the commit numbered seq. Commit and Checkpoint must not
// be called concurrently with each other; ReadPage is safe at any time.
type PageStore interface {
	// ReadPage returns the content of page id as of commit sequence snapshot.
	// Pages never written read as all zeros.
	ReadPage(id PageID, snapshot uint64) ([]byte, error)

	// Commit durably writes all pages and publishes them atomically under a
	// new commit sequence, which it returns.
	Commit(pages map[PageID][]byte) (uint64, error)

	// Checkpoint folds committed versions with seq <= upTo into the base
	// representation. It never changes what ReadPage returns.
	Checkpoint(upTo uint64) (CheckpointStats, error)

	// CommittedSeq returns the sequence of the latest commit.
	CommittedSeq() uint64

	Stats() StoreStats
	Close() error
}

// CheckpointStats describes one checkpoint pass.
type CheckpointStats struct {
	PagesFolded    int
	VersionsPruned int
	LogReset       bool
}

// StoreStats describes the page store state.
type StoreStats struct {
	CommittedSeq  uint64
	BasePages     int64
	LogBytes      int64
	LogVersions   int
	Generation    string
	Commits       uint64
	Checkpoints   uint64
	RecoveredTxns int
}
