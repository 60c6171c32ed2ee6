package disk

import (
	"github.com/google/btree"

	"govetachun/go-page-db/internal/storage"
)

// pageVersion is one committed version of a page that still lives in the log.
type pageVersion struct {
	page  storage.PageID
	seq   uint64
	frame walFrame
}

// Less orders versions by page, then commit sequence.
func (v pageVersion) Less(than btree.Item) bool {
	o := than.(pageVersion)
	if v.page != o.page {
		return v.page < o.page
	}
	return v.seq < o.seq
}

// versionIndex answers "latest version of page p at or before seq s".
// Callers synchronize access.
type versionIndex struct {
	tree *btree.BTree
}

func newVersionIndex() *versionIndex {
	return &versionIndex{tree: btree.New(32)}
}

func (x *versionIndex) put(v pageVersion) {
	x.tree.ReplaceOrInsert(v)
}

// lookup returns the newest version of page with seq <= snapshot.
func (x *versionIndex) lookup(page storage.PageID, snapshot uint64) (pageVersion, bool) {
	var found pageVersion
	ok := false
	x.tree.DescendLessOrEqual(pageVersion{page: page, seq: snapshot}, func(i btree.Item) bool {
		v := i.(pageVersion)
		if v.page == page {
			found, ok = v, true
		}
		return false
	})
	return found, ok
}

// foldable returns, for every page, the newest version with seq <= upTo, plus
// every version with seq <= upTo (which become redundant once folded).
func (x *versionIndex) foldable(upTo uint64) (latest []pageVersion, prune []pageVersion) {
	x.tree.Ascend(func(i btree.Item) bool {
		v := i.(pageVersion)
		if v.seq > upTo {
			return true
		}
		if n := len(latest); n > 0 && latest[n-1].page == v.page {
			latest[n-1] = v
		} else {
			latest = append(latest, v)
		}
		prune = append(prune, v)
		return true
	})
	return latest, prune
}

func (x *versionIndex) remove(versions []pageVersion) {
	for _, v := range versions {
		x.tree.Delete(v)
	}
}

func (x *versionIndex) len() int {
	return x.tree.Len()
}
