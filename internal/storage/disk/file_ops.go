package disk

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"govetachun/go-page-db/internal/storage"
)

// baseFile holds checkpointed pages: page i lives at offset i*PageSize.
type baseFile struct {
	path string
	fp   *os.File
}

func openBaseFile(path string) (*baseFile, error) {
	fp, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open base file %s", path)
	}
	return &baseFile{path: path, fp: fp}, nil
}

// readPage returns the page at id. Pages past the end of the file read as zeros.
func (b *baseFile) readPage(id storage.PageID) ([]byte, error) {
	page := storage.ZeroPage()
	// a short read at EOF leaves the remainder zeroed
	if _, err := b.fp.ReadAt(page, int64(id)*storage.PageSize); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "read base page %d", id)
	}
	return page, nil
}

func (b *baseFile) writePage(id storage.PageID, page []byte) error {
	if _, err := b.fp.WriteAt(page, int64(id)*storage.PageSize); err != nil {
		return errors.Wrapf(err, "write base page %d", id)
	}
	return nil
}

func (b *baseFile) sync() error {
	if err := b.fp.Sync(); err != nil {
		return errors.Wrap(err, "fsync base file")
	}
	return nil
}

// pages returns the number of whole pages in the file.
func (b *baseFile) pages() int64 {
	info, err := b.fp.Stat()
	if err != nil {
		return 0
	}
	return info.Size() / storage.PageSize
}

func (b *baseFile) close() error {
	return b.fp.Close()
}
