package storage

import (
	dberrors "govetachun/go-page-db/pkg/errors"
)

// PageSize is the fixed size of every page.
const PageSize = 4096

// PageID addresses a page. Page 0 holds the catalog.
type PageID int64

// CatalogPageID is the page reserved for the catalog.
const CatalogPageID PageID = 0

// FirstDataPageID is the first page available to table rows.
const FirstDataPageID PageID = 1

// MaxPageID bounds page ids so that file offsets and frame headers stay in range.
const MaxPageID PageID = 1<<31 - 1

// ValidatePageID rejects negative and out-of-range ids.
func ValidatePageID(id PageID) error {
	if id < 0 || id > MaxPageID {
		return dberrors.Newf(dberrors.ErrCodeInvalidPageID, "page id %d out of range [0, %d]", id, MaxPageID)
	}
	return nil
}

// CheckPayload rejects payloads that do not fit in a page.
func CheckPayload(data []byte) error {
	if len(data) > PageSize {
		return dberrors.Newf(dberrors.ErrCodeRowTooLarge, "payload of %d bytes exceeds page size %d", len(data), PageSize)
	}
	return nil
}

// ZeroPage returns a fresh all-zero page.
func ZeroPage() []byte {
	return make([]byte, PageSize)
}
