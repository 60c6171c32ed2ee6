package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"govetachun/go-page-db/internal/storage"
	"govetachun/go-page-db/internal/transaction"
	dberrors "govetachun/go-page-db/pkg/errors"
	"govetachun/go-page-db/pkg/utils"
)

const (
	catalogMagic   = "pagedb-catalog"
	catalogVersion = 1
)

// Catalog is the persisted list of table schemas plus the page allocation
// counter. It lives on page 0.
type Catalog struct {
	Tables   []TableSchema
	NextPage storage.PageID
}

type catalogRecord struct {
	Magic    string         `json:"magic"`
	Version  int            `json:"version"`
	Tables   []TableSchema  `json:"tables"`
	NextPage storage.PageID `json:"next_page"`
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{NextPage: storage.FirstDataPageID}
}

// Table looks up a schema by name.
func (c *Catalog) Table(name string) (*TableSchema, bool) {
	for i := range c.Tables {
		if c.Tables[i].Name == name {
			return &c.Tables[i], true
		}
	}
	return nil, false
}

// TableNames returns table names in creation order.
func (c *Catalog) TableNames() []string {
	names := make([]string, len(c.Tables))
	for i, t := range c.Tables {
		names[i] = t.Name
	}
	return names
}

// AddTable validates schema and appends it.
func (c *Catalog) AddTable(schema TableSchema) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	if _, exists := c.Table(schema.Name); exists {
		return dberrors.Newf(dberrors.ErrCodeDuplicateTable, "table %s already exists", schema.Name)
	}
	c.Tables = append(c.Tables, schema.Clone())
	return nil
}

// Clone returns a deep copy.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{NextPage: c.NextPage, Tables: make([]TableSchema, len(c.Tables))}
	for i, t := range c.Tables {
		out.Tables[i] = t.Clone()
	}
	return out
}

// counterHeadroom is how many bytes the encoded next_page counter can still
// grow by before it reaches MaxPageID.
func (c *Catalog) counterHeadroom() int {
	n := len(strconv.FormatInt(int64(storage.MaxPageID)+1, 10)) - len(strconv.FormatInt(int64(c.NextPage), 10))
	if n < 0 {
		return 0
	}
	return n
}

// Encode serializes the catalog into one page. The size check reserves room
// for the counter at its widest, so a catalog that encodes once keeps
// encoding as rows are allocated.
func (c *Catalog) Encode() ([]byte, error) {
	tables := c.Tables
	if tables == nil {
		tables = []TableSchema{}
	}
	data, err := json.Marshal(catalogRecord{
		Magic:    catalogMagic,
		Version:  catalogVersion,
		Tables:   tables,
		NextPage: c.NextPage,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode catalog")
	}
	if need := len(data) + c.counterHeadroom(); need > storage.PageSize {
		return nil, dberrors.Newf(dberrors.ErrCodeRowTooLarge,
			"catalog of %d tables needs %d bytes, page size is %d", len(c.Tables), need, storage.PageSize)
	}
	return utils.PadTo(data, storage.PageSize), nil
}

// Decode parses a catalog page. An all-zero page is an empty catalog.
func Decode(page []byte) (*Catalog, error) {
	if utils.IsZero(page) {
		return New(), nil
	}
	var rec catalogRecord
	if err := json.Unmarshal(bytes.TrimRight(page, "\x00"), &rec); err != nil {
		return nil, dberrors.CorruptPage(int64(storage.CatalogPageID), err)
	}
	if rec.Magic != catalogMagic {
		return nil, dberrors.CorruptPage(int64(storage.CatalogPageID), errors.Errorf("bad catalog magic %q", rec.Magic))
	}
	if rec.Version != catalogVersion {
		return nil, dberrors.CorruptPage(int64(storage.CatalogPageID), errors.Errorf("unsupported catalog version %d", rec.Version))
	}
	if rec.NextPage < storage.FirstDataPageID {
		return nil, dberrors.CorruptPage(int64(storage.CatalogPageID), errors.Errorf("next page %d below %d", rec.NextPage, storage.FirstDataPageID))
	}

	c := &Catalog{NextPage: rec.NextPage}
	for _, t := range rec.Tables {
		if err := c.AddTable(t); err != nil {
			return nil, dberrors.CorruptPage(int64(storage.CatalogPageID), err)
		}
	}
	return c, nil
}

// Load reads the catalog from page 0.
func Load(r transaction.PageReader) (*Catalog, error) {
	page, err := r.ReadPage(storage.CatalogPageID)
	if err != nil {
		return nil, err
	}
	return Decode(page)
}

// Save writes the catalog to page 0 inside w. The caller commits.
func Save(w transaction.PageWriter, c *Catalog) error {
	page, err := c.Encode()
	if err != nil {
		return err
	}
	return w.WritePage(storage.CatalogPageID, page)
}
