package catalog

import (
	"fmt"

	"govetachun/go-page-db/internal/record"
	dberrors "govetachun/go-page-db/pkg/errors"
)

// ColumnSpec describes one column of a table.
type ColumnSpec struct {
	Name       string      `json:"name"`
	Type       record.Type `json:"type"`
	PrimaryKey bool        `json:"primary_key,omitempty"`
	Unique     bool        `json:"unique,omitempty"`
}

// TableSchema is a table's name and ordered columns.
type TableSchema struct {
	Name    string       `json:"name"`
	Columns []ColumnSpec `json:"columns"`
}

// Validate checks names, column count, duplicates, primary key count and types.
func (s *TableSchema) Validate() error {
	if s.Name == "" {
		return dberrors.Newf(dberrors.ErrCodeInvalidSchema, "table name cannot be empty")
	}
	if !isValidIdentifier(s.Name) {
		return dberrors.Newf(dberrors.ErrCodeInvalidSchema, "invalid table name: %s", s.Name)
	}
	if len(s.Columns) == 0 {
		return dberrors.Newf(dberrors.ErrCodeInvalidSchema, "table %s must have at least one column", s.Name)
	}

	seen := make(map[string]bool, len(s.Columns))
	primaryKeys := 0
	for _, col := range s.Columns {
		if col.Name == "" {
			return dberrors.Newf(dberrors.ErrCodeInvalidSchema, "column name cannot be empty")
		}
		if !isValidIdentifier(col.Name) {
			return dberrors.Newf(dberrors.ErrCodeInvalidSchema, "invalid column name: %s", col.Name)
		}
		if seen[col.Name] {
			return dberrors.Newf(dberrors.ErrCodeInvalidSchema, "duplicate column name: %s", col.Name)
		}
		seen[col.Name] = true
		if !col.Type.Valid() {
			return dberrors.Newf(dberrors.ErrCodeInvalidSchema, "invalid data type for column %s: %s", col.Name, col.Type)
		}
		if col.PrimaryKey {
			primaryKeys++
		}
	}
	if primaryKeys > 1 {
		return dberrors.Newf(dberrors.ErrCodeInvalidSchema, "table %s has %d primary key columns, at most one allowed", s.Name, primaryKeys)
	}
	return nil
}

// PrimaryKey returns the primary key column name, if any.
func (s *TableSchema) PrimaryKey() (string, bool) {
	for _, col := range s.Columns {
		if col.PrimaryKey {
			return col.Name, true
		}
	}
	return "", false
}

// UniqueColumns returns the non-primary-key columns declared unique.
func (s *TableSchema) UniqueColumns() []string {
	var cols []string
	for _, col := range s.Columns {
		if col.Unique && !col.PrimaryKey {
			cols = append(cols, col.Name)
		}
	}
	return cols
}

// IndexedColumns returns the primary key followed by the unique columns.
func (s *TableSchema) IndexedColumns() []string {
	var cols []string
	if pk, ok := s.PrimaryKey(); ok {
		cols = append(cols, pk)
	}
	return append(cols, s.UniqueColumns()...)
}

// Column looks up a column by name.
func (s *TableSchema) Column(name string) (ColumnSpec, bool) {
	for _, col := range s.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnSpec{}, false
}

// ColumnNames returns the column names in declaration order.
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// Clone returns a deep copy.
func (s TableSchema) Clone() TableSchema {
	return TableSchema{Name: s.Name, Columns: append([]ColumnSpec(nil), s.Columns...)}
}

// ValidateRow checks that row has exactly the schema's columns and that
// every value has its column's type.
func (s *TableSchema) ValidateRow(row record.Row) error {
	if len(row.Cols) != len(row.Vals) {
		return dberrors.Newf(dberrors.ErrCodeColumnSet, "row has %d columns and %d values", len(row.Cols), len(row.Vals))
	}
	if len(row.Cols) != len(s.Columns) {
		return dberrors.Newf(dberrors.ErrCodeColumnSet,
			"table %s expects columns %v, row has %v", s.Name, s.ColumnNames(), row.Cols)
	}

	seen := make(map[string]bool, len(row.Cols))
	for i, name := range row.Cols {
		if seen[name] {
			return dberrors.Newf(dberrors.ErrCodeColumnSet, "duplicate column %s in row", name)
		}
		seen[name] = true
		col, ok := s.Column(name)
		if !ok {
			return dberrors.Newf(dberrors.ErrCodeColumnSet,
				"table %s has no column %s, expects %v", s.Name, name, s.ColumnNames())
		}
		if row.Vals[i].Type != col.Type {
			return dberrors.TypeMismatch(name, col.Type, row.Vals[i].Type)
		}
	}
	return nil
}

// Normalize returns row with its columns in schema order.
func (s *TableSchema) Normalize(row record.Row) record.Row {
	out := record.Row{Cols: make([]string, 0, len(s.Columns)), Vals: make([]record.Value, 0, len(s.Columns))}
	for _, col := range s.Columns {
		if v := row.Get(col.Name); v != nil {
			out.Cols = append(out.Cols, col.Name)
			out.Vals = append(out.Vals, *v)
		}
	}
	return out
}

func (s TableSchema) String() string {
	return fmt.Sprintf("%s%v", s.Name, s.ColumnNames())
}

// isValidIdentifier checks if a string is a valid identifier
func isValidIdentifier(name string) bool {
	if len(name) == 0 {
		return false
	}

	// First character must be letter or underscore
	if !isLetter(name[0]) && name[0] != '_' {
		return false
	}

	for i := 1; i < len(name); i++ {
		if !isLetter(name[i]) && !isDigit(name[i]) && name[i] != '_' {
			return false
		}
	}
	return true
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
