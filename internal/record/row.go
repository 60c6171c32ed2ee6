package record

import (
	"strings"
)

// Row is an ordered mapping from column name to value.
type Row struct {
	Cols []string
	Vals []Value
}

// NewRow builds a row from parallel column and value slices.
func NewRow(cols []string, vals []Value) Row {
	return Row{Cols: append([]string(nil), cols...), Vals: append([]Value(nil), vals...)}
}

// Get retrieves a value from the row by column name
func (r *Row) Get(col string) *Value {
	for i, c := range r.Cols {
		if c == col {
			return &r.Vals[i]
		}
	}
	return nil
}

// Set replaces the value of col, or appends the column if absent.
func (r *Row) Set(col string, v Value) {
	if cur := r.Get(col); cur != nil {
		*cur = v
		return
	}
	r.Cols = append(r.Cols, col)
	r.Vals = append(r.Vals, v)
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.Cols)
}

// Clone returns a deep copy.
func (r Row) Clone() Row {
	out := Row{Cols: make([]string, len(r.Cols)), Vals: make([]Value, len(r.Vals))}
	copy(out.Cols, r.Cols)
	for i, v := range r.Vals {
		out.Vals[i] = v
		if v.Str != nil {
			out.Vals[i].Str = append([]byte(nil), v.Str...)
		}
	}
	return out
}

// Equal reports whether both rows have the same columns in the same order
// with equal values.
func (r Row) Equal(o Row) bool {
	if len(r.Cols) != len(o.Cols) {
		return false
	}
	for i := range r.Cols {
		if r.Cols[i] != o.Cols[i] || !r.Vals[i].Equal(o.Vals[i]) {
			return false
		}
	}
	return true
}

// String renders "col=val, col=val".
func (r Row) String() string {
	var b strings.Builder
	for i, c := range r.Cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
		b.WriteByte('=')
		b.WriteString(r.Vals[i].String())
	}
	return b.String()
}

// EncodedSize returns the number of bytes the row's columns occupy in a slot body.
func (r Row) EncodedSize() int {
	return len(appendColumns(nil, r))
}
