package record

import (
	"encoding/binary"

	"github.com/OneOfOne/xxhash"
	"github.com/pkg/errors"

	"govetachun/go-page-db/internal/storage"
	dberrors "govetachun/go-page-db/pkg/errors"
)

// | magic | version | kind | body len | body | xxhash32(body) |
// |  2B   |   1B    |  1B  |  4B LE   | ...  |     4B LE      |
const (
	slotMagic0  = 'P'
	slotMagic1  = 'R'
	slotVersion = 1

	kindLive      = 1
	kindTombstone = 2

	slotHeaderSize  = 8
	slotTrailerSize = 4

	// MaxBodySize is the largest slot body that fits in one page.
	MaxBodySize = storage.PageSize - slotHeaderSize - slotTrailerSize
)

// Encode serializes slot into exactly one zero-padded page.
func Encode(slot Slot) ([]byte, error) {
	var kind byte
	var body []byte
	switch s := slot.(type) {
	case LiveRow:
		kind = kindLive
		body = appendString(nil, s.Table)
		body = appendColumns(body, s.Row)
	case *LiveRow:
		return Encode(*s)
	case Tombstone:
		kind = kindTombstone
		body = appendString(nil, s.Table)
	case *Tombstone:
		return Encode(*s)
	default:
		return nil, errors.Errorf("unknown slot type %T", slot)
	}

	if len(body) > MaxBodySize {
		return nil, dberrors.Newf(dberrors.ErrCodeRowTooLarge,
			"row of table %q encodes to %d bytes, limit is %d", slot.TableName(), len(body), MaxBodySize)
	}

	page := make([]byte, storage.PageSize)
	page[0], page[1] = slotMagic0, slotMagic1
	page[2] = slotVersion
	page[3] = kind
	binary.LittleEndian.PutUint32(page[4:8], uint32(len(body)))
	copy(page[slotHeaderSize:], body)
	binary.LittleEndian.PutUint32(page[slotHeaderSize+len(body):], xxhash.Checksum32(body))
	return page, nil
}

// Decode parses a page written by Encode. Any structural or checksum
// mismatch is reported as an error; callers treat the page as corrupt.
func Decode(page []byte) (Slot, error) {
	if len(page) < slotHeaderSize+slotTrailerSize {
		return nil, errors.Errorf("page of %d bytes is too short", len(page))
	}
	if page[0] != slotMagic0 || page[1] != slotMagic1 {
		return nil, errors.New("bad slot magic")
	}
	if page[2] != slotVersion {
		return nil, errors.Errorf("unsupported slot version %d", page[2])
	}
	n := int(binary.LittleEndian.Uint32(page[4:8]))
	if n > len(page)-slotHeaderSize-slotTrailerSize {
		return nil, errors.Errorf("slot body length %d out of range", n)
	}
	body := page[slotHeaderSize : slotHeaderSize+n]
	sum := binary.LittleEndian.Uint32(page[slotHeaderSize+n:])
	if xxhash.Checksum32(body) != sum {
		return nil, errors.New("slot checksum mismatch")
	}

	d := decoder{buf: body}
	table := d.string()
	var slot Slot
	switch page[3] {
	case kindLive:
		row := d.columns()
		slot = LiveRow{Table: table, Row: row}
	case kindTombstone:
		slot = Tombstone{Table: table}
	default:
		return nil, errors.Errorf("unknown slot kind %d", page[3])
	}
	if d.err != nil {
		return nil, d.err
	}
	if len(d.buf) != 0 {
		return nil, errors.Errorf("%d trailing bytes in slot body", len(d.buf))
	}
	return slot, nil
}

func appendString(b []byte, s string) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

func appendColumns(b []byte, r Row) []byte {
	b = binary.AppendUvarint(b, uint64(len(r.Cols)))
	for i, col := range r.Cols {
		b = appendString(b, col)
		v := r.Vals[i]
		b = append(b, byte(v.Type))
		switch v.Type {
		case TypeInt:
			b = binary.AppendVarint(b, v.I64)
		default:
			b = binary.AppendUvarint(b, uint64(len(v.Str)))
			b = append(b, v.Str...)
		}
	}
	return b
}

// decoder reads varint-framed fields and remembers the first error.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf)
	if n <= 0 {
		d.err = errors.New("truncated uvarint")
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) varint() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.buf)
	if n <= 0 {
		d.err = errors.New("truncated varint")
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) bytes() []byte {
	n := d.uvarint()
	if d.err != nil {
		return nil
	}
	if n > uint64(len(d.buf)) {
		d.err = errors.Errorf("field length %d exceeds remaining %d bytes", n, len(d.buf))
		return nil
	}
	out := make([]byte, n)
	copy(out, d.buf[:n])
	d.buf = d.buf[n:]
	return out
}

func (d *decoder) string() string {
	return string(d.bytes())
}

func (d *decoder) u8() byte {
	if d.err != nil {
		return 0
	}
	if len(d.buf) == 0 {
		d.err = errors.New("truncated field")
		return 0
	}
	b := d.buf[0]
	d.buf = d.buf[1:]
	return b
}

func (d *decoder) columns() Row {
	count := d.uvarint()
	if d.err != nil {
		return Row{}
	}
	if count > uint64(len(d.buf)) {
		d.err = errors.Errorf("column count %d out of range", count)
		return Row{}
	}
	row := Row{Cols: make([]string, 0, count), Vals: make([]Value, 0, count)}
	for i := uint64(0); i < count && d.err == nil; i++ {
		col := d.string()
		t := Type(d.u8())
		var v Value
		switch t {
		case TypeInt:
			v = Int(d.varint())
		case TypeText:
			v = Value{Type: TypeText, Str: d.bytes()}
		default:
			if d.err == nil {
				d.err = errors.Errorf("column %q has unknown type %d", col, t)
			}
		}
		row.Cols = append(row.Cols, col)
		row.Vals = append(row.Vals, v)
	}
	return row
}
