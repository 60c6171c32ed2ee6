// Package join implements the in-memory equi-join over decoded rows.
package join

import (
	"github.com/OneOfOne/xxhash"

	"govetachun/go-page-db/internal/record"
	dberrors "govetachun/go-page-db/pkg/errors"
)

// DefaultMaxOutputBytes bounds join output unless configured otherwise.
const DefaultMaxOutputBytes = 1 << 20

// Options tunes HashJoin.
type Options struct {
	// MaxOutputBytes caps the summed encoded size of the output rows.
	// Zero means unbounded.
	MaxOutputBytes int
	// StrictTypes requires join keys to have the same type. Otherwise keys
	// compare by their text form, so INT 5 matches TEXT "5".
	StrictTypes bool
}

// DefaultOptions returns the bounded, loosely typed defaults.
func DefaultOptions() Options {
	return Options{MaxOutputBytes: DefaultMaxOutputBytes}
}

type bucket struct {
	key  string
	rows []int
}

// table is the build side: buckets keyed by the xxhash64 of the join key.
type table struct {
	buckets map[uint64][]bucket
}

func joinKey(v record.Value, strict bool) string {
	if strict {
		return v.Type.String() + ":" + v.String()
	}
	return v.String()
}

func build(rows []record.Row, key string, strict bool) *table {
	t := &table{buckets: make(map[uint64][]bucket)}
	for i := range rows {
		v := rows[i].Get(key)
		if v == nil {
			continue
		}
		k := joinKey(*v, strict)
		h := xxhash.Checksum64([]byte(k))
		chain := t.buckets[h]
		found := false
		for j := range chain {
			if chain[j].key == k {
				chain[j].rows = append(chain[j].rows, i)
				found = true
				break
			}
		}
		if !found {
			chain = append(chain, bucket{key: k, rows: []int{i}})
		}
		t.buckets[h] = chain
	}
	return t
}

func (t *table) probe(k string) []int {
	for _, b := range t.buckets[xxhash.Checksum64([]byte(k))] {
		if b.key == k {
			return b.rows
		}
	}
	return nil
}

// merge returns outer's columns followed by inner's new columns. A column
// present in both keeps its outer position and takes the inner value.
func merge(outer, inner record.Row) record.Row {
	out := outer.Clone()
	for i, col := range inner.Cols {
		v := inner.Vals[i]
		if v.Str != nil {
			v.Str = append([]byte(nil), v.Str...)
		}
		out.Set(col, v)
	}
	return out
}

// HashJoin builds a hash table over inner keyed by innerKey and probes it
// with every outer row's outerKey value. Output follows outer order, and for
// each outer row the matching inner rows in inner order. Rows without the
// key column take no part in the join.
func HashJoin(inner, outer []record.Row, innerKey, outerKey string, opts Options) ([]record.Row, error) {
	t := build(inner, innerKey, opts.StrictTypes)

	var out []record.Row
	total := 0
	for _, o := range outer {
		v := o.Get(outerKey)
		if v == nil {
			continue
		}
		for _, idx := range t.probe(joinKey(*v, opts.StrictTypes)) {
			row := merge(o, inner[idx])
			total += row.EncodedSize()
			if opts.MaxOutputBytes > 0 && total > opts.MaxOutputBytes {
				return nil, dberrors.Newf(dberrors.ErrCodeJoinOutputOverflow,
					"join output exceeds %d bytes after %d rows", opts.MaxOutputBytes, len(out))
			}
			out = append(out, row)
		}
	}
	return out, nil
}
