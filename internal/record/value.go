package record

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Type is a column/value type.
type Type uint32

// Data types
const (
	TypeError Type = 0
	TypeText  Type = 1
	TypeInt   Type = 2
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeText:
		return "TEXT"
	default:
		return fmt.Sprintf("TYPE(%d)", uint32(t))
	}
}

// Valid reports whether t is a storable type.
func (t Type) Valid() bool {
	return t == TypeInt || t == TypeText
}

// ParseType accepts INT or TEXT, case-insensitively.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INT", "INTEGER":
		return TypeInt, nil
	case "TEXT", "STRING":
		return TypeText, nil
	default:
		return TypeError, fmt.Errorf("unknown type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value represents a database value
type Value struct {
	Type Type
	I64  int64
	Str  []byte
}

// Int returns an INT value.
func Int(v int64) Value {
	return Value{Type: TypeInt, I64: v}
}

// Text returns a TEXT value.
func Text(s string) Value {
	return Value{Type: TypeText, Str: []byte(s)}
}

// String renders the value as text: decimal for INT, raw bytes for TEXT.
func (v Value) String() string {
	switch v.Type {
	case TypeInt:
		return strconv.FormatInt(v.I64, 10)
	case TypeText:
		return string(v.Str)
	default:
		return "<invalid>"
	}
}

// Equal compares type and content.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeInt:
		return v.I64 == o.I64
	case TypeText:
		return bytes.Equal(v.Str, o.Str)
	default:
		return true
	}
}

// Key is a comparable form of a Value, usable as a map key.
type Key struct {
	Type Type
	I64  int64
	Str  string
}

// Key returns the comparable form of v.
func (v Value) Key() Key {
	k := Key{Type: v.Type}
	switch v.Type {
	case TypeInt:
		k.I64 = v.I64
	case TypeText:
		k.Str = string(v.Str)
	}
	return k
}

// Value converts the key back to a Value.
func (k Key) Value() Value {
	if k.Type == TypeText {
		return Text(k.Str)
	}
	return Value{Type: k.Type, I64: k.I64}
}

// ParseValue converts text to a value of type t.
func ParseValue(t Type, s string) (Value, error) {
	switch t {
	case TypeInt:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse INT %q: %w", s, err)
		}
		return Int(n), nil
	case TypeText:
		return Text(s), nil
	default:
		return Value{}, fmt.Errorf("cannot parse value of %s", t)
	}
}
