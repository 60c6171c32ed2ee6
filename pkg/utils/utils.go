package utils

// Assert panics with message if condition is false
func Assert(condition bool, message string) {
	if !condition {
		panic(message)
	}
}

// IsZero reports whether every byte of b is zero.
func IsZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// PadTo returns b right-padded with zero bytes to size. b must not be longer than size.
func PadTo(b []byte, size int) []byte {
	Assert(len(b) <= size, "len(b) <= size")
	out := make([]byte, size)
	copy(out, b)
	return out
}
