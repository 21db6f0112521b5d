// Package signature models wildcard-tolerant byte signatures and their
// textual notations.
package signature

import "fmt"

// Byte is one signature position: either a literal value that must match
// exactly, or a wildcard that matches any value.
type Byte struct {
	value    byte
	wildcard bool
}

// Wildcard returns a position that matches any byte.
func Wildcard() Byte {
	return Byte{wildcard: true}
}

// Match returns a position that matches only v.
func Match(v byte) Byte {
	return Byte{value: v}
}

// IsWildcard reports whether b matches any byte.
func (b Byte) IsWildcard() bool {
	return b.wildcard
}

// Value returns the literal value and true, or (0, false) for a wildcard.
func (b Byte) Value() (byte, bool) {
	if b.wildcard {
		return 0, false
	}
	return b.value, true
}

// Matches reports whether b accepts v.
func (b Byte) Matches(v byte) bool {
	return b.wildcard || b.value == v
}

// Generic renders b in the space-suffixed generic notation ("?? " or "8B ").
func (b Byte) Generic() string {
	if b.wildcard {
		return "?? "
	}
	return fmt.Sprintf("%02X ", b.value)
}

// Escaped renders b in the escaped notation. 0x2A is reserved for wildcards.
func (b Byte) Escaped() string {
	if b.wildcard {
		return `\x2A`
	}
	return fmt.Sprintf(`\x%02X`, b.value)
}

func (b Byte) String() string {
	if b.wildcard {
		return "??"
	}
	return fmt.Sprintf("%#02x", b.value)
}
