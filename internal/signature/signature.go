package signature

import (
	"fmt"
	"strings"
)

// Signature is an ordered byte pattern. Position i corresponds to the byte at
// anchor+i.
type Signature []Byte

// FromBytes returns a signature matching raw exactly.
func FromBytes(raw []byte) Signature {
	sig := make(Signature, len(raw))
	for i, b := range raw {
		sig[i] = Match(b)
	}
	return sig
}

// Wildcards counts the wildcard positions in s.
func (s Signature) Wildcards() int {
	n := 0
	for _, b := range s {
		if b.wildcard {
			n++
		}
	}
	return n
}

// Equal reports whether s and other describe the same pattern.
func (s Signature) Equal(other Signature) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Generic renders s as "48 8B ?? 00 " (every token is space-suffixed).
func (s Signature) Generic() string {
	var sb strings.Builder
	sb.Grow(len(s) * 3)
	for _, b := range s {
		sb.WriteString(b.Generic())
	}
	return sb.String()
}

// Escaped renders s as "\x48\x8B\x2A\x00".
func (s Signature) Escaped() string {
	var sb strings.Builder
	sb.Grow(len(s) * 4)
	for _, b := range s {
		sb.WriteString(b.Escaped())
	}
	return sb.String()
}

// Yara renders s as a YARA hex string body, e.g. "{ 48 8B ?? 00 }".
func (s Signature) Yara() string {
	return "{ " + strings.TrimSpace(s.Generic()) + " }"
}

// Mask renders s in the code-style pattern/mask form used by FindPattern
// helpers: the pattern holds zero for every wildcard and the mask uses 'x'
// for literal and '?' for wildcard positions.
func (s Signature) Mask() (pattern, mask string) {
	var pb, mb strings.Builder
	for _, b := range s {
		if b.wildcard {
			pb.WriteString(`\x00`)
			mb.WriteByte('?')
			continue
		}
		fmt.Fprintf(&pb, `\x%02X`, b.value)
		mb.WriteByte('x')
	}
	return pb.String(), mb.String()
}

// String is the debug form: [0x48 0x8b ?? 0x0].
func (s Signature) String() string {
	parts := make([]string, len(s))
	for i, b := range s {
		parts[i] = b.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
