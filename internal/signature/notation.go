package signature

import "fmt"

// Notation names a text rendering of a signature.
type Notation string

const (
	NotationGeneric Notation = "generic"
	NotationEscaped Notation = "escaped"
	NotationYara    Notation = "yara"
	NotationMask    Notation = "mask"
	NotationRegexp  Notation = "regex"
)

// Notations lists every supported rendering in display order.
var Notations = []Notation{NotationGeneric, NotationEscaped, NotationYara, NotationMask, NotationRegexp}

// ParseNotation validates a notation name.
func ParseNotation(s string) (Notation, error) {
	for _, n := range Notations {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown notation %q", s)
}

// Render formats s in notation n. The mask form is "pattern mask".
func (s Signature) Render(n Notation) (string, error) {
	switch n {
	case NotationGeneric:
		return s.Generic(), nil
	case NotationEscaped:
		return s.Escaped(), nil
	case NotationYara:
		return s.Yara(), nil
	case NotationMask:
		pattern, mask := s.Mask()
		return pattern + " " + mask, nil
	case NotationRegexp:
		return s.RegexpSource(), nil
	}
	return "", fmt.Errorf("unknown notation %q", n)
}
