package signature

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports the token that could not be read as a signature byte.
type ParseError struct {
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %q: %v", e.Token, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads a signature in either the generic notation ("48 8B ?? 00"),
// the escaped notation ("\x48\x8B\x2A\x00") or a YARA hex string
// ("{ 48 8B ?? 00 }"). Hex digits are case-insensitive. Both "??" and "?"
// denote a wildcard, and so does \x2A in the escaped notation.
func Parse(text string) (Signature, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		trimmed = trimmed[1 : len(trimmed)-1]
	}

	spaced := normalizeEscaped(trimmed)

	sig := Signature{}
	for _, tok := range strings.Fields(spaced) {
		switch tok {
		case "??", "?":
			sig = append(sig, Wildcard())
		default:
			v, err := strconv.ParseUint(tok, 16, 8)
			if err != nil {
				return nil, &ParseError{Token: tok, Err: err}
			}
			sig = append(sig, Match(byte(v)))
		}
	}
	return sig, nil
}

// MustParse is like Parse but panics on malformed input. Intended for
// signatures embedded in source.
func MustParse(text string) Signature {
	sig, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return sig
}

// normalizeEscaped rewrites \x2A to a wildcard token and every other \x
// prefix to a separator, yielding the generic notation.
func normalizeEscaped(s string) string {
	if !strings.Contains(s, `\x`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + len(s)/2)
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == 'x' {
			if i+3 < len(s) && strings.EqualFold(s[i+2:i+4], "2A") {
				sb.WriteString(" ?? ")
				i += 3
				continue
			}
			sb.WriteByte(' ')
			i++
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
