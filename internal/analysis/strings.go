package analysis

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"sigtool/internal/disasm"
	"sigtool/internal/host"
)

const (
	// MaxStringLength bounds the bytes read for a string annotation.
	MaxStringLength = 256
	// minStringLength filters out short byte runs that merely look textual.
	minStringLength = 4
)

// EscapeUnprintable keeps printable runes and escapes the rest: control
// and unprintable runes as \uXXXX, invalid UTF-8 as \xXX.
func EscapeUnprintable(b []byte) string {
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&sb, "\\x%02X", b[0])
		case unicode.IsPrint(r):
			sb.WriteRune(r)
		default:
			fmt.Fprintf(&sb, "\\u%04X", r)
		}
		b = b[size:]
	}
	return sb.String()
}

// StringAt reads a NUL terminated string at addr. It fails unless the
// terminator is found within MaxStringLength bytes and the text is mostly
// printable.
func StringAt(mem host.Memory, addr uint64) (string, bool) {
	raw := mem.ReadBytes(addr, MaxStringLength)
	end := -1
	for i, b := range raw {
		if b == 0 {
			end = i
			break
		}
	}
	if end < minStringLength {
		return "", false
	}
	raw = raw[:end]
	if !utf8.Valid(raw) {
		return "", false
	}
	for _, r := range string(raw) {
		if !unicode.IsPrint(r) && r != '\t' && r != '\n' && r != '\r' {
			return "", false
		}
	}
	return EscapeUnprintable(raw), true
}

// Annotate returns one comment per instruction: the function a branch or
// call lands in, or the string a pointer operand refers to. Instructions
// with nothing to say get an empty comment.
func (idx *Index) Annotate(mem host.Memory, insts disasm.Stream) []string {
	notes := make([]string, len(insts))
	for i, in := range insts {
		var targets []uint64
		if in.HasTarget {
			targets = append(targets, in.Target)
		}
		for _, c := range in.Constants {
			if c.Pointer && (!in.HasTarget || c.Value != in.Target) {
				targets = append(targets, c.Value)
			}
		}
		notes[i] = idx.describe(mem, targets)
	}
	return notes
}

func (idx *Index) describe(mem host.Memory, targets []uint64) string {
	var parts []string
	for _, t := range targets {
		if name, start := idx.SymbolAt(t); name != "" {
			if t == start {
				parts = append(parts, "<"+name+">")
			} else {
				parts = append(parts, fmt.Sprintf("<%s+%#x>", name, t-start))
			}
			continue
		}
		if !mem.IsMapped(t) {
			continue
		}
		if s, ok := StringAt(mem, t); ok {
			parts = append(parts, `"`+s+`"`)
		}
	}
	return strings.Join(parts, " ")
}
