package signature

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
	"rsc.io/binaryregexp"
)

// RegexpSource renders s as a binary regular expression, one atom per
// position: literal bytes as \xHH and wildcards as '.'.
func (s Signature) RegexpSource() string {
	var sb strings.Builder
	for _, b := range s {
		if b.wildcard {
			sb.WriteByte('.')
			continue
		}
		fmt.Fprintf(&sb, `\x%02X`, b.value)
	}
	return sb.String()
}

// Regexp compiles s into a byte-oriented regular expression. The "s" flag
// lets wildcards match newline bytes as well.
func (s Signature) Regexp() (*binaryregexp.Regexp, error) {
	re, err := binaryregexp.Compile("(?s)" + s.RegexpSource())
	if err != nil {
		return nil, fmt.Errorf("compile signature regexp: %w", err)
	}
	return re, nil
}

// Needle returns the longest run of literal bytes in s together with its
// offset from the signature anchor. Scanners can use it as a prefilter.
func (s Signature) Needle() (needle []byte, offset int) {
	var run []byte
	start := 0
	flush := func() {
		if len(run) > len(needle) {
			needle = slices.Clone(run)
			offset = start
		}
		run = run[:0]
	}
	for i, b := range s {
		if b.wildcard {
			flush()
			start = i + 1
			continue
		}
		run = append(run, b.value)
	}
	flush()
	return needle, offset
}
