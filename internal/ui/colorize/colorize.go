// Package colorize highlights disassembly listings for the terminal.
package colorize

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/xyproto/env/v2"

	"sigtool/internal/disasm"
)

// Disabled reports whether SIGTOOL_NO_COLOR turned highlighting off.
func Disabled() bool {
	return env.Str("SIGTOOL_NO_COLOR") != ""
}

// lexerFor picks an assembly lexer for arch, falling back through the
// names chroma registers.
func lexerFor(arch disasm.Arch) chroma.Lexer {
	candidates := []string{"gas", "nasm"}
	if arch == disasm.ARM64 {
		candidates = []string{"armasm", "gas"}
	}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

func style() *chroma.Style {
	for _, name := range []string{DisasmDark.Name, "dracula", "monokai"} {
		if s := styles.Get(name); s != nil {
			return s
		}
	}
	return styles.Fallback
}

func formatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if f := formatters.Get(name); f != nil {
			return f
		}
	}
	return formatters.Fallback
}

// Assembly highlights a block of assembly text. The input is returned
// unchanged when colors are disabled or no lexer is available.
func Assembly(arch disasm.Arch, code string) (string, error) {
	if Disabled() {
		return code, nil
	}
	lexer := lexerFor(arch)
	if lexer == nil {
		return code, nil
	}

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}
	var buf strings.Builder
	if err := formatter().Format(&buf, style(), it); err != nil {
		return code, err
	}
	return buf.String(), nil
}

const (
	addrColor = "\033[38;2;79;79;79m"
	noteColor = "\033[38;2;235;194;237m"
	reset     = "\033[0m"
)

// Listing formats one line per instruction: address, raw bytes and text,
// followed by notes[i] as a comment when present. Addresses are dimmed and
// the instruction text is highlighted.
func Listing(arch disasm.Arch, insts disasm.Stream, notes []string) string {
	var sb strings.Builder
	for i, in := range insts {
		var note string
		if i < len(notes) && notes[i] != "" {
			note = "  ; " + notes[i]
		}
		raw := fmt.Sprintf("% x", in.Raw)
		if Disabled() {
			fmt.Fprintf(&sb, "%x  %-24s %s%s\n", in.VA, raw, in.Text, note)
			continue
		}
		text, err := Assembly(arch, in.Text)
		if err != nil {
			text = in.Text
		}
		fmt.Fprintf(&sb, "%s%x%s  %-24s %s", addrColor, in.VA, reset, raw, strings.TrimRight(text, "\n"))
		if note != "" {
			sb.WriteString(noteColor + note + reset)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Strip removes ANSI escape sequences.
func Strip(s string) string {
	var sb strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
