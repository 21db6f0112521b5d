// Package disasm decodes amd64, 386 and arm64 machine code and answers the
// per-instruction questions the signature generators ask.
package disasm

import (
	"fmt"

	"sigtool/internal/host"
)

type Arch string

const (
	AMD64 Arch = "amd64"
	I386  Arch = "386"
	ARM64 Arch = "arm64"
)

// ParseArch accepts the names used on the command line.
func ParseArch(s string) (Arch, error) {
	switch s {
	case "amd64", "x86_64", "x86-64", "x64":
		return AMD64, nil
	case "386", "i386", "x86":
		return I386, nil
	case "arm64", "aarch64":
		return ARM64, nil
	}
	return "", fmt.Errorf("unknown architecture %q", s)
}

// Inst is a simplified decoded instruction.
type Inst struct {
	VA        uint64 // virtual address of instruction
	Len       int
	Raw       []byte
	Text      string // formatted disassembly string
	Op        string // mnemonic in lowercase
	Constants []host.Constant

	Target    uint64 // branch, call or address target
	HasTarget bool
	Branch    bool // ends a basic block
	Terminal  bool // control never falls through
	Call      bool
}

// End is the address after the instruction.
func (i Inst) End() uint64 { return i.VA + uint64(i.Len) }

// Stream is a linear sequence of instructions.
type Stream []Inst

// Decoder disassembles instructions read from a host.Memory. Constant
// operands count as pointers when they are PC-relative or land inside the
// image.
type Decoder struct {
	Arch Arch
	// SymName resolves addresses in x86 listings. Optional.
	SymName func(uint64) (string, uint64)

	mem    host.Memory
	lo, hi uint64
}

func New(arch Arch, mem host.Memory) (*Decoder, error) {
	switch arch {
	case AMD64, I386, ARM64:
	default:
		return nil, fmt.Errorf("unsupported architecture %q", arch)
	}
	return &Decoder{Arch: arch, mem: mem, lo: mem.Start(), hi: mem.Start() + mem.Len()}, nil
}

func (d *Decoder) inImage(v uint64) bool {
	return v != 0 && v >= d.lo && v < d.hi
}

// Decode disassembles the instruction at va.
func (d *Decoder) Decode(va uint64) (Inst, error) {
	switch d.Arch {
	case ARM64:
		return d.decodeARM64(va)
	case I386:
		return d.decodeX86(va, 32)
	default:
		return d.decodeX86(va, 64)
	}
}

// InstructionLength implements host.Disassembler.
func (d *Decoder) InstructionLength(va uint64) (int, bool) {
	in, err := d.Decode(va)
	if err != nil {
		return 0, false
	}
	return in.Len, true
}

// ConstantsReferenced implements host.Disassembler.
func (d *Decoder) ConstantsReferenced(_ host.Function, va uint64) ([]host.Constant, bool) {
	in, err := d.Decode(va)
	if err != nil {
		return nil, false
	}
	return in.Constants, true
}

// Range decodes [start, end) linearly, stopping at the first byte that does
// not decode.
func (d *Decoder) Range(start, end uint64) (Stream, error) {
	var out Stream
	for va := start; va < end; {
		in, err := d.Decode(va)
		if err != nil {
			return out, fmt.Errorf("decode %#x: %w", va, err)
		}
		out = append(out, in)
		va = in.End()
	}
	return out, nil
}
