// Package hosttest provides an in-memory host.Binary for tests.
package hosttest

import (
	"sort"

	"sigtool/internal/host"
)

// Segment is a mapped run of bytes at Addr.
type Segment struct {
	Addr uint64
	Data []byte
}

func (s Segment) end() uint64 { return s.Addr + uint64(len(s.Data)) }

// Insn describes the instruction decoded at one address.
type Insn struct {
	Len       int
	Constants []host.Constant
	// Unavailable makes ConstantsReferenced report false.
	Unavailable bool
}

// Func is a function with explicit basic blocks.
type Func struct {
	Addr   uint64
	Label  string
	Blocks []host.BasicBlock
}

func (f *Func) Start() uint64                  { return f.Addr }
func (f *Func) Name() string                   { return f.Label }
func (f *Func) BasicBlocks() []host.BasicBlock { return f.Blocks }

// NewFunc returns a function made of one block covering [start, end).
func NewFunc(name string, start, end uint64) *Func {
	return &Func{Addr: start, Label: name, Blocks: []host.BasicBlock{{Start: start, End: end}}}
}

// Binary is a fake host. Addresses without an Insns entry decode as
// DefaultLen-byte instructions with no constants when they are mapped.
type Binary struct {
	Segments   []Segment
	Insns      map[uint64]Insn
	DefaultLen int
	Funcs      []*Func

	// Reads counts ReadBytes calls.
	Reads int
}

// New builds a fake host from segments. DefaultLen is 1.
func New(segments ...Segment) *Binary {
	sort.Slice(segments, func(i, j int) bool { return segments[i].Addr < segments[j].Addr })
	return &Binary{Segments: segments, Insns: map[uint64]Insn{}, DefaultLen: 1}
}

// Start implements host.Memory.
func (b *Binary) Start() uint64 {
	if len(b.Segments) == 0 {
		return 0
	}
	return b.Segments[0].Addr
}

// Len implements host.Memory.
func (b *Binary) Len() uint64 {
	if len(b.Segments) == 0 {
		return 0
	}
	return b.Segments[len(b.Segments)-1].end() - b.Start()
}

func (b *Binary) segment(addr uint64) (Segment, bool) {
	for _, s := range b.Segments {
		if addr >= s.Addr && addr < s.end() {
			return s, true
		}
	}
	return Segment{}, false
}

// IsMapped implements host.Memory.
func (b *Binary) IsMapped(addr uint64) bool {
	_, ok := b.segment(addr)
	return ok
}

// NextMappedAfter implements host.Memory.
func (b *Binary) NextMappedAfter(addr uint64) uint64 {
	for _, s := range b.Segments {
		if addr < s.end() {
			return max(addr, s.Addr)
		}
	}
	return b.Start() + b.Len()
}

// ReadBytes implements host.Memory.
func (b *Binary) ReadBytes(addr uint64, n int) []byte {
	b.Reads++
	s, ok := b.segment(addr)
	if !ok {
		return nil
	}
	off := addr - s.Addr
	end := min(off+uint64(n), uint64(len(s.Data)))
	out := make([]byte, end-off)
	copy(out, s.Data[off:end])
	return out
}

// InstructionLength implements host.Disassembler.
func (b *Binary) InstructionLength(addr uint64) (int, bool) {
	if insn, ok := b.Insns[addr]; ok {
		return insn.Len, true
	}
	if b.DefaultLen > 0 && b.IsMapped(addr) {
		return b.DefaultLen, true
	}
	return 0, false
}

// ConstantsReferenced implements host.Disassembler.
func (b *Binary) ConstantsReferenced(_ host.Function, addr uint64) ([]host.Constant, bool) {
	insn, ok := b.Insns[addr]
	if !ok {
		return nil, true
	}
	if insn.Unavailable {
		return nil, false
	}
	return insn.Constants, true
}

// BlocksContaining implements host.FunctionIndex.
func (b *Binary) BlocksContaining(addr uint64) []host.BlockRef {
	var refs []host.BlockRef
	for _, f := range b.Funcs {
		for _, blk := range f.Blocks {
			if blk.Contains(addr) {
				refs = append(refs, host.BlockRef{Function: f, Block: blk})
			}
		}
	}
	return refs
}

// Functions lists the functions in declaration order.
func (b *Binary) Functions() []host.Function {
	out := make([]host.Function, len(b.Funcs))
	for i, f := range b.Funcs {
		out[i] = f
	}
	return out
}
