// Package host defines the collaborators the signature engine depends on:
// the image reader, the disassembly service and the function index. Loaders
// such as elfx and rawimg implement them; the engine never sees file formats.
package host

import (
	"errors"
	"fmt"
)

// ErrAddressNotInFunction is returned when an address is covered by no basic
// block, or by more than one.
var ErrAddressNotInFunction = errors.New("address not in function")

// Constant is one constant operand referenced by an instruction.
type Constant struct {
	Size    int    // encoded size in bytes
	Pointer bool   // the value refers to an address
	Value   uint64 // decoded value
}

// BasicBlock is the half-open address range [Start, End).
type BasicBlock struct {
	Start, End uint64
}

// Contains reports whether addr lies inside the block.
func (b BasicBlock) Contains(addr uint64) bool {
	return addr >= b.Start && addr < b.End
}

// Function is a function known to the analysis backend.
type Function interface {
	Start() uint64
	Name() string
	BasicBlocks() []BasicBlock
}

// BlockRef ties a basic block to the function that owns it.
type BlockRef struct {
	Function Function
	Block    BasicBlock
}

// Memory reads the mapped address space of a binary image.
type Memory interface {
	// Start is the lowest mapped address.
	Start() uint64
	// Len is the distance from Start to the end of the highest mapping.
	Len() uint64
	IsMapped(addr uint64) bool
	// NextMappedAfter returns the first mapped address >= addr, or
	// Start()+Len() when none is left.
	NextMappedAfter(addr uint64) uint64
	// ReadBytes returns up to n bytes at addr. Reads stop at the first
	// unmapped byte.
	ReadBytes(addr uint64, n int) []byte
}

// Extent is an optional fast path for Memory: the number of contiguous
// mapped bytes starting at addr.
type Extent interface {
	MappedLength(addr uint64) uint64
}

// Disassembler answers per-instruction questions.
type Disassembler interface {
	// InstructionLength returns the encoded length of the instruction at
	// addr, or false when nothing decodes there.
	InstructionLength(addr uint64) (int, bool)
	// ConstantsReferenced lists the constant operands of the instruction
	// at addr. false means the information is unavailable, not an error.
	ConstantsReferenced(fn Function, addr uint64) ([]Constant, bool)
}

// FunctionIndex locates the basic blocks covering an address.
type FunctionIndex interface {
	BlocksContaining(addr uint64) []BlockRef
}

// Binary bundles everything a signature generator needs from the host.
type Binary interface {
	Memory
	Disassembler
	FunctionIndex
}

// OwningFunction returns the single function whose basic block covers addr.
func OwningFunction(idx FunctionIndex, addr uint64) (Function, error) {
	blocks := idx.BlocksContaining(addr)
	switch len(blocks) {
	case 0:
		return nil, fmt.Errorf("%w: %#x is not within a function", ErrAddressNotInFunction, addr)
	case 1:
		return blocks[0].Function, nil
	default:
		return nil, fmt.Errorf("%w: multiple blocks contain %#x", ErrAddressNotInFunction, addr)
	}
}

// FunctionEnd is the highest end address over fn's basic blocks. It is
// computed on every call because the block set belongs to the backend.
func FunctionEnd(fn Function) uint64 {
	var end uint64
	for _, b := range fn.BasicBlocks() {
		end = max(end, b.End)
	}
	return end
}

// Compose builds a Binary from separate parts.
func Compose(mem Memory, dis Disassembler, idx FunctionIndex) Binary {
	return composite{mem, dis, idx}
}

type composite struct {
	Memory
	Disassembler
	FunctionIndex
}

// MappedLength forwards the Extent fast path of the wrapped Memory.
func (c composite) MappedLength(addr uint64) uint64 {
	if ext, ok := c.Memory.(Extent); ok {
		return ext.MappedLength(addr)
	}
	var n uint64
	for c.IsMapped(addr + n) {
		n++
	}
	return n
}
