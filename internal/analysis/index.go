// Package analysis turns function symbols into the function and basic-block
// index the signature generators query.
package analysis

import (
	"sort"
	"strings"
	"sync"

	"sigtool/internal/elfx"
	"sigtool/internal/host"
)

// BlockFinder discovers the basic blocks of an address range.
type BlockFinder interface {
	Blocks(start, end uint64) []host.BasicBlock
}

// Function is a function symbol. Its basic blocks are discovered on first
// use.
type Function struct {
	Addr    uint64
	Size    uint64
	Mangled string

	finder BlockFinder
	once   sync.Once
	blocks []host.BasicBlock
}

func (f *Function) Start() uint64 { return f.Addr }
func (f *Function) End() uint64   { return f.Addr + f.Size }

// Name is the demangled symbol name.
func (f *Function) Name() string { return CachedDemangle(f.Mangled) }

func (f *Function) Contains(addr uint64) bool {
	return addr >= f.Addr && addr < f.End()
}

// BasicBlocks implements host.Function. Without a BlockFinder, or when
// nothing decodes at the entry, the whole symbol is one block.
func (f *Function) BasicBlocks() []host.BasicBlock {
	f.once.Do(func() {
		if f.finder != nil {
			f.blocks = f.finder.Blocks(f.Addr, f.End())
		}
		if len(f.blocks) == 0 {
			f.blocks = []host.BasicBlock{{Start: f.Addr, End: f.End()}}
		}
	})
	return f.blocks
}

// Index implements host.FunctionIndex over a set of function symbols.
type Index struct {
	funcs   []*Function // sorted by Addr
	maxSize uint64
}

// NewIndex builds an index from symbols. finder may be nil.
func NewIndex(syms []elfx.Symbol, finder BlockFinder) *Index {
	idx := &Index{}
	for _, s := range syms {
		if s.Size == 0 {
			continue
		}
		idx.funcs = append(idx.funcs, &Function{Addr: s.Addr, Size: s.Size, Mangled: s.Name, finder: finder})
		idx.maxSize = max(idx.maxSize, s.Size)
	}
	sort.SliceStable(idx.funcs, func(i, j int) bool { return idx.funcs[i].Addr < idx.funcs[j].Addr })
	return idx
}

// Functions lists every function in address order.
func (idx *Index) Functions() []*Function {
	return idx.funcs
}

// containing returns the functions whose symbol range covers addr.
func (idx *Index) containing(addr uint64) []*Function {
	i := sort.Search(len(idx.funcs), func(i int) bool { return idx.funcs[i].Addr > addr })
	var out []*Function
	for j := i - 1; j >= 0; j-- {
		f := idx.funcs[j]
		if addr-f.Addr >= idx.maxSize {
			break
		}
		if f.Contains(addr) {
			out = append(out, f)
		}
	}
	return out
}

// BlocksContaining implements host.FunctionIndex.
func (idx *Index) BlocksContaining(addr uint64) []host.BlockRef {
	var refs []host.BlockRef
	for _, f := range idx.containing(addr) {
		for _, b := range f.BasicBlocks() {
			if b.Contains(addr) {
				refs = append(refs, host.BlockRef{Function: f, Block: b})
			}
		}
	}
	return refs
}

// ByName finds a function by mangled or demangled name. A demangled name
// may omit the parameter list.
func (idx *Index) ByName(name string) (*Function, bool) {
	for _, f := range idx.funcs {
		if f.Mangled == name || f.Name() == name {
			return f, true
		}
	}
	for _, f := range idx.funcs {
		if base, _, ok := strings.Cut(f.Name(), "("); ok && base == name {
			return f, true
		}
	}
	return nil, false
}

// SymbolAt names the function covering addr, in the form disassembly
// listings expect.
func (idx *Index) SymbolAt(addr uint64) (string, uint64) {
	if fs := idx.containing(addr); len(fs) > 0 {
		return fs[0].Name(), fs[0].Addr
	}
	return "", 0
}
