// Package elfx opens ELF binaries and exposes their PT_LOAD segments as the
// mapped address space of the image.
package elfx

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"

	"golang.org/x/exp/mmap"

	"sigtool/internal/disasm"
)

type Image struct {
	Path  string
	File  *elf.File
	Loads []Seg
	Text  Section
	Funcs []Symbol
	r     *mmap.ReaderAt
}

// Seg is one PT_LOAD segment. Bytes past Filesz up to Memsz read as zero.
type Seg struct {
	Vaddr, Off, Filesz, Memsz uint64
	Flags                     elf.ProgFlag
}

func (s Seg) end() uint64 { return s.Vaddr + s.Memsz }

type Section struct {
	Name          string
	VA, Off, Size uint64
}

// Symbol is a defined STT_FUNC symbol.
type Symbol struct {
	Name    string
	Addr    uint64
	Size    uint64
	Dynamic bool
}

func Open(path string) (*Image, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap file: %w", err)
	}

	f, err := elf.NewFile(r)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("open elf: %w", err)
	}

	im := &Image{Path: path, File: f, r: r}
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Memsz == 0 {
			continue
		}
		im.Loads = append(im.Loads, Seg{
			Vaddr:  p.Vaddr,
			Off:    p.Off,
			Filesz: p.Filesz,
			Memsz:  p.Memsz,
			Flags:  p.Flags,
		})
	}
	if len(im.Loads) == 0 {
		im.Close()
		return nil, fmt.Errorf("%s: no loadable segments", path)
	}
	sort.Slice(im.Loads, func(i, j int) bool { return im.Loads[i].Vaddr < im.Loads[j].Vaddr })

	if s := f.Section(".text"); s != nil {
		im.Text = Section{s.Name, s.Addr, s.Offset, s.Size}
	} else {
		for _, l := range im.Loads {
			if l.Flags&elf.PF_X != 0 && l.Filesz > 0 {
				im.Text = Section{"LOAD(exec)", l.Vaddr, l.Off, l.Filesz}
				break
			}
		}
	}

	im.loadFuncSymbols()
	return im, nil
}

// Close unmaps the file.
func (im *Image) Close() error {
	if im.r == nil {
		return nil
	}
	err := im.r.Close()
	im.r = nil
	im.File = nil
	return err
}

// Arch maps the ELF machine onto a decoder architecture.
func (im *Image) Arch() (disasm.Arch, error) {
	switch im.File.Machine {
	case elf.EM_X86_64:
		return disasm.AMD64, nil
	case elf.EM_386:
		return disasm.I386, nil
	case elf.EM_AARCH64:
		return disasm.ARM64, nil
	}
	return "", fmt.Errorf("unsupported machine %v", im.File.Machine)
}

// loadFuncSymbols collects function symbols from .symtab and .dynsym.
// Static names win when both tables describe the same address.
func (im *Image) loadFuncSymbols() {
	seen := make(map[uint64]bool)
	add := func(syms []elf.Symbol, dynamic bool) {
		for _, sym := range syms {
			if elf.ST_TYPE(sym.Info) != elf.STT_FUNC || sym.Section == elf.SHN_UNDEF {
				continue
			}
			if sym.Value == 0 || sym.Size == 0 || seen[sym.Value] {
				continue
			}
			seen[sym.Value] = true
			im.Funcs = append(im.Funcs, Symbol{Name: sym.Name, Addr: sym.Value, Size: sym.Size, Dynamic: dynamic})
		}
	}

	// Either table may be missing on stripped binaries.
	if syms, err := im.File.Symbols(); err == nil {
		add(syms, false)
	}
	if syms, err := im.File.DynamicSymbols(); err == nil {
		add(syms, true)
	}
	slices.SortFunc(im.Funcs, func(a, b Symbol) int {
		switch {
		case a.Addr < b.Addr:
			return -1
		case a.Addr > b.Addr:
			return 1
		}
		return 0
	})
}

func (im *Image) segment(va uint64) (Seg, bool) {
	i := sort.Search(len(im.Loads), func(i int) bool { return im.Loads[i].end() > va })
	if i < len(im.Loads) && va >= im.Loads[i].Vaddr {
		return im.Loads[i], true
	}
	return Seg{}, false
}

// Start is the lowest loaded address.
func (im *Image) Start() uint64 {
	return im.Loads[0].Vaddr
}

// Len spans from Start to the end of the highest segment.
func (im *Image) Len() uint64 {
	var end uint64
	for _, l := range im.Loads {
		end = max(end, l.end())
	}
	return end - im.Start()
}

func (im *Image) IsMapped(va uint64) bool {
	_, ok := im.segment(va)
	return ok
}

func (im *Image) NextMappedAfter(va uint64) uint64 {
	for _, l := range im.Loads {
		if va < l.end() {
			return max(va, l.Vaddr)
		}
	}
	return im.Start() + im.Len()
}

// MappedLength counts the contiguous mapped bytes at va, following
// segments that start exactly where the previous one ends.
func (im *Image) MappedLength(va uint64) uint64 {
	var n uint64
	for {
		s, ok := im.segment(va + n)
		if !ok {
			return n
		}
		n = s.end() - va
	}
}

// VA2Off translates a virtual address into a file offset. It returns false
// for unmapped addresses and for the zero-filled tail of a segment.
func (im *Image) VA2Off(va uint64) (uint64, bool) {
	s, ok := im.segment(va)
	if !ok || va >= s.Vaddr+s.Filesz {
		return 0, false
	}
	return s.Off + (va - s.Vaddr), true
}

// ReadBytes returns up to n bytes at va, crossing into adjacent segments
// and stopping at the first unmapped address.
func (im *Image) ReadBytes(va uint64, n int) []byte {
	if n <= 0 {
		return nil
	}
	out := make([]byte, 0, n)
	for len(out) < n {
		cur := va + uint64(len(out))
		s, ok := im.segment(cur)
		if !ok {
			break
		}
		want := min(uint64(n-len(out)), s.end()-cur)
		chunk := make([]byte, want)
		if cur < s.Vaddr+s.Filesz {
			fileLen := min(want, s.Vaddr+s.Filesz-cur)
			off := int64(s.Off + (cur - s.Vaddr))
			if _, err := im.r.ReadAt(chunk[:fileLen], off); err != nil && !errors.Is(err, io.EOF) {
				break
			}
		}
		out = append(out, chunk...)
	}
	return out
}

// ReadBytesVA reads exactly size bytes from a virtual address.
func (im *Image) ReadBytesVA(va uint64, size int) ([]byte, bool) {
	b := im.ReadBytes(va, size)
	return b, len(b) == size
}

// InText reports whether va lies inside the executable text.
func (im *Image) InText(va uint64) bool {
	return im.Text.Size != 0 && va >= im.Text.VA && va < im.Text.VA+im.Text.Size
}
