// Package rawimg exposes a flat blob (memory dump, firmware image) loaded at
// a base address as a host.Memory.
package rawimg

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/exp/mmap"
)

// Image is one contiguous mapping of size bytes at Base.
type Image struct {
	Base uint64
	size uint64
	r    io.ReaderAt
	c    io.Closer
}

// New wraps data loaded at base.
func New(base uint64, data []byte) *Image {
	return &Image{Base: base, size: uint64(len(data)), r: bytes.NewReader(data)}
}

// Open maps the file at path and loads it at base.
func Open(path string, base uint64) (*Image, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap file: %w", err)
	}
	if r.Len() == 0 {
		r.Close()
		return nil, fmt.Errorf("%s: empty file", path)
	}
	return &Image{Base: base, size: uint64(r.Len()), r: r, c: r}, nil
}

func (im *Image) Close() error {
	if im.c == nil {
		return nil
	}
	err := im.c.Close()
	im.c = nil
	return err
}

func (im *Image) Start() uint64 { return im.Base }
func (im *Image) Len() uint64   { return im.size }

func (im *Image) IsMapped(addr uint64) bool {
	return addr >= im.Base && addr-im.Base < im.size
}

func (im *Image) NextMappedAfter(addr uint64) uint64 {
	if addr < im.Base {
		return im.Base
	}
	return min(addr, im.Base+im.size)
}

func (im *Image) MappedLength(addr uint64) uint64 {
	if !im.IsMapped(addr) {
		return 0
	}
	return im.size - (addr - im.Base)
}

func (im *Image) ReadBytes(addr uint64, n int) []byte {
	if n <= 0 || !im.IsMapped(addr) {
		return nil
	}
	n = int(min(uint64(n), im.MappedLength(addr)))
	out := make([]byte, n)
	// A short read returns the bytes that did arrive.
	got, _ := im.r.ReadAt(out, int64(addr-im.Base))
	return out[:got]
}
