// Package image stitches the mapped segments of a binary into one logical
// buffer whose offsets line up with virtual addresses.
package image

import "sigtool/internal/host"

// DefaultSegmentLimit bounds the number of mapped runs read by Build.
const DefaultSegmentLimit = 1000

// Image is a contiguous view of an address space. Unmapped gaps between
// segments are zero bytes, so Data[addr-Start] is the byte at addr.
type Image struct {
	Start     uint64
	Data      []byte
	Segments  int  // mapped runs that were read
	Truncated bool // the segment limit stopped the read early
}

// Len is the size of the logical buffer.
func (im *Image) Len() uint64 {
	return uint64(len(im.Data))
}

// End is the address one past the last byte of the buffer.
func (im *Image) End() uint64 {
	return im.Start + im.Len()
}

// Offset converts an address into a buffer offset.
func (im *Image) Offset(addr uint64) (uint64, bool) {
	if addr < im.Start || addr >= im.End() {
		return 0, false
	}
	return addr - im.Start, true
}

// Address converts a buffer offset into an address.
func (im *Image) Address(offset uint64) uint64 {
	return im.Start + offset
}

// FromBytes wraps an already contiguous buffer.
func FromBytes(start uint64, data []byte) *Image {
	return &Image{Start: start, Data: data, Segments: 1}
}

// Build reads every mapped run of mem in address order. At most limit runs
// are read (DefaultSegmentLimit when limit <= 0); reaching the limit marks
// the image Truncated instead of looping on a pathological layout.
func Build(mem host.Memory, limit int) *Image {
	if limit <= 0 {
		limit = DefaultSegmentLimit
	}

	start := mem.Start()
	end := start + mem.Len()
	im := &Image{Start: start, Data: make([]byte, 0, mem.Len())}

	next := start
	for {
		if im.Segments+1 >= limit {
			im.Truncated = true
			break
		}
		im.Segments++

		run := mappedLength(mem, next, end)
		chunk := mem.ReadBytes(next, int(run))
		im.Data = append(im.Data, chunk...)
		current := next + uint64(len(chunk))

		next = mem.NextMappedAfter(current)
		if next >= end || next < current {
			break
		}
		// Zero padding keeps offsets aligned with addresses.
		im.Data = append(im.Data, make([]byte, next-current)...)
	}
	return im
}

func mappedLength(mem host.Memory, addr, end uint64) uint64 {
	if ext, ok := mem.(host.Extent); ok {
		return ext.MappedLength(addr)
	}
	var n uint64
	for addr+n < end && mem.IsMapped(addr+n) {
		n++
	}
	return n
}
