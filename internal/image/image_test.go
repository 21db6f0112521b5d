package image

import (
	"bytes"
	"testing"

	"sigtool/internal/host/hosttest"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		segments []hosttest.Segment
		start    uint64
		want     []byte
	}{
		{
			name:     "single segment",
			segments: []hosttest.Segment{{Addr: 0x1000, Data: []byte{1, 2, 3}}},
			start:    0x1000,
			want:     []byte{1, 2, 3},
		},
		{
			name: "gap is zero padded",
			segments: []hosttest.Segment{
				{Addr: 0x1000, Data: []byte{1, 2}},
				{Addr: 0x1005, Data: []byte{3, 4}},
			},
			start: 0x1000,
			want:  []byte{1, 2, 0, 0, 0, 3, 4},
		},
		{
			name: "adjacent segments",
			segments: []hosttest.Segment{
				{Addr: 0x10, Data: []byte{0xAA}},
				{Addr: 0x11, Data: []byte{0xBB}},
				{Addr: 0x14, Data: []byte{0xCC}},
			},
			start: 0x10,
			want:  []byte{0xAA, 0xBB, 0, 0, 0xCC},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := hosttest.New(tt.segments...)
			im := Build(bin, 0)
			if im.Start != tt.start {
				t.Errorf("Start = %#x, want %#x", im.Start, tt.start)
			}
			if !bytes.Equal(im.Data, tt.want) {
				t.Errorf("Data = % X, want % X", im.Data, tt.want)
			}
			if im.Len() != bin.Len() {
				t.Errorf("Len = %d, want %d", im.Len(), bin.Len())
			}
			if im.Truncated {
				t.Error("image unexpectedly truncated")
			}
		})
	}
}

func TestBuildSegmentLimit(t *testing.T) {
	var segs []hosttest.Segment
	for i := uint64(0); i < 10; i++ {
		segs = append(segs, hosttest.Segment{Addr: i * 4, Data: []byte{byte(i + 1)}})
	}
	bin := hosttest.New(segs...)

	im := Build(bin, 4)
	if !im.Truncated {
		t.Fatal("expected truncated image")
	}
	if im.Segments != 3 {
		t.Errorf("Segments = %d, want 3", im.Segments)
	}
	want := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}
	if !bytes.Equal(im.Data, want) {
		t.Errorf("Data = % X, want % X", im.Data, want)
	}
}

func TestOffset(t *testing.T) {
	im := FromBytes(0x400000, make([]byte, 16))

	if off, ok := im.Offset(0x400004); !ok || off != 4 {
		t.Errorf("Offset(0x400004) = %d, %v", off, ok)
	}
	if _, ok := im.Offset(0x400010); ok {
		t.Error("Offset past end should fail")
	}
	if _, ok := im.Offset(0x3FFFFF); ok {
		t.Error("Offset before start should fail")
	}
	if got := im.Address(4); got != 0x400004 {
		t.Errorf("Address(4) = %#x", got)
	}
}
