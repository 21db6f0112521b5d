package rawimg

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"sigtool/internal/image"
)

func TestMemory(t *testing.T) {
	im := New(0x400000, []byte{1, 2, 3, 4})

	tests := []struct {
		addr   uint64
		mapped bool
		next   uint64
	}{
		{addr: 0x3FFFFF, mapped: false, next: 0x400000},
		{addr: 0x400000, mapped: true, next: 0x400000},
		{addr: 0x400003, mapped: true, next: 0x400003},
		{addr: 0x400004, mapped: false, next: 0x400004},
		{addr: 0x500000, mapped: false, next: 0x400004},
	}
	for _, tt := range tests {
		if got := im.IsMapped(tt.addr); got != tt.mapped {
			t.Errorf("IsMapped(%#x) = %v", tt.addr, got)
		}
		if got := im.NextMappedAfter(tt.addr); got != tt.next {
			t.Errorf("NextMappedAfter(%#x) = %#x, want %#x", tt.addr, got, tt.next)
		}
	}

	if got := im.ReadBytes(0x400002, 10); !bytes.Equal(got, []byte{3, 4}) {
		t.Errorf("ReadBytes = % X", got)
	}
	if got := im.ReadBytes(0x400004, 1); got != nil {
		t.Errorf("ReadBytes past end = % X", got)
	}
}

func TestOpen(t *testing.T) {
	data := []byte{0x55, 0x48, 0x89, 0xE5, 0xC3}
	path := filepath.Join(t.TempDir(), "blob.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	im, err := Open(path, 0x10000)
	if err != nil {
		t.Fatal(err)
	}
	defer im.Close()

	built := image.Build(im, 0)
	if built.Start != 0x10000 || !bytes.Equal(built.Data, data) {
		t.Errorf("image = %#x % X", built.Start, built.Data)
	}
}

func TestOpenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, 0); err == nil {
		t.Error("Open accepted an empty file")
	}
}
