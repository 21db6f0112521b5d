package elfx

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"sigtool/internal/disasm"
	"sigtool/internal/image"
)

func openSelf(t *testing.T) *Image {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("test binary is not ELF")
	}
	exe, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	im, err := Open(exe)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { im.Close() })
	return im
}

func TestOpenSelf(t *testing.T) {
	im := openSelf(t)

	arch, err := im.Arch()
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" || runtime.GOARCH == "386" {
		if err != nil || arch != disasm.Arch(runtime.GOARCH) {
			t.Errorf("Arch = %q, %v", arch, err)
		}
	}

	if !im.IsMapped(im.Start()) {
		t.Error("Start is not mapped")
	}
	if im.IsMapped(im.Start() + im.Len()) {
		t.Error("end of image is mapped")
	}
	if im.Text.Size == 0 || !im.InText(im.Text.VA) {
		t.Errorf("text section = %+v", im.Text)
	}
}

func TestReadBytesMatchesText(t *testing.T) {
	im := openSelf(t)

	var sym Symbol
	for _, s := range im.Funcs {
		if strings.HasSuffix(s.Name, "elfx.TestReadBytesMatchesText") {
			sym = s
			break
		}
	}
	if sym.Addr == 0 {
		t.Skip("binary has no symbol table")
	}

	text := im.File.Section(".text")
	data, err := text.Data()
	if err != nil {
		t.Fatal(err)
	}
	off := sym.Addr - text.Addr
	want := data[off : off+16]

	got, ok := im.ReadBytesVA(sym.Addr, 16)
	if !ok || !bytes.Equal(got, want) {
		t.Errorf("ReadBytesVA = % X, want % X", got, want)
	}
}

func TestFuncsSortedAndUnique(t *testing.T) {
	im := openSelf(t)
	for i := 1; i < len(im.Funcs); i++ {
		if im.Funcs[i-1].Addr >= im.Funcs[i].Addr {
			t.Fatalf("symbols out of order at %d: %#x >= %#x", i, im.Funcs[i-1].Addr, im.Funcs[i].Addr)
		}
	}
}

func TestMemoryMatchesSegments(t *testing.T) {
	im := openSelf(t)

	built := image.Build(im, 0)
	if built.Start != im.Start() || built.Len() != im.Len() {
		t.Fatalf("image %#x+%#x, elf %#x+%#x", built.Start, built.Len(), im.Start(), im.Len())
	}
	for _, l := range im.Loads {
		if l.Filesz == 0 {
			continue
		}
		n := min(l.Filesz, 64)
		want := make([]byte, n)
		if _, err := im.r.ReadAt(want, int64(l.Off)); err != nil {
			t.Fatal(err)
		}
		got := built.Data[l.Vaddr-built.Start:][:n]
		if !bytes.Equal(got, want) {
			t.Errorf("segment %#x: % X, want % X", l.Vaddr, got, want)
		}
	}
}

func TestOpenNotELF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-elf")
	if err := os.WriteFile(path, []byte("hello world, not an elf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("Open accepted a non-ELF file")
	}
}
