package scan

import (
	"math"
	"slices"
	"testing"

	"sigtool/internal/image"
	"sigtool/internal/signature"
)

func TestMatches(t *testing.T) {
	data := []byte{0x48, 0x8B, 0x05, 0x10, 0x20, 0x30}

	tests := []struct {
		name   string
		sig    string
		offset uint64
		want   bool
	}{
		{name: "literal prefix", sig: "48 8B 05", offset: 0, want: true},
		{name: "wildcard middle", sig: "48 ?? 05", offset: 0, want: true},
		{name: "literal mismatch", sig: "48 8C", offset: 0, want: false},
		{name: "inner offset", sig: "10 ?? 30", offset: 3, want: true},
		{name: "ends at buffer end", sig: "20 30", offset: 4, want: true},
		{name: "runs past end", sig: "30 ??", offset: 5, want: false},
		{name: "offset past end", sig: "??", offset: 7, want: false},
		{name: "empty at end", sig: "", offset: 6, want: true},
		{name: "empty past end", sig: "", offset: 7, want: false},
		{name: "huge offset", sig: "48", offset: math.MaxUint64, want: false},
		{name: "all wildcards", sig: "?? ?? ??", offset: 2, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := signature.MustParse(tt.sig)
			if got := Matches(sig, data, tt.offset); got != tt.want {
				t.Errorf("Matches(%s, %d) = %v, want %v", tt.sig, tt.offset, got, tt.want)
			}
		})
	}
}

func TestMatchesProperty(t *testing.T) {
	data := []byte{0x00, 0x11, 0x22, 0x11, 0x22, 0x33, 0x44, 0x11}
	sigs := []signature.Signature{
		signature.MustParse("11 22"),
		signature.MustParse("11 ?? 33"),
		signature.MustParse("?? ?? ?? ??"),
		signature.MustParse("44 11"),
	}

	for _, sig := range sigs {
		for off := 0; off+len(sig) <= len(data); off++ {
			want := true
			for i, b := range sig {
				if v, ok := b.Value(); ok && v != data[off+i] {
					want = false
				}
			}
			if got := Matches(sig, data, uint64(off)); got != want {
				t.Errorf("Matches(%v, %d) = %v, want %v", sig, off, got, want)
			}
		}
	}
}

func TestScan(t *testing.T) {
	data := []byte{0x90, 0x90, 0x90, 0x01, 0x90, 0x90, 0x90, 0x01, 0x90, 0x90}
	im := image.FromBytes(0x1000, data)

	got := Scan(signature.Signature{signature.Match(0x01)}, im, 5)
	want := []uint64{0x1003, 0x1007}
	if !slices.Equal(got, want) {
		t.Errorf("Scan = %#x, want %#x", got, want)
	}
}

func TestScanCap(t *testing.T) {
	im := image.FromBytes(0, []byte{1, 2, 1, 2, 1, 2, 1, 2, 1, 2, 0, 0})
	sig := signature.MustParse("01 02")

	tests := []struct {
		max  int
		want []uint64
	}{
		{max: 0, want: nil},
		{max: 1, want: []uint64{0}},
		{max: 2, want: []uint64{0, 2}},
		{max: 5, want: []uint64{0, 2, 4, 6, 8}},
		{max: 50, want: []uint64{0, 2, 4, 6, 8}},
	}

	for _, tt := range tests {
		got := Scan(sig, im, tt.max)
		if len(got) > tt.max {
			t.Errorf("max=%d returned %d matches", tt.max, len(got))
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("Scan(max=%d) = %v, want %v", tt.max, got, tt.want)
		}
	}
}

// The last two start offsets are excluded from the search, so a signature
// sitting flush against the end of the buffer is not reported.
func TestScanBoundary(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		sig  string
		want []uint64
	}{
		{name: "flush with end", data: []byte{0, 0, 0, 0xAA, 0xBB}, sig: "AA BB", want: nil},
		{name: "one byte before end", data: []byte{0, 0, 0xAA, 0xBB, 0}, sig: "AA BB", want: nil},
		{name: "two bytes before end", data: []byte{0, 0xAA, 0xBB, 0, 0}, sig: "AA BB", want: []uint64{1}},
		{name: "buffer too small", data: []byte{0xAA, 0xBB}, sig: "AA BB", want: nil},
		{name: "empty signature", data: []byte{0, 0, 0}, sig: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scan(signature.MustParse(tt.sig), image.FromBytes(0, tt.data), 10)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Scan = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUnique(t *testing.T) {
	im := image.FromBytes(0, []byte{0x55, 0x48, 0x55, 0x49, 0x00, 0x00})
	if IsUnique(signature.MustParse("55"), im) {
		t.Error("55 occurs twice")
	}
	if !IsUnique(signature.MustParse("55 49"), im) {
		t.Error("55 49 occurs once")
	}
}

func TestScanMatchesRegexp(t *testing.T) {
	data := []byte("\x00\x48\x8b\x05\x01\x48\x8b\x0d\x02\x48\x8b\x05\x03\x00\x00\x00")
	sig := signature.MustParse("48 8B ?? ??")
	re, err := sig.Regexp()
	if err != nil {
		t.Fatal(err)
	}

	var want []uint64
	for _, loc := range re.FindAllIndex(data, -1) {
		want = append(want, uint64(loc[0]))
	}
	got := Scan(sig, image.FromBytes(0, data), 100)
	if !slices.Equal(got, want) {
		t.Errorf("Scan = %v, regexp = %v", got, want)
	}
}

func TestScanIndexedAgreesWithScan(t *testing.T) {
	data := []byte{
		0x55, 0x48, 0x89, 0xE5, 0xE8, 0x10, 0x00, 0x00, 0x00, 0x5D,
		0x55, 0x48, 0x89, 0xE5, 0xE8, 0x20, 0x00, 0x00, 0x00, 0x5D,
		0x55, 0x48, 0x89, 0xE5, 0xE8, 0x30, 0x00, 0x00, 0x00, 0x5D,
		0x48, 0x89, 0xE5,
	}
	im := image.FromBytes(0x7000, data)

	sigs := []string{
		"55 48 89 E5",
		"E8 ?? ?? ?? ?? 5D",
		"?? 48 89",
		"48 89 E5",
		"?? ??",
		"5D 55",
		"CC",
		"",
	}
	for _, text := range sigs {
		sig := signature.MustParse(text)
		for _, max := range []int{0, 1, 2, 50} {
			want := Scan(sig, im, max)
			got := ScanIndexed(sig, im, max)
			if !slices.Equal(got, want) {
				t.Errorf("%q max=%d: ScanIndexed = %#x, Scan = %#x", text, max, got, want)
			}
		}
	}
}
