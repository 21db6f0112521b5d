// Package scan matches signatures against a logical image.
package scan

import (
	"bytes"

	"sigtool/internal/image"
	"sigtool/internal/signature"
)

// Matches reports whether sig matches data at offset. Offsets that would
// evaluate bytes past the end of data never match. An empty signature
// matches at every offset inside data.
func Matches(sig signature.Signature, data []byte, offset uint64) bool {
	n := uint64(len(data))
	if offset > n || uint64(len(sig)) > n-offset {
		return false
	}
	window := data[offset:]
	for i, b := range sig {
		if !b.Matches(window[i]) {
			return false
		}
	}
	return true
}

// Scan returns the addresses where sig matches in im, in ascending order,
// stopping as soon as max addresses are collected. An empty signature finds
// nothing.
//
// Start offsets run over [0, len(data)-len(sig)-1), so the last two
// candidate offsets of the buffer are never examined.
func Scan(sig signature.Signature, im *image.Image, max int) []uint64 {
	var found []uint64
	if max <= 0 || len(sig) == 0 {
		return found
	}

	n, siglen := im.Len(), uint64(len(sig))
	if n < siglen+1 {
		return found
	}
	limit := n - siglen - 1

	for off := uint64(0); off < limit; off++ {
		if !Matches(sig, im.Data, off) {
			continue
		}
		found = append(found, im.Address(off))
		if len(found) >= max {
			break
		}
	}
	return found
}

// ScanIndexed returns the same addresses as Scan. It jumps between
// occurrences of the longest literal run of sig instead of testing every
// offset, which pays off for user-supplied signatures on large images.
func ScanIndexed(sig signature.Signature, im *image.Image, max int) []uint64 {
	needle, shift := sig.Needle()
	if len(needle) == 0 {
		return Scan(sig, im, max)
	}

	var found []uint64
	if max <= 0 {
		return found
	}
	n, siglen := im.Len(), uint64(len(sig))
	if n < siglen+1 {
		return found
	}
	limit := n - siglen - 1

	for pos := uint64(shift); pos < n; {
		i := bytes.Index(im.Data[pos:], needle)
		if i < 0 {
			break
		}
		hit := pos + uint64(i)
		pos = hit + 1

		off := hit - uint64(shift)
		if off >= limit {
			break
		}
		if !Matches(sig, im.Data, off) {
			continue
		}
		found = append(found, im.Address(off))
		if len(found) >= max {
			break
		}
	}
	return found
}

// Count returns the number of matches of sig in im, up to max.
func Count(sig signature.Signature, im *image.Image, max int) int {
	return len(Scan(sig, im, max))
}

// IsUnique reports whether sig matches at most once in im.
func IsUnique(sig signature.Signature, im *image.Image) bool {
	return Count(sig, im, 2) < 2
}
