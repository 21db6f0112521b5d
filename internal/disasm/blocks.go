package disasm

import (
	"slices"

	"sigtool/internal/host"
)

// Blocks splits [start, end) into basic blocks with a linear sweep. A block
// ends after every branch and a new one starts at every branch target that
// falls inside the range. The sweep stops at the first byte that does not
// decode.
func (d *Decoder) Blocks(start, end uint64) []host.BasicBlock {
	leaders := map[uint64]bool{start: true}
	stop := start
	for va := start; va < end; {
		in, err := d.Decode(va)
		if err != nil {
			break
		}
		next := in.End()
		if in.Branch {
			leaders[next] = true
			if in.HasTarget && in.Target > start && in.Target < end {
				leaders[in.Target] = true
			}
		}
		stop, va = next, next
	}
	if stop == start {
		return nil
	}

	var points []uint64
	for a := range leaders {
		if a < stop {
			points = append(points, a)
		}
	}
	slices.Sort(points)

	blocks := make([]host.BasicBlock, len(points))
	for i, a := range points {
		blockEnd := stop
		if i+1 < len(points) {
			blockEnd = points[i+1]
		}
		blocks[i] = host.BasicBlock{Start: a, End: blockEnd}
	}
	return blocks
}
