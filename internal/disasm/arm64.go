package disasm

import (
	"strings"

	"golang.org/x/arch/arm64/arm64asm"

	"sigtool/internal/host"
)

// arm64PointerSize is the number of bytes wildcarded for a PC-relative
// operand. The immediate fields of B, BL, ADRP and friends spread over the
// upper three bytes of the little-endian word.
const arm64PointerSize = 3

func (d *Decoder) decodeARM64(va uint64) (Inst, error) {
	src := d.mem.ReadBytes(va, 4)
	ai, err := arm64asm.Decode(src)
	if err != nil {
		return Inst{}, err
	}

	in := Inst{
		VA:   va,
		Len:  4,
		Raw:  src[:4],
		Op:   strings.ToLower(ai.Op.String()),
		Text: arm64asm.GNUSyntax(ai),
	}

	for _, arg := range ai.Args {
		if arg == nil {
			break
		}
		rel, ok := arg.(arm64asm.PCRel)
		if !ok {
			continue
		}
		target := va + uint64(int64(rel))
		if ai.Op == arm64asm.ADRP {
			target = va&^0xFFF + uint64(int64(rel))
		}
		in.Constants = append(in.Constants, host.Constant{Size: arm64PointerSize, Pointer: true, Value: target})
		in.Target, in.HasTarget = target, true
	}

	switch ai.Op {
	case arm64asm.B:
		in.Branch = true
		if _, cond := ai.Args[0].(arm64asm.Cond); !cond {
			in.Terminal = true
		}
	case arm64asm.CBZ, arm64asm.CBNZ, arm64asm.TBZ, arm64asm.TBNZ:
		in.Branch = true
	case arm64asm.BR, arm64asm.RET, arm64asm.ERET:
		in.Branch, in.Terminal = true, true
	case arm64asm.BL, arm64asm.BLR:
		in.Call = true
	}
	return in, nil
}
