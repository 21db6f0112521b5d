package disasm

import (
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"sigtool/internal/host"
)

const maxX86Len = 15

func (d *Decoder) decodeX86(va uint64, mode int) (Inst, error) {
	src := d.mem.ReadBytes(va, maxX86Len)
	xi, err := x86asm.Decode(src, mode)
	if err != nil {
		return Inst{}, err
	}

	in := Inst{
		VA:   va,
		Len:  xi.Len,
		Raw:  src[:xi.Len],
		Op:   strings.ToLower(xi.Op.String()),
		Text: x86asm.GNUSyntax(xi, va, d.SymName),
	}
	next := in.End()

	for _, arg := range xi.Args {
		if arg == nil {
			break
		}
		switch a := arg.(type) {
		case x86asm.Rel:
			target := next + uint64(int64(a))
			in.Constants = append(in.Constants, host.Constant{Size: xi.PCRel, Pointer: true, Value: target})
			in.Target, in.HasTarget = target, true
		case x86asm.Mem:
			if a.Base == x86asm.RIP {
				target := next + uint64(a.Disp)
				in.Constants = append(in.Constants, host.Constant{Size: xi.PCRel, Pointer: true, Value: target})
				in.Target, in.HasTarget = target, true
				continue
			}
			if a.Disp == 0 {
				continue
			}
			v := uint64(a.Disp)
			if xi.AddrSize == 32 {
				v &= 0xFFFFFFFF
			}
			in.Constants = append(in.Constants, host.Constant{Size: dispSize(a), Pointer: d.inImage(v), Value: v})
		case x86asm.Imm:
			v := uint64(a)
			if xi.DataSize == 32 {
				v &= 0xFFFFFFFF
			}
			in.Constants = append(in.Constants, host.Constant{Size: immSize(xi, int64(a)), Pointer: d.inImage(v), Value: v})
		}
	}

	classifyX86(&in, xi)
	return in, nil
}

func dispSize(m x86asm.Mem) int {
	switch {
	case m.Disp == int64(int8(m.Disp)) && (m.Base != 0 || m.Index != 0):
		return 1
	case m.Disp != int64(int32(m.Disp)):
		return 8
	}
	return 4
}

func immSize(xi x86asm.Inst, v int64) int {
	switch {
	case v != int64(int32(v)):
		return 8
	case xi.DataSize == 16:
		return 2
	case v == int64(int8(v)):
		return 1
	}
	return 4
}

func classifyX86(in *Inst, xi x86asm.Inst) {
	switch xi.Op {
	case x86asm.RET, x86asm.LRET, x86asm.IRET, x86asm.IRETD, x86asm.IRETQ,
		x86asm.HLT, x86asm.UD0, x86asm.UD1, x86asm.UD2:
		in.Branch, in.Terminal = true, true
		return
	case x86asm.JMP, x86asm.LJMP:
		in.Branch, in.Terminal = true, true
		return
	case x86asm.CALL, x86asm.LCALL:
		in.Call = true
		return
	}
	op := xi.Op.String()
	if strings.HasPrefix(op, "J") || strings.HasPrefix(op, "LOOP") {
		in.Branch = true
	}
}
