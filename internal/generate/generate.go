// Package generate builds unique signatures for code addresses. The
// consumer turns one instruction into signature bytes; Incremental and Linear
// grow those runs until the signature identifies a single location.
package generate

import (
	"errors"
	"fmt"

	"sigtool/internal/host"
	"sigtool/internal/signature"
)

var (
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrOversizedWildcard  = errors.New("wildcard covers whole instruction")
	ErrFuncLimitExceeded  = errors.New("not enough unique bytes in the remainder of the function")
	ErrIterLimitExceeded  = errors.New("hit iteration limit")
)

const (
	DefaultIterationLimit = 25
	DefaultHardening      = 3
)

// Options tunes the generators.
type Options struct {
	// IterationLimit caps the growth steps of Incremental. Zero means
	// DefaultIterationLimit.
	IterationLimit int
	// Hardening is the number of instructions Linear appends after the
	// signature became unique.
	Hardening int
}

// DefaultOptions returns the stock limits.
func DefaultOptions() Options {
	return Options{IterationLimit: DefaultIterationLimit, Hardening: DefaultHardening}
}

func (o Options) iterationLimit() int {
	if o.IterationLimit <= 0 {
		return DefaultIterationLimit
	}
	return o.IterationLimit
}

func (o Options) hardening() int {
	return max(o.Hardening, 0)
}

// Observer receives the diagnostics produced while generating. Warn is a log
// line; Alert is something the user should see even when not reading logs.
type Observer interface {
	Warn(msg string, keyvals ...any)
	Alert(msg string)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) Warn(string, ...any) {}
func (NopObserver) Alert(string)        {}

const (
	funcLimitAlert = "There were not enough unique bytes left in the function to create a signature."
	iterLimitAlert = "Hit scan iteration limit before finding a unique signature."
)

// Consume converts the instruction at addr into signature bytes. Bytes
// covered by non-null pointer constants become wildcards; they are always
// taken from the end of the instruction.
func Consume(fn host.Function, dis host.Disassembler, mem host.Memory, addr uint64) (signature.Signature, error) {
	size, ok := dis.InstructionLength(addr)
	if !ok || size <= 0 {
		return nil, fmt.Errorf("%w: no instruction length at %#x", ErrInvalidInstruction, addr)
	}

	raw := mem.ReadBytes(addr, size)
	if len(raw) != size {
		return nil, fmt.Errorf("%w: read %d of %d bytes at %#x", ErrInvalidInstruction, len(raw), size, addr)
	}

	// Unavailable constants are treated as none.
	constants, _ := dis.ConstantsReferenced(fn, addr)
	wildcard := 0
	for _, c := range constants {
		if c.Pointer && c.Value != 0 {
			wildcard += c.Size
		}
	}
	if wildcard >= size {
		return nil, fmt.Errorf("%w: wildcard size %d, instruction size %d at %#x",
			ErrOversizedWildcard, wildcard, size, addr)
	}

	sig := make(signature.Signature, size)
	literal := size - wildcard
	for i := range sig {
		if i < literal {
			sig[i] = signature.Match(raw[i])
		} else {
			sig[i] = signature.Wildcard()
		}
	}
	return sig, nil
}

// grow appends the instruction that follows sig when anchored at anchor.
// Crossing funcEnd is reported as ErrFuncLimitExceeded.
func grow(sig signature.Signature, fn host.Function, bin host.Binary, anchor, funcEnd uint64) (signature.Signature, error) {
	next := anchor + uint64(len(sig))
	if next >= funcEnd {
		return sig, ErrFuncLimitExceeded
	}
	insn, err := Consume(fn, bin, bin, next)
	if err != nil {
		return sig, err
	}
	return append(sig, insn...), nil
}
