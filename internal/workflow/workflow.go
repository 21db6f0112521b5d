// Package workflow runs the user-facing operations: generate a signature at
// an address or for a function, and find every match of a signature.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sigtool/internal/config"
	"sigtool/internal/generate"
	"sigtool/internal/host"
	"sigtool/internal/image"
	"sigtool/internal/scan"
	"sigtool/internal/signature"
)

var (
	ErrUnmappedAddress = errors.New("invalid address")
	ErrNoDisassembler  = errors.New("signature generation needs a disassembler and a function index")
)

// Session binds a loaded binary to the settings used for every operation.
// Disassembler and Index may be nil for raw images, which only support Find.
type Session struct {
	Memory       host.Memory
	Disassembler host.Disassembler
	Index        host.FunctionIndex
	Observer     generate.Observer
	Config       config.Config
}

// Rendering is a signature printed in one notation.
type Rendering struct {
	Notation signature.Notation `json:"notation"`
	Text     string             `json:"text"`
}

// Result describes a generated signature.
type Result struct {
	Address    uint64              `json:"address"`
	Function   string              `json:"function"`
	FuncStart  uint64              `json:"functionStart"`
	Delta      uint64              `json:"delta"`
	Strategy   string              `json:"strategy"`
	Signature  signature.Signature `json:"-"`
	Length     int                 `json:"length"`
	Wildcards  int                 `json:"wildcards"`
	Renderings []Rendering         `json:"renderings"`
	Elapsed    time.Duration       `json:"elapsedNs"`
	Truncated  bool                `json:"truncated,omitempty"`
}

// Match is one location found by Find.
type Match struct {
	Address   uint64 `json:"address"`
	Function  string `json:"function,omitempty"`
	FuncStart uint64 `json:"functionStart,omitempty"`
	// NoFunc explains why no owning function was reported.
	NoFunc string `json:"noFunction,omitempty"`
}

// FindResult lists the matches of one signature, capped at MaxMatches.
type FindResult struct {
	Signature  signature.Signature `json:"-"`
	Pattern    string              `json:"pattern"`
	MaxMatches int                 `json:"maxMatches"`
	Matches    []Match             `json:"matches"`
	Elapsed    time.Duration       `json:"elapsedNs"`
	Truncated  bool                `json:"truncated,omitempty"`
}

func (s *Session) observer() generate.Observer {
	if s.Observer == nil {
		return generate.NopObserver{}
	}
	return s.Observer
}

func (s *Session) buildImage() *image.Image {
	im := image.Build(s.Memory, s.Config.SegmentLimit)
	if im.Truncated {
		slog.Error("Hit segment limit while reading image, matches past it are missed",
			"segments", im.Segments, "limit", s.Config.SegmentLimit)
	}
	return im
}

// GenerateAt builds a signature for the instruction at addr inside its
// owning function.
func (s *Session) GenerateAt(ctx context.Context, addr uint64) (*Result, error) {
	if s.Disassembler == nil || s.Index == nil {
		return nil, ErrNoDisassembler
	}
	if !s.Memory.IsMapped(addr) {
		return nil, fmt.Errorf("%w: %#x is not mapped", ErrUnmappedAddress, addr)
	}
	fn, err := host.OwningFunction(s.Index, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to find base: %w", err)
	}
	return s.generate(ctx, fn, addr)
}

// GenerateForFunction builds a signature anchored at the entry of fn.
func (s *Session) GenerateForFunction(ctx context.Context, fn host.Function) (*Result, error) {
	if s.Disassembler == nil || s.Index == nil {
		return nil, ErrNoDisassembler
	}
	return s.generate(ctx, fn, fn.Start())
}

func (s *Session) generate(ctx context.Context, fn host.Function, addr uint64) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	im := s.buildImage()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bin := host.Compose(s.Memory, s.Disassembler, s.Index)
	opts := s.Config.GenerateOptions()
	delta := addr - fn.Start()

	start := time.Now()
	var (
		sig signature.Signature
		err error
	)
	switch s.Config.Strategy {
	case config.StrategyIncremental:
		sig, err = generate.Incremental(fn, bin, im, addr, opts, s.observer())
	default:
		sig, err = generate.Linear(fn, bin, im, addr, opts, s.observer())
	}
	elapsed := time.Since(start)
	slog.Info("Signature scan completed", "strategy", s.Config.Strategy, "elapsed", elapsed)
	if err != nil {
		slog.Warn(fmt.Sprintf("Failed to get signature for '%s' + (%#x/%d)", fn.Name(), delta, delta), "err", err)
		return nil, err
	}

	res := &Result{
		Address:   addr,
		Function:  fn.Name(),
		FuncStart: fn.Start(),
		Delta:     delta,
		Strategy:  s.Config.Strategy,
		Signature: sig,
		Length:    len(sig),
		Wildcards: sig.Wildcards(),
		Elapsed:   elapsed,
		Truncated: im.Truncated,
	}
	for _, n := range s.Config.ParsedNotations() {
		text, err := sig.Render(n)
		if err != nil {
			return nil, err
		}
		res.Renderings = append(res.Renderings, Rendering{Notation: n, Text: text})
	}
	slog.Info(fmt.Sprintf("Signature for '%s' + (%#x/%d)", res.Function, delta, delta), "length", res.Length)
	return res, nil
}

// Find parses text and reports up to Config.MaxMatches matches, each with
// its owning function when an index is available.
func (s *Session) Find(ctx context.Context, text string) (*FindResult, error) {
	sig, err := signature.Parse(text)
	if err != nil {
		return nil, err
	}
	slog.Debug("Parsed signature", "signature", sig.String())
	return s.FindSignature(ctx, sig)
}

// FindSignature is Find for an already parsed signature.
func (s *Session) FindSignature(ctx context.Context, sig signature.Signature) (*FindResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	im := s.buildImage()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	addrs := scan.ScanIndexed(sig, im, s.Config.MaxMatches)
	res := &FindResult{
		Signature:  sig,
		Pattern:    sig.Generic(),
		MaxMatches: s.Config.MaxMatches,
		Matches:    make([]Match, 0, len(addrs)),
		Elapsed:    time.Since(start),
		Truncated:  im.Truncated,
	}

	for _, addr := range addrs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := Match{Address: addr}
		if s.Index == nil {
			m.NoFunc = "no function index"
		} else if fn, err := host.OwningFunction(s.Index, addr); err != nil {
			m.NoFunc = err.Error()
		} else {
			m.Function, m.FuncStart = fn.Name(), fn.Start()
		}
		res.Matches = append(res.Matches, m)
	}
	return res, nil
}
