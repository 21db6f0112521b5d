package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"sigtool/internal/analysis"
	"sigtool/internal/disasm"
	"sigtool/internal/elfx"
	"sigtool/internal/rawimg"
	"sigtool/internal/ui/colorize"
	"sigtool/internal/workflow"
)

// target is an opened binary together with the session that works on it.
// dec and index are nil for raw images.
type target struct {
	path    string
	arch    disasm.Arch
	dec     *disasm.Decoder
	index   *analysis.Index
	session *workflow.Session
	closer  io.Closer
}

func (t *target) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

func checkFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file not found: %s", path)
		}
		return fmt.Errorf("cannot access file: %w", err)
	}
	return nil
}

// openELF maps an ELF binary, picks a decoder for its machine and indexes
// its function symbols.
func (a *app) openELF(path string, alerts io.Writer) (*target, error) {
	if err := checkFile(path); err != nil {
		return nil, err
	}
	img, err := elfx.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load file: %w", err)
	}
	arch, err := img.Arch()
	if err != nil {
		img.Close()
		return nil, err
	}
	dec, err := disasm.New(arch, img)
	if err != nil {
		img.Close()
		return nil, err
	}
	idx := analysis.NewIndex(img.Funcs, dec)
	dec.SymName = idx.SymbolAt

	slog.Debug("Loaded binary", "path", path, "arch", arch,
		"segments", len(img.Loads), "functions", len(img.Funcs))
	return &target{
		path:  path,
		arch:  arch,
		dec:   dec,
		index: idx,
		session: &workflow.Session{
			Memory:       img,
			Disassembler: dec,
			Index:        idx,
			Observer:     a.observer(alerts),
			Config:       a.cfg,
		},
		closer: img,
	}, nil
}

// openRaw maps a flat file at base. Raw images support find only.
func (a *app) openRaw(path string, base uint64) (*target, error) {
	if err := checkFile(path); err != nil {
		return nil, err
	}
	img, err := rawimg.Open(path, base)
	if err != nil {
		return nil, fmt.Errorf("failed to load file: %w", err)
	}
	slog.Debug("Loaded raw image", "path", path, "base", fmt.Sprintf("%#x", base), "size", img.Len())
	return &target{
		path:    path,
		session: &workflow.Session{Memory: img, Config: a.cfg},
		closer:  img,
	}, nil
}

// listing disassembles [start, start+length) with branch targets and
// referenced strings as comments.
func (t *target) listing(start uint64, length int) string {
	insts, err := t.dec.Range(start, start+uint64(length))
	if err != nil {
		slog.Warn("Listing stopped early", "err", err)
	}
	return colorize.Listing(t.arch, insts, t.index.Annotate(t.session.Memory, insts))
}

// parseAddress reads a hexadecimal address, with or without 0x.
func parseAddress(s string) (uint64, error) {
	v := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	addr, err := strconv.ParseUint(v, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return addr, nil
}
