// Package main implements sigscan, which finds byte signatures in raw files
// such as memory dumps and firmware images.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"sigtool/internal/image"
	"sigtool/internal/rawimg"
	"sigtool/internal/scan"
	"sigtool/internal/signature"
)

// CLI defines the command-line interface structure
type CLI struct {
	Base      uint64   `short:"b" default:"0" help:"Address of the first byte of each file"`
	Max       int      `short:"m" default:"50" help:"Maximum matches reported per file"`
	Notation  string   `short:"N" enum:"generic,escaped,yara,mask,regex," default:"" help:"Print the parsed signature in this notation before scanning"`
	Engine    string   `short:"e" enum:"scan,regexp" default:"scan" help:"Matching engine (scan=wildcard scanner, regexp=binary regular expression)"`
	Quiet     bool     `short:"q" help:"Only print the number of matches per file"`
	Signature string   `arg:"" name:"signature" help:"Signature in generic (48 8B ? C3) or escaped (\\x48\\x8B\\x2A\\xC3) notation"`
	Files     []string `arg:"" name:"file" help:"Files to scan" type:"existingfile"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("sigscan"),
		kong.Description("Find byte signatures in raw files."),
		kong.UsageOnError(),
	)
	os.Exit(run(&cli, os.Stdout, os.Stderr))
}

// run scans every file and returns the process exit status: 0 when some
// file matched, 1 when none did and 2 on errors.
func run(cli *CLI, stdout, stderr io.Writer) int {
	sig, err := signature.Parse(cli.Signature)
	if err != nil {
		fmt.Fprintf(stderr, "sigscan: %v\n", err)
		return 2
	}
	if cli.Notation != "" {
		text, err := sig.Render(signature.Notation(cli.Notation))
		if err != nil {
			fmt.Fprintf(stderr, "sigscan: %v\n", err)
			return 2
		}
		fmt.Fprintln(stdout, text)
	}

	find := func(im *image.Image) ([]uint64, error) {
		return scan.ScanIndexed(sig, im, cli.Max), nil
	}
	if cli.Engine == "regexp" {
		find = func(im *image.Image) ([]uint64, error) {
			return scanRegexp(sig, im, cli.Max)
		}
	}

	status := 1
	for _, name := range cli.Files {
		addrs, err := scanFile(name, cli.Base, find)
		if err != nil {
			fmt.Fprintf(stderr, "sigscan: %s: %v\n", name, err)
			status = 2
			continue
		}
		if len(addrs) > 0 && status == 1 {
			status = 0
		}
		if cli.Quiet {
			fmt.Fprintf(stdout, "%s: %d\n", name, len(addrs))
			continue
		}
		for _, addr := range addrs {
			if len(cli.Files) > 1 {
				fmt.Fprintf(stdout, "%s: ", name)
			}
			fmt.Fprintf(stdout, "%#x\n", addr)
		}
	}
	return status
}

func scanFile(name string, base uint64, find func(*image.Image) ([]uint64, error)) ([]uint64, error) {
	img, err := rawimg.Open(name, base)
	if err != nil {
		return nil, err
	}
	defer img.Close()
	return find(image.Build(img, 0))
}

// scanRegexp matches sig as a binary regular expression. It reports
// overlapping matches and honours the scanner's end bound, so both
// engines agree.
func scanRegexp(sig signature.Signature, im *image.Image, max int) ([]uint64, error) {
	if max <= 0 || len(sig) == 0 || len(im.Data) < len(sig)+1 {
		return nil, nil
	}
	re, err := sig.Regexp()
	if err != nil {
		return nil, err
	}
	limit := len(im.Data) - len(sig) - 1

	var out []uint64
	for pos := 0; pos < limit && len(out) < max; {
		loc := re.FindIndex(im.Data[pos:])
		if loc == nil {
			break
		}
		off := pos + loc[0]
		if off >= limit {
			break
		}
		out = append(out, im.Address(uint64(off)))
		pos = off + 1
	}
	return out, nil
}
