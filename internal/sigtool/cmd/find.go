package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
)

func newFindCmd(a *app) *cobra.Command {
	var (
		raw  bool
		base string
	)

	cmd := &cobra.Command{
		Use:   "find <binary> [signature]",
		Short: "Find every match of a signature",
		Long: `Find scans the mapped image of a binary for a signature and reports each match
with its owning function. The signature may use generic ("48 8B ? C3") or
escaped ("\x48\x8B\x2A\xC3") notation. Without a signature argument it is
read from standard input.`,
		Example: `
# Find a signature
sigtool find ./libgame.so "48 8B 05 ? ? ? ? C3"

# Read the signature from a pipe
echo '\x48\x8B\x05\x2A' | sigtool find ./libgame.so

# Scan a memory dump loaded at 0x400000
sigtool find dump.bin "E8 ? ? ? ? 90" --raw --base 400000
  `,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := signatureArg(cmd, args)
			if err != nil {
				return err
			}

			var t *target
			if raw {
				addr, err := parseAddress(base)
				if err != nil {
					return err
				}
				t, err = a.openRaw(args[0], addr)
				if err != nil {
					return err
				}
			} else {
				t, err = a.openELF(args[0], cmd.ErrOrStderr())
				if err != nil {
					return err
				}
			}
			defer t.Close()

			res, err := t.session.Find(cmd.Context(), text)
			if err != nil {
				return err
			}
			slog.Info("Signature search completed", "matches", len(res.Matches), "elapsed", res.Elapsed)

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return a.writeJSON(out, res)
			}
			return a.writeReport(out, findMarkdown(res), findPlain(res))
		},
	}

	cmd.Flags().IntP("max", "m", 0, "Maximum matches to report (default 50)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Treat the file as a flat image instead of an ELF binary")
	cmd.Flags().StringVar(&base, "base", "0", "Load address of a raw image (hex)")
	return cmd
}

// signatureArg returns the signature argument, or reads it from standard
// input when it was omitted.
func signatureArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 1 {
		return args[1], nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(f.Fd()) {
		return "", errors.New("no signature given: pass it as an argument or pipe it in")
	}
	bts, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read signature: %w", err)
	}
	text := strings.TrimSpace(string(bts))
	if text == "" {
		return "", errors.New("empty signature")
	}
	return text, nil
}
