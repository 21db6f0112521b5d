package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"sigtool/internal/analysis"
)

type functionEntry struct {
	Address uint64 `json:"address"`
	Size    uint64 `json:"size"`
	Name    string `json:"name"`
	Mangled string `json:"mangled,omitempty"`
}

func newFunctionsCmd(a *app) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "functions <binary>",
		Short: "List the functions signatures can be generated for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.openELF(args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer t.Close()

			entries := listFunctions(t.index, filter)
			if a.cfg.Debug {
				symbols, hits, top := analysis.DemangleCacheStats()
				slog.Debug("Demangle cache", "symbols", symbols, "hits", hits, "top", top)
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return a.writeJSON(out, entries)
			}

			var plain, md strings.Builder
			fmt.Fprintf(&md, "# Functions (%d)\n\n| address | size | name |\n|---|---|---|\n", len(entries))
			for _, e := range entries {
				fmt.Fprintf(&plain, "%x\t%d\t%s\n", e.Address, e.Size, e.Name)
				fmt.Fprintf(&md, "| `%x` | %d | %s |\n", e.Address, e.Size, strings.ReplaceAll(e.Name, "|", `\|`))
			}
			return a.writeReport(out, md.String(), plain.String())
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Only list functions whose name contains this text")
	return cmd
}

func listFunctions(idx *analysis.Index, filter string) []functionEntry {
	var entries []functionEntry
	for _, f := range idx.Functions() {
		name := f.Name()
		if filter != "" && !strings.Contains(name, filter) && !strings.Contains(f.Mangled, filter) {
			continue
		}
		e := functionEntry{Address: f.Addr, Size: f.Size, Name: name}
		if name != f.Mangled {
			e.Mangled = f.Mangled
		}
		entries = append(entries, e)
	}
	return entries
}
