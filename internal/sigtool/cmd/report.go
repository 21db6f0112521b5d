package cmd

import (
	"fmt"
	"strings"

	"sigtool/internal/workflow"
)

func describeDelta(name string, delta uint64) string {
	return fmt.Sprintf("'%s' + (%#x/%d)", name, delta, delta)
}

// generateMarkdown is the terminal report for a generated signature.
func generateMarkdown(res *workflow.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", res.Function)
	fmt.Fprintf(&sb, "Signature for %s at `%#x`\n\n", describeDelta(res.Function, res.Delta), res.Address)
	for _, r := range res.Renderings {
		fmt.Fprintf(&sb, "## %s\n\n```\n%s\n```\n\n", r.Notation, r.Text)
	}
	fmt.Fprintf(&sb, "*%d bytes, %d wildcards, %s, %s*\n", res.Length, res.Wildcards, res.Strategy, res.Elapsed)
	if res.Truncated {
		sb.WriteString("\n**The image was truncated at the segment limit; uniqueness only holds for the part that was read.**\n")
	}
	return sb.String()
}

// generatePlain prints one notation per line, or the bare signature when
// a single notation was asked for.
func generatePlain(res *workflow.Result) string {
	var sb strings.Builder
	if len(res.Renderings) == 1 {
		sb.WriteString(strings.TrimRight(res.Renderings[0].Text, " "))
		sb.WriteString("\n")
		return sb.String()
	}
	for _, r := range res.Renderings {
		fmt.Fprintf(&sb, "%-8s %s\n", r.Notation, strings.TrimRight(r.Text, " "))
	}
	return sb.String()
}

func matchLocation(m workflow.Match) string {
	if m.Function == "" {
		return "(" + m.NoFunc + ")"
	}
	return describeDelta(m.Function, m.Address-m.FuncStart)
}

func findMarkdown(res *workflow.FindResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Matches for `%s`\n\n", strings.TrimSpace(res.Pattern))
	if len(res.Matches) == 0 {
		sb.WriteString("No matches.\n")
	} else {
		sb.WriteString("| address | location |\n|---|---|\n")
		for _, m := range res.Matches {
			fmt.Fprintf(&sb, "| `%#x` | %s |\n", m.Address, matchLocation(m))
		}
	}
	fmt.Fprintf(&sb, "\n*%d matches (cap %d), %s*\n", len(res.Matches), res.MaxMatches, res.Elapsed)
	if len(res.Matches) == res.MaxMatches {
		sb.WriteString("\n**Stopped at the match cap; there may be more.**\n")
	}
	if res.Truncated {
		sb.WriteString("\n**The image was truncated at the segment limit.**\n")
	}
	return sb.String()
}

func findPlain(res *workflow.FindResult) string {
	var sb strings.Builder
	for _, m := range res.Matches {
		fmt.Fprintf(&sb, "%#x\t%s\n", m.Address, matchLocation(m))
	}
	return sb.String()
}
