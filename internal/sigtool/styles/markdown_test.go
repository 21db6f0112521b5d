package styles

import (
	"strings"
	"testing"

	"sigtool/internal/ui/colorize"
)

func TestRender(t *testing.T) {
	out := colorize.Strip(Render("# main\n\n```\n48 8B ?? C3\n```\n", 60))
	for _, want := range []string{"main", "48 8B ?? C3"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report %q lacks %q", out, want)
		}
	}
}

func TestMarkdownRendererNarrowWidth(t *testing.T) {
	if _, err := MarkdownRenderer(0); err != nil {
		t.Fatal(err)
	}
}
