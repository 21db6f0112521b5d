package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// DisasmDark highlights mnemonics white, registers teal and immediates
// pink. Both the gas and armasm lexers map onto these token types.
var DisasmDark = styles.Register(chroma.MustNewStyle("sigtool-disasm", chroma.StyleEntries{
	chroma.Text:       "#E4E4E4",
	chroma.Background: "bg:#1e1e1e",
	chroma.Comment:    "#7A7A7A",

	chroma.Keyword:       "#FFFFFF",
	chroma.KeywordPseudo: "#B4A0FF",
	chroma.NameFunction:  "#FFFFFF",
	chroma.NameAttribute: "#FFFFFF",

	chroma.Name:         "#7C9C9D",
	chroma.NameBuiltin:  "#7C9C9D",
	chroma.NameVariable: "#7C9C9D",
	chroma.NameLabel:    "#FFD700",

	chroma.LiteralNumber:        "#FF5F87",
	chroma.LiteralNumberHex:     "#FF5F87",
	chroma.LiteralNumberInteger: "#FF5F87",

	chroma.Operator:    "#C0C0C0",
	chroma.Punctuation: "#C0C0C0",
	chroma.String:      "#EACD53",
}))
