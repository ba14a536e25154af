// Package tablestyle holds the table rendering style shared by all
// commands producing tabular text output.
package tablestyle

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var (
	// Clean is a borderless style with upper-cased headers, made for
	// terminal output that is still pleasant to grep.
	Clean = table.Style{
		Name: "Clean",
		Box:  table.BoxStyle{PaddingRight: " "},
		Format: table.FormatOptions{
			Footer: text.FormatUpper,
			Header: text.FormatUpper,
			Row:    text.FormatDefault,
		},
		Options: table.Options{
			DrawBorder:      false,
			SeparateColumns: true,
			SeparateFooter:  false,
			SeparateHeader:  false,
			SeparateRows:    false,
		},
	}
)
