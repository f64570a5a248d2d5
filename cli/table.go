package cli

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// renderTable writes rows as plain whitespace-aligned columns, without any
// borders or separator lines.
func renderTable(w io.Writer, header []string, rows [][]string) error {
	lines := tw.Lines{
		ShowHeaderLine: tw.Off,
		ShowFooterLine: tw.Off,
		ShowTop:        tw.Off,
		ShowBottom:     tw.Off,
	}
	seps := tw.Separators{
		ShowHeader:     tw.Off,
		ShowFooter:     tw.Off,
		BetweenRows:    tw.Off,
		BetweenColumns: tw.Off,
	}
	left := tw.CellAlignment{Global: tw.AlignLeft}

	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Borders:  tw.BorderNone,
			Symbols:  tw.NewSymbols(tw.StyleASCII),
			Settings: tw.Settings{Lines: lines, Separators: seps},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{Alignment: left},
			// Address ranges are never wrapped, so they can be copied as is.
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  left,
			},
		}),
	)

	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return err //nolint:wrapcheck // This is wrapped by the caller.
	}

	return table.Render() //nolint:wrapcheck // This is wrapped by the caller.
}
