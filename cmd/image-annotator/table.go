package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/menta2k/image-annotator/pkg/session"
)

// indexHeader heads a row-number lead column, which is right-aligned
const indexHeader = "#"

// renderModeTable renders the lead columns followed by one column per mode.
// Short rows are padded with empty cells.
func renderModeTable(lead []string, modes []session.Mode, modeAlign text.Align, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, 0, len(lead)+len(modes))
	configs := make([]table.ColumnConfig, 0, len(lead)+len(modes))
	for i, name := range lead {
		header = append(header, name)
		align := text.AlignLeft
		if name == indexHeader {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	for i, m := range modes {
		header = append(header, m.Name)
		configs = append(configs, table.ColumnConfig{Number: len(lead) + i + 1, Align: modeAlign, AlignHeader: modeAlign})
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(header))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	return tw.Render()
}
