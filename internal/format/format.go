// Package format renders CLI tables. One builder, two renderings:
// fixed-width ASCII for terminals, GitHub-flavoured Markdown for pasting
// run summaries into reviews.
package format

import "github.com/jedib0t/go-pretty/v6/table"

// Table accumulates header and data rows and renders them once.
type Table struct {
	w        table.Writer
	markdown bool
}

// New returns an empty table. Markdown tables carry no terminal styling;
// ASCII tables render in go-pretty's light box-drawing style.
func New(markdown bool) *Table {
	w := table.NewWriter()
	if !markdown {
		w.SetStyle(table.StyleLight)
	}
	return &Table{w: w, markdown: markdown}
}

// Header sets the column headers.
func (t *Table) Header(cols ...string) {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	t.w.AppendHeader(row)
}

// Row appends a data row. Values are converted to strings via fmt Sprint.
func (t *Table) Row(vals ...any) {
	row := make(table.Row, len(vals))
	copy(row, vals)
	t.w.AppendRow(row)
}

// WrapColumn wraps the 1-based column's content beyond width runes.
func (t *Table) WrapColumn(column, width int) {
	t.w.SetColumnConfigs([]table.ColumnConfig{{Number: column, WidthMax: width}})
}

// String renders the table.
func (t *Table) String() string {
	if t.markdown {
		return t.w.RenderMarkdown()
	}
	return t.w.Render()
}
