package format

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
)

// Table is implemented by results that have a tabular form.
type Table interface {
	Header() []string
	Rows() [][]string
}

// Rows is a ready-made Table.
type Rows struct {
	Head []string
	Data [][]string
}

func (r Rows) Header() []string { return r.Head }
func (r Rows) Rows() [][]string { return r.Data }

// WriteTable writes t with a bold header. Colors are dropped when w is not a
// terminal, following fatih/color's NoColor detection.
func WriteTable(w io.Writer, t Table) error {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	if h := t.Header(); len(h) > 0 {
		tbl.AddRow(cells(h, bold.Sprint)...)
	}
	for _, row := range t.Rows() {
		tbl.AddRow(cells(row, fmt.Sprint)...)
	}
	_, err := fmt.Fprintln(w, tbl)
	return err
}

func cells(in []string, render func(...any) string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = render(s)
	}
	return out
}
