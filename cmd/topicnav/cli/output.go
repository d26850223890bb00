package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// printer handles table or JSON output.
type printer struct {
	format string
	w      io.Writer
}

func newPrinter(format string, w io.Writer) *printer {
	return &printer{format: format, w: w}
}

func (p *printer) isJSON() bool {
	return p.format == formatJSON
}

// json marshals v as indented JSON.
func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// table writes header followed by rows, aligned in columns.
func (p *printer) table(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)

	for _, row := range append([][]string{header}, rows...) {
		for i, col := range row {
			if i > 0 {
				_, _ = fmt.Fprint(tw, "\t")
			}

			_, _ = fmt.Fprint(tw, col)
		}

		_, _ = fmt.Fprintln(tw)
	}

	return tw.Flush()
}
