// Copyright 2026 GoEnigma Authors

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package table renders rows of string cells as right-aligned text or as
// CSV. It is used by the CLI to print API responses.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/stockparfait/errors"
)

// Row is a single table row of cell values.
type Row []string

// Table is a sequence of equally sized rows with an optional header.
//
// A typical use:
//
//	t := table.New("Name", "Age")
//	t.Add("John", "25")
//	t.Add("Jane", "24")
//	t.WriteText(os.Stdout, table.Params{})
type Table struct {
	Header Row
	Rows   []Row
}

// New creates an empty Table with optional column headers. When present, the
// number of headers is expected to match the number of cells in each row.
func New(header ...string) *Table {
	return &Table{Header: header}
}

// Add appends a single row of cells to the table.
func (t *Table) Add(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Params are parameters for text or CSV rendering of Table data.
type Params struct {
	Rows        int  // max. number of rows to write; 0 = unlimited (default)
	NoHeader    bool // whether to print the header, default - yes
	MaxColWidth int  // for WriteText only; 0 = unlimited, otherwise must be >= 4
}

// rows returns the rows to be written, honoring the row limit.
func (t *Table) rows(p Params) []Row {
	if p.Rows > 0 && p.Rows < len(t.Rows) {
		return t.Rows[:p.Rows]
	}
	return t.Rows
}

// WriteCSV writes the table to w in CSV format.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if !p.NoHeader && len(t.Header) > 0 {
		if err := cw.Write(t.Header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	for _, r := range t.rows(p) {
		if err := cw.Write(r); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
	}
	cw.Flush()
	return errors.Annotate(cw.Error(), "failed to flush written rows")
}

// colWidths computes the width of each column over the header and all
// written rows, capped at p.MaxColWidth when set.
func (t *Table) colWidths(p Params) ([]int, error) {
	var widths []int
	update := func(row Row) error {
		if len(row) == 0 {
			return errors.Reason("row size = 0")
		}
		if widths == nil {
			widths = make([]int, len(row))
		}
		if len(row) != len(widths) {
			return errors.Reason("row size [%d] != expected size [%d]",
				len(row), len(widths))
		}
		for i, cell := range row {
			w := len([]rune(cell))
			if p.MaxColWidth > 0 && w > p.MaxColWidth {
				w = p.MaxColWidth
			}
			if widths[i] < w {
				widths[i] = w
			}
		}
		return nil
	}
	if !p.NoHeader && len(t.Header) > 0 {
		if err := update(t.Header); err != nil {
			return nil, errors.Annotate(err, "failed to size the header")
		}
	}
	for _, r := range t.rows(p) {
		if err := update(r); err != nil {
			return nil, errors.Annotate(err, "failed to size a row")
		}
	}
	return widths, nil
}

// WriteText writes the table to w as text formatted for ease of reading:
// cells are right-aligned and separated by " | ", the header is underlined
// with dashes, and cells longer than MaxColWidth are truncated with "..".
func (t *Table) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return errors.Reason("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}
	widths, err := t.colWidths(p)
	if err != nil {
		return err
	}
	write := func(row Row) error {
		cells := make([]string, len(row))
		for i, cell := range row {
			if r := []rune(cell); len(r) > widths[i] {
				cell = string(r[:widths[i]-2]) + ".."
			}
			cells[i] = fmt.Sprintf("%[2]*[1]s", cell, widths[i])
		}
		_, err := fmt.Fprintf(w, "%s\n", strings.Join(cells, " | "))
		return err
	}
	if !p.NoHeader && len(t.Header) > 0 {
		if err := write(t.Header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
		dashed := make(Row, len(widths))
		for i, n := range widths {
			dashed[i] = strings.Repeat("-", n)
		}
		if err := write(dashed); err != nil {
			return errors.Annotate(err, "failed to write header separator")
		}
	}
	for _, r := range t.rows(p) {
		if err := write(r); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
	}
	return nil
}
