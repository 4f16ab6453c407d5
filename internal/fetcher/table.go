package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Table is a decoded tabular roster: the header row and the data rows
// beneath it. Cells are raw strings; mapping columns onto provider fields
// is the importer's job.
type Table struct {
	Header []string
	Rows   [][]string
}

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	Delimiter rune // default ','; state boards sometimes export pipe-delimited
	Comment   rune // lines starting with this rune are skipped (0 = none)
}

// ReadCSV decodes a delimited roster export. The first non-comment record
// is the header. Cells are whitespace-trimmed and rows with no content at
// all are dropped; roster exports routinely carry both.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) (*Table, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var t Table
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "fetcher: csv read cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read csv row")
		}

		for i, cell := range record {
			record[i] = strings.TrimSpace(cell)
		}
		if blankRow(record) {
			continue
		}

		if t.Header == nil {
			t.Header = record
			continue
		}
		t.Rows = append(t.Rows, record)
	}

	if t.Header == nil {
		return nil, eris.New("fetcher: csv roster has no header row")
	}
	return &t, nil
}

// XLSXOptions configures ReadXLSX.
type XLSXOptions struct {
	Sheet string // sheet name; empty means the first sheet
}

// ReadXLSX decodes a spreadsheet roster export. The first row of the
// selected sheet is the header.
func ReadXLSX(path string, opts XLSXOptions) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open spreadsheet %s", path)
	}

	sheet, err := pickSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	var t Table
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = strings.TrimSpace(cell.String())
		}
		if blankRow(cells) {
			continue
		}
		if t.Header == nil {
			t.Header = cells
			continue
		}
		t.Rows = append(t.Rows, cells)
	}

	if t.Header == nil {
		return nil, eris.Errorf("fetcher: spreadsheet %s has no header row", path)
	}
	return &t, nil
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name == "" {
		if len(f.Sheets) == 0 {
			return nil, eris.New("fetcher: spreadsheet has no sheets")
		}
		return f.Sheets[0], nil
	}
	sheet, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("fetcher: sheet %q not found", name)
	}
	return sheet, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
