package tabular

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tealeg/xlsx/v3"
	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet name excelize seeds a new workbook with and
// the one pandas-written metadata files use.
const defaultSheet = "Sheet1"

// ReadFile parses the first sheet of a spreadsheet into a Table. The
// header row supplies the columns in first-seen order; headers that are
// blank or carry an auto-generated "Unnamed" placeholder are dropped
// together with their cells. Fully empty rows are dropped. When the
// primary engine rejects the workbook format, the parse is retried once
// with the fallback engine; any other failure propagates.
func ReadFile(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if isFormatErr(err) {
			return readFallback(path)
		}
		return nil, fmt.Errorf("tabular: open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return NewTable(), nil
	}
	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("tabular: read %s: %w", path, err)
	}
	return fromRaw(raw), nil
}

// ReadSheet parses one named sheet of a workbook into a Table, with the
// same header conventions as ReadFile. A missing sheet is an error.
func ReadSheet(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("tabular: open %s: %w", path, err)
	}
	defer f.Close()

	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("tabular: read sheet %s of %s: %w", sheet, path, err)
	}
	return fromRaw(raw), nil
}

// WriteFile writes a table as a single-sheet workbook: header row first,
// then rows in column order, null cells left blank.
func WriteFile(path string, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := putSheet(f, defaultSheet, t); err != nil {
		return fmt.Errorf("tabular: build %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("tabular: mkdir for %s: %w", path, err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("tabular: save %s: %w", path, err)
	}
	return nil
}

// putSheet fills one sheet of an open workbook from a table.
func putSheet(f *excelize.File, sheet string, t *Table) error {
	cols := t.Columns()
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		row := t.RowAt(i)
		vals := make([]any, len(cols))
		for j, c := range cols {
			if v, ok := row[c]; ok {
				vals[j] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
	}
	return nil
}

// readFallback is the second parse engine used when the primary engine
// reports a workbook-format incompatibility.
func readFallback(path string) (*Table, error) {
	sheets, err := xlsx.FileToSlice(path)
	if err != nil {
		return nil, fmt.Errorf("tabular: fallback parse %s: %w", path, err)
	}
	if len(sheets) == 0 {
		return NewTable(), nil
	}
	return fromRaw(sheets[0]), nil
}

func isFormatErr(err error) bool {
	return errors.Is(err, zip.ErrFormat) || errors.Is(err, excelize.ErrWorkbookFileFormat)
}

// fromRaw builds a Table from raw string cells: row 0 is the header, the
// rest are data rows. Blank and "Unnamed" headers are dropped with their
// cells; blank data cells stay null; fully empty rows are skipped.
func fromRaw(raw [][]string) *Table {
	if len(raw) == 0 {
		return NewTable()
	}
	type col struct {
		name string
		idx  int
	}
	var cols []col
	for i, h := range raw[0] {
		h = strings.TrimSpace(h)
		if h == "" || strings.HasPrefix(h, "Unnamed") {
			continue
		}
		cols = append(cols, col{name: h, idx: i})
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	t := NewTable(names...)
	for _, cells := range raw[1:] {
		row := Row{}
		for _, c := range cols {
			if c.idx < len(cells) && cells[c.idx] != "" {
				row[c.name] = cells[c.idx]
			}
		}
		if len(row) == 0 {
			continue
		}
		t.Append(row)
	}
	return t
}
