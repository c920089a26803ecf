package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/sdskit/internal/apperr"
	"github.com/starford/sdskit/internal/metadata"
	"github.com/starford/sdskit/internal/tabular"
)

// SetField writes one cell addressed by spreadsheet row index and column
// header. Row 1 is the header row, so the first data row is index 2; an
// index addressing no data row fails with ErrRowNotFound. An unknown
// header grows a new column.
func (d *Dataset) SetField(file string, rowIndex int, header string, value any) error {
	ed, err := d.GetMetadata(file)
	if err != nil {
		return err
	}
	t := ed.Data()
	offset := rowIndex - 2
	if offset < 0 || offset >= t.Len() {
		return fmt.Errorf("dataset: %s row %d: %w", file, rowIndex, apperr.ErrRowNotFound)
	}
	t.SetCell(offset, header, value)
	return nil
}

// SetFieldByRowName writes one cell addressed by the row's first-column
// value and a column header. Zero matches fail with ErrRowNotFound and
// more than one with ErrAmbiguousRow; first-column uniqueness is assumed
// but not enforced anywhere else.
func (d *Dataset) SetFieldByRowName(file, rowName, header string, value any) error {
	ed, err := d.GetMetadata(file)
	if err != nil {
		return err
	}
	t := ed.Data()
	cols := t.Columns()
	if len(cols) == 0 {
		return fmt.Errorf("dataset: %s has no columns: %w", file, apperr.ErrRowNotFound)
	}
	rows := t.FindRows(cols[0], rowName)
	switch {
	case len(rows) == 0:
		return fmt.Errorf("dataset: no row named %q in %s column %q: %w", rowName, file, cols[0], apperr.ErrRowNotFound)
	case len(rows) > 1:
		return fmt.Errorf("dataset: %d rows named %q in %s column %q: %w", len(rows), rowName, file, cols[0], apperr.ErrAmbiguousRow)
	}
	t.SetCell(rows[0], header, value)
	return nil
}

// Append adds a row to a metadata file. Without checkExist the row is
// appended unconditionally. With it, uniqueColumn is mandatory and names
// the column matched against the row's own value there: a hit merges the
// row into the existing one cell by cell, a miss appends. Reports
// whether the table grew a new column.
func (d *Dataset) Append(file string, row tabular.Row, checkExist bool, uniqueColumn string) (bool, error) {
	ed, err := d.GetMetadata(file)
	if err != nil {
		return false, err
	}
	t := ed.Data()
	if checkExist {
		if uniqueColumn == "" {
			return false, fmt.Errorf("dataset: append to %s: uniqueColumn required with checkExist: %w", file, apperr.ErrInvalidArgument)
		}
		want, ok := row[uniqueColumn]
		if !ok {
			return false, fmt.Errorf("dataset: append to %s: row carries no %q value: %w", file, uniqueColumn, apperr.ErrInvalidArgument)
		}
		if !t.HasColumn(uniqueColumn) {
			return false, fmt.Errorf("dataset: append to %s: no column %q: %w", file, uniqueColumn, apperr.ErrInvalidArgument)
		}
		if rows := t.FindRows(uniqueColumn, want); len(rows) > 0 {
			return t.MergeRow(rows[0], row), nil
		}
	}
	return t.Append(row), nil
}

// AddElement adds a metadata element to a file. Description-style files
// gain a row keyed by the element column; every other file gains a null
// column named after the element (an existing column of that name is
// nulled out). Reports whether a new column was introduced.
func (d *Dataset) AddElement(file, element string) (bool, error) {
	ed, err := d.GetMetadata(file)
	if err != nil {
		return false, err
	}
	t := ed.Data()
	if metadata.DescriptionStyle(file) {
		return t.Append(tabular.Row{metadata.ElementColumn: element}), nil
	}
	if !t.EnsureColumn(element) {
		t.ClearColumn(element)
		return false, nil
	}
	return true, nil
}

// UpdateFromJSON applies a JSON document file to a description-style
// metadata file: each top-level key names an element whose "Value" cell
// is overwritten, keys one level down are matched with a four-space
// prefix, and list values are stored in their literal textual form. A
// key matching no element row fails with ErrRowNotFound.
func (d *Dataset) UpdateFromJSON(file, jsonPath string) error {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("dataset: read %s: %w", jsonPath, err)
	}
	return d.UpdateFromJSONBytes(file, data)
}

// UpdateFromJSONBytes is UpdateFromJSON for an in-memory document.
func (d *Dataset) UpdateFromJSONBytes(file string, data []byte) error {
	ed, err := d.GetMetadata(file)
	if err != nil {
		return err
	}
	doc := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("dataset: parse document: %w", err)
	}
	t := ed.Data()
	for pair := doc.Oldest(); pair != nil; pair = pair.Next() {
		nested := orderedmap.New[string, json.RawMessage]()
		if err := json.Unmarshal(pair.Value, nested); err == nil {
			for sub := nested.Oldest(); sub != nil; sub = sub.Next() {
				if err := setElementValue(t, "    "+sub.Key, jsonCellValue(sub.Value)); err != nil {
					return err
				}
			}
			continue
		}
		if err := setElementValue(t, pair.Key, jsonCellValue(pair.Value)); err != nil {
			return err
		}
	}
	return nil
}

func setElementValue(t *tabular.Table, element string, value any) error {
	rows := t.FindRows(metadata.ElementColumn, element)
	if len(rows) == 0 {
		return fmt.Errorf("dataset: no element %q: %w", element, apperr.ErrRowNotFound)
	}
	t.SetCell(rows[0], metadata.ValueColumn, value)
	return nil
}

// jsonCellValue converts a raw JSON value to its cell form: scalars stay
// scalars, lists and objects keep their literal textual form.
func jsonCellValue(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	switch v.(type) {
	case []any, map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return string(raw)
		}
		return string(b)
	}
	return v
}
