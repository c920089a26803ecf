package tabular

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// ReadIndexJSON parses a row-keyed JSON document into a Table: the top
// level maps row labels to objects of column/value pairs. Rows are
// ordered by label, numerically where the labels parse as integers.
// cols seeds the column order; columns found only in the document are
// appended in sorted order. Null values stay null cells.
func ReadIndexJSON(path string, cols ...string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tabular: open %s: %w", path, err)
	}
	var doc map[string]map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("tabular: parse %s: %w", path, err)
	}

	labels := make([]string, 0, len(doc))
	for k := range doc {
		labels = append(labels, k)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, aerr := strconv.Atoi(labels[i])
		b, berr := strconv.Atoi(labels[j])
		if aerr == nil && berr == nil {
			return a < b
		}
		return labels[i] < labels[j]
	})

	t := NewTable(cols...)
	extra := map[string]struct{}{}
	for _, obj := range doc {
		for k := range obj {
			if !t.HasColumn(k) {
				extra[k] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(extra))
	for k := range extra {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		t.EnsureColumn(k)
	}

	for _, label := range labels {
		row := Row{}
		for k, v := range doc[label] {
			if v == nil {
				continue
			}
			row[k] = v
		}
		t.Append(row)
	}
	return t, nil
}

// WriteIndexJSON writes a table as a row-keyed JSON document, labelling
// rows by their zero-based ordinal. Null cells are written as nulls so
// every row carries the full column set.
func WriteIndexJSON(path string, t *Table) error {
	doc := make(map[string]map[string]any, t.Len())
	cols := t.Columns()
	for i := 0; i < t.Len(); i++ {
		row := t.RowAt(i)
		obj := make(map[string]any, len(cols))
		for _, c := range cols {
			if v, ok := row[c]; ok {
				obj[c] = v
			} else {
				obj[c] = nil
			}
		}
		doc[strconv.Itoa(i)] = obj
	}
	raw, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("tabular: encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("tabular: mkdir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("tabular: write %s: %w", path, err)
	}
	return nil
}

// ParseRow decodes a JSON object of column/value pairs into a Row.
func ParseRow(data []byte) (Row, error) {
	var cells map[string]any
	if err := json.Unmarshal(data, &cells); err != nil {
		return nil, fmt.Errorf("tabular: row is not a JSON object: %w", err)
	}
	return Row(cells), nil
}
