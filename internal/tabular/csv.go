package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// ReadCSV parses a comma-separated file into a Table with the same
// header conventions as ReadFile.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tabular: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tabular: read %s: %w", path, err)
	}
	return fromRaw(records), nil
}

// WriteCSV writes a table as a comma-separated file: header row first,
// then rows in column order, null cells as empty fields.
func WriteCSV(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("tabular: mkdir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tabular: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	cols := t.Columns()
	if err := w.Write(cols); err != nil {
		return fmt.Errorf("tabular: write %s: %w", path, err)
	}
	record := make([]string, len(cols))
	for i := 0; i < t.Len(); i++ {
		row := t.RowAt(i)
		for j, c := range cols {
			record[j] = ValueString(row[c])
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("tabular: write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("tabular: flush %s: %w", path, err)
	}
	return f.Close()
}
