package metadata

import (
	"fmt"
	"path/filepath"

	"github.com/starford/sdskit/internal/apperr"
	"github.com/starford/sdskit/internal/tabular"
)

// Editor wraps one metadata file's table with the operations the
// dataset and folder lifecycle code mutate it through. The table is
// shared with the owning dataset entry, so edits made here are visible
// there and vice versa.
type Editor struct {
	name  string
	dir   string
	ext   string
	table *tabular.Table
}

// NewEditor builds an editor for one metadata file. ext is the source
// extension the file was loaded from, dot included.
func NewEditor(name, dir, ext string, t *tabular.Table) *Editor {
	return &Editor{name: name, dir: dir, ext: ext, table: t}
}

// Name returns the logical metadata file name, extension excluded.
func (e *Editor) Name() string { return e.name }

// Path returns the on-disk location the editor saves to.
func (e *Editor) Path() string { return filepath.Join(e.dir, e.name+e.ext) }

// Data returns the mutable backing table.
func (e *Editor) Data() *tabular.Table { return e.table }

// RemoveRow drops every row whose first-column value equals key. An
// absent key, or a table with no columns at all, leaves the table
// unchanged.
func (e *Editor) RemoveRow(key string) {
	cols := e.table.Columns()
	if len(cols) == 0 {
		return
	}
	e.table.RemoveRows(cols[0], key)
}

// SetValues assigns one or more values to a metadata element. In a
// description-style file the element names a row: the first value lands
// in the "Value" cell and further values spread into "Value 2", "Value
// 3" and so on, growing columns as needed; a missing element row fails
// with ErrRowNotFound. In every other file the element names a column:
// values are assigned row by row from the top, growing rows as needed.
func (e *Editor) SetValues(element string, values any) error {
	vals := normalize(values)
	if len(vals) == 0 {
		return fmt.Errorf("metadata: set %s in %s: no values: %w", element, e.name, apperr.ErrInvalidArgument)
	}
	if DescriptionStyle(e.name) {
		rows := e.table.FindRows(ElementColumn, element)
		if len(rows) == 0 {
			return fmt.Errorf("metadata: element %q not in %s: %w", element, e.name, apperr.ErrRowNotFound)
		}
		for j, v := range vals {
			col := ValueColumn
			if j > 0 {
				col = fmt.Sprintf("%s %d", ValueColumn, j+1)
			}
			e.table.EnsureColumn(col)
			e.table.SetCell(rows[0], col, v)
		}
		return nil
	}
	e.table.EnsureColumn(element)
	for i, v := range vals {
		if i >= e.table.Len() {
			e.table.Append(tabular.Row{})
		}
		e.table.SetCell(i, element, v)
	}
	return nil
}

// Save persists the table to the file's original on-disk form.
func (e *Editor) Save() error {
	switch e.ext {
	case ".xlsx":
		return tabular.WriteFile(e.Path(), e.table)
	case ".csv":
		return tabular.WriteCSV(e.Path(), e.table)
	case ".json":
		return tabular.WriteIndexJSON(e.Path(), e.table)
	default:
		return fmt.Errorf("metadata: save %s as %s: %w", e.name, e.ext, apperr.ErrUnsupportedManifestFormat)
	}
}

func normalize(values any) []any {
	switch v := values.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return []any{values}
	}
}
