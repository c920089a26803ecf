// Package tabular implements the in-memory table model backing every
// metadata document: an ordered, mutable column set plus a list of rows.
// Cells are optional scalars; a missing key is a null cell, which is how
// empty spreadsheet cells load. Comparisons between cell values are loose
// string comparisons so that values written as numbers still match their
// textual form after a reload.
package tabular

import (
	"sort"

	"github.com/spf13/cast"
)

// Row maps column names to cell values. Absent keys are null cells.
type Row map[string]any

// Table is an ordered column set with rows. Columns keep first-seen order;
// mutations may grow the column set.
type Table struct {
	cols   []string
	colSet map[string]struct{}
	rows   []Row
}

// NewTable creates a table with the given columns in order. Duplicate
// column names are kept once.
func NewTable(cols ...string) *Table {
	t := &Table{colSet: make(map[string]struct{}, len(cols))}
	for _, c := range cols {
		t.EnsureColumn(c)
	}
	return t
}

// Columns returns the column names in order. The slice is a copy.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colSet[name]
	return ok
}

// EnsureColumn adds a column if absent and reports whether it was new.
// Existing rows read as null in a new column.
func (t *Table) EnsureColumn(name string) bool {
	if _, ok := t.colSet[name]; ok {
		return false
	}
	t.colSet[name] = struct{}{}
	t.cols = append(t.cols, name)
	return true
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// RowAt returns the row at index i. The map is shared with the table;
// callers that only read must not mutate it.
func (t *Table) RowAt(i int) Row { return t.rows[i] }

// Cell returns the value at (row, column) and whether the cell is set.
func (t *Table) Cell(i int, col string) (any, bool) {
	if i < 0 || i >= len(t.rows) {
		return nil, false
	}
	v, ok := t.rows[i][col]
	return v, ok
}

// SetCell writes a value at (row, column), creating the column when
// needed. It reports whether a new column was introduced. Row index must
// be in range.
func (t *Table) SetCell(i int, col string, v any) bool {
	added := t.EnsureColumn(col)
	if t.rows[i] == nil {
		t.rows[i] = Row{}
	}
	t.rows[i][col] = v
	return added
}

// Append adds a row as the new last row. Keys absent from the column set
// become new columns (appended in sorted key order, since map iteration
// has no order); other rows read as null in them. Reports whether any new
// column was introduced.
func (t *Table) Append(row Row) bool {
	added := false
	for _, k := range sortedKeys(row) {
		if t.EnsureColumn(k) {
			added = true
		}
	}
	cp := make(Row, len(row))
	for k, v := range row {
		cp[k] = v
	}
	t.rows = append(t.rows, cp)
	return added
}

// MergeRow overwrites row i's cells with row's values, leaving its
// other cells alone. New keys become new columns, appended in sorted key
// order. Reports whether any new column was introduced.
func (t *Table) MergeRow(i int, row Row) bool {
	added := false
	for _, k := range sortedKeys(row) {
		if t.EnsureColumn(k) {
			added = true
		}
	}
	if t.rows[i] == nil {
		t.rows[i] = Row{}
	}
	for k, v := range row {
		t.rows[i][k] = v
	}
	return added
}

// RemoveRowAt deletes the row at index i.
func (t *Table) RemoveRowAt(i int) {
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
}

// ClearColumn nulls every cell of a column. Unknown columns are ignored.
func (t *Table) ClearColumn(name string) {
	if !t.HasColumn(name) {
		return
	}
	for _, r := range t.rows {
		delete(r, name)
	}
}

// RemoveRows drops every row whose value in col equals value under loose
// comparison and returns how many were removed.
func (t *Table) RemoveRows(col string, value any) int {
	want := ValueString(value)
	kept := t.rows[:0]
	removed := 0
	for _, r := range t.rows {
		if ValueString(r[col]) == want {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	t.rows = kept
	return removed
}

// FindRows returns the indices of rows whose value in col equals value
// under loose comparison. An unknown column matches nothing.
func (t *Table) FindRows(col string, value any) []int {
	if !t.HasColumn(col) {
		return nil
	}
	want := ValueString(value)
	var out []int
	for i, r := range t.rows {
		if ValueString(r[col]) == want {
			out = append(out, i)
		}
	}
	return out
}

// DropEmptyRows removes rows whose every cell is null or blank.
func (t *Table) DropEmptyRows() {
	kept := t.rows[:0]
	for _, r := range t.rows {
		if !rowEmpty(r) {
			kept = append(kept, r)
		}
	}
	t.rows = kept
}

// Clone returns a deep copy sharing nothing with the original.
func (t *Table) Clone() *Table {
	out := NewTable(t.cols...)
	for _, r := range t.rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.rows = append(out.rows, cp)
	}
	return out
}

// ValueString renders a cell value for loose comparison and spreadsheet
// output. Null cells render as the empty string.
func ValueString(v any) string {
	if v == nil {
		return ""
	}
	return cast.ToString(v)
}

func rowEmpty(r Row) bool {
	for _, v := range r {
		if ValueString(v) != "" {
			return false
		}
	}
	return true
}

func sortedKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
