package dataset

import "github.com/starford/sdskit/internal/tabular"

// Entry is one direct child of the dataset root: a recognized metadata
// spreadsheet parsed into a table, or an opaque file or directory copied
// and moved verbatim. The variant set is closed.
type Entry interface {
	// Path returns the on-disk location the entry was loaded from.
	Path() string
	entry()
}

// TabularEntry is a parsed metadata spreadsheet.
type TabularEntry struct {
	Source string
	Table  *tabular.Table
}

func (e *TabularEntry) Path() string { return e.Source }
func (*TabularEntry) entry()         {}

// FileEntry is any other file or directory. Directories are not
// recursed into; they move through save as one unit.
type FileEntry struct {
	Location string
}

func (e *FileEntry) Path() string { return e.Location }
func (*FileEntry) entry()         {}
